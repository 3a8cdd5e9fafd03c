// Copyright 2021 The Matrix.org Foundation C.I.C.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package responder implements the pure response state machine (spec.md
// §4.4): given a decode outcome, decide whether a reset, an
// acknowledgement, or no reply is owed. It holds no state and performs no
// I/O or retries; retransmission suppression is internal/duptrack's job.
package responder

import (
	"net"

	"github.com/coapmesh/gateway/internal/coapcodec"
	"github.com/coapmesh/gateway/internal/coapmsg"
)

// Reply is an outbound datagram addressed to a peer.
type Reply struct {
	Addr  net.Addr
	Bytes []byte
}

// Respond implements spec.md §4.4's three-way decision:
//   - a parse error carrying a recovered id produces a reset addressed to
//     peer;
//   - a confirmable message produces an acknowledgement for its id;
//   - anything else produces no reply.
//
// decodeErr and msg are mutually exclusive: pass exactly one non-zero.
func Respond(peer net.Addr, msg *coapmsg.Message, decodeErr error) *Reply {
	if decodeErr != nil {
		if pe, ok := decodeErr.(*coapmsg.ParseError); ok && pe.ID != nil {
			return &Reply{Addr: peer, Bytes: coapcodec.Encode(coapcodec.Reset(*pe.ID))}
		}
		return nil
	}
	if msg == nil {
		return nil
	}
	if msg.Header.Type == coapmsg.TypeCON {
		return &Reply{Addr: peer, Bytes: coapcodec.Encode(coapcodec.Ack(msg.Header.MessageID))}
	}
	return nil
}
