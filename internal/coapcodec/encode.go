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

package coapcodec

import (
	"encoding/binary"

	"github.com/coapmesh/gateway/internal/coapmsg"
)

// Encode is the reciprocal of Decode: it packs a Message's header fields
// back into 4 bytes, appends the token, emits each option with the
// minimal delta/length nibble encoding (extended encoding only when the
// nibble would otherwise exceed 12), and appends the 0xFF payload marker
// plus payload bytes when a payload is present.
func Encode(msg coapmsg.Message) []byte {
	h := msg.Header
	b1 := h.Version<<6 | uint8(h.Type)<<4 | h.TokenLen
	b2 := h.Code()

	out := make([]byte, 4, 4+len(msg.Body.Token)+len(msg.Body.Payload)+16)
	out[0] = b1
	out[1] = b2
	binary.BigEndian.PutUint16(out[2:4], h.MessageID)

	out = append(out, msg.Body.Token...)

	running := 0
	for _, opt := range msg.Body.Options {
		delta := int(opt.Number) - running
		running = int(opt.Number)
		out = appendOption(out, delta, opt.Value)
	}

	if len(msg.Body.Payload) > 0 {
		out = append(out, payloadMarker)
		out = append(out, msg.Body.Payload...)
	}

	return out
}

func appendOption(out []byte, delta int, value []byte) []byte {
	deltaNibble, deltaExt := splitExtended(delta)
	lengthNibble, lengthExt := splitExtended(len(value))

	out = append(out, byte(deltaNibble<<4|lengthNibble))
	out = append(out, deltaExt...)
	out = append(out, lengthExt...)
	out = append(out, value...)
	return out
}

// splitExtended returns the nibble to emit and any extension bytes needed,
// mirroring the decoder's extendedValue in reverse.
func splitExtended(v int) (nibble int, ext []byte) {
	switch {
	case v <= 12:
		return v, nil
	case v <= 268:
		return 13, []byte{byte(v - 13)}
	default:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v-269))
		return 14, b
	}
}

// Ack builds a CON-less acknowledgement for the given message id: type
// ACK, code 0.00, no token, no body (spec.md §4.3).
func Ack(id uint16) coapmsg.Message {
	return coapmsg.Message{
		Header: coapmsg.Header{
			Version:   1,
			Type:      coapmsg.TypeACK,
			MessageID: id,
		},
	}
}

// Reset builds a reset message for the given message id: type RST, code
// 0.00, no token, no body (spec.md §4.3).
func Reset(id uint16) coapmsg.Message {
	return coapmsg.Message{
		Header: coapmsg.Header{
			Version:   1,
			Type:      coapmsg.TypeRST,
			MessageID: id,
		},
	}
}
