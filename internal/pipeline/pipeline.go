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

// Package pipeline orchestrates the per-datagram flow spec.md §4.7
// describes: decode, respond, deduplicate, and deliver to the broker. The
// read-decode-dispatch shape is grounded on dustin-go-coap's
// UdpListenAndServe/handleRequest.
package pipeline

import (
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coapmesh/gateway/internal/broker"
	"github.com/coapmesh/gateway/internal/coapcodec"
	"github.com/coapmesh/gateway/internal/coapmsg"
	"github.com/coapmesh/gateway/internal/duptrack"
	"github.com/coapmesh/gateway/internal/metrics"
	"github.com/coapmesh/gateway/internal/responder"
)

// Egress sends a reply datagram to a peer; implemented by
// internal/transport in production and faked in tests.
type Egress interface {
	SendTo(addr net.Addr, b []byte) error
}

// Pipeline wires the codec, responder, duplicate tracker, and broker
// together for one UDP listener.
type Pipeline struct {
	Broker  *broker.Broker
	Dup     *duptrack.Tracker
	Egress  Egress
	Metrics *metrics.Collectors
	Log     logrus.FieldLogger

	// DupWindow is passed to AddAndDeleteAfter; defaults to
	// duptrack.DefaultDelay when zero.
	DupWindow time.Duration
}

// Handle implements spec.md §4.7's per-datagram steps. Step 2 (respond)
// and step 3 (broker delivery) are independent: a reply is sent before
// the broker push is attempted, so a slow or blocked broker never delays
// the ACK/RST the peer is waiting on.
func (p *Pipeline) Handle(peer net.Addr, raw []byte) {
	msg, decodeErr := coapcodec.Decode(raw)

	if p.Metrics != nil {
		p.Metrics.DatagramsReceived.Inc()
		if decodeErr != nil {
			p.Metrics.DecodeErrors.Inc()
		}
	}

	var msgPtr *coapmsg.Message
	if decodeErr == nil {
		msgPtr = &msg
	}

	if reply := responder.Respond(peer, msgPtr, decodeErr); reply != nil {
		if err := p.Egress.SendTo(reply.Addr, reply.Bytes); err != nil {
			p.logger().WithError(err).Warn("failed to send CoAP reply")
		}
		if p.Metrics != nil {
			p.Metrics.RepliesSent.WithLabelValues(replyKind(msgPtr)).Inc()
		}
	} else if p.Metrics != nil {
		p.Metrics.RepliesSent.WithLabelValues("none").Inc()
	}

	if decodeErr != nil {
		return
	}

	window := p.DupWindow
	if window == 0 {
		window = duptrack.DefaultDelay
	}
	key := duptrack.Key{Peer: peer.String(), ID: msg.Header.MessageID}
	if !p.Dup.AddAndDeleteAfter(key, window) {
		if p.Metrics != nil {
			p.Metrics.DuplicatesDropped.Inc()
		}
		return
	}

	segments := topicSegments(msg)
	if len(segments) == 0 {
		return
	}
	p.Broker.Push(segments, msg.Body.Payload)
}

// topicSegments implements spec.md §9 open question #1: the Uri-Path
// (option 11) values, in option order, form the segments pushed to the
// broker as the topic path.
func topicSegments(msg coapmsg.Message) []string {
	raw := msg.OptionValues(coapmsg.OptionURIPath)
	segments := make([]string, 0, len(raw))
	for _, v := range raw {
		if s := string(v); strings.TrimSpace(s) != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func replyKind(msg *coapmsg.Message) string {
	if msg == nil {
		return "reset"
	}
	return "ack"
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Log != nil {
		return p.Log
	}
	return logrus.StandardLogger()
}
