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

package coapmsg

// Body is the optional token, option list, and payload carried by a
// message. A payload marker with no following bytes is rejected at decode
// time (InvalidPayloadMarker), so a non-nil Payload here is always
// non-empty; likewise Options is nil rather than an empty slice when no
// options were present, so reflect.DeepEqual round-trips cleanly.
type Body struct {
	Token   Token
	Options []Option
	Payload []byte
}

// MediaType reports the media type this body's Content-Format (if any)
// selects, or MediaTypeAbsent if there is no payload at all.
func (b Body) MediaType() MediaType {
	if len(b.Payload) == 0 {
		return MediaTypeAbsent
	}
	return MediaTypeFromContentFormat(b.Options)
}

// Message is a full decoded CoAP datagram: header plus body.
type Message struct {
	Header Header
	Body   Body
}

// OptionValues returns, in option order, the Value of every option with the
// given number. Used by the pipeline to assemble the Uri-Path (option 11)
// segments into a topic path.
func (m Message) OptionValues(number OptionNumber) [][]byte {
	var out [][]byte
	for _, o := range m.Body.Options {
		if o.Number == number {
			out = append(out, o.Value)
		}
	}
	return out
}
