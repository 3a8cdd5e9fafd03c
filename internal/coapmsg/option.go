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

// OptionNumber is a CoAP option's absolute number, the running sum of
// option deltas (RFC 7252 §3.1). The reserved nibble value 15 is rejected
// by the decoder before any number is formed; NewOptionNumber itself
// accepts every number from 0 to 65804, the largest single delta the
// 2-byte extension can express (65535 + 269), which does not fit in a
// uint16.
type OptionNumber uint32

const (
	// OptionURIPath is option number 11, the path-segment option the
	// pipeline concatenates into a broker topic (spec.md §4.7, §9 open
	// question #1).
	OptionURIPath OptionNumber = 11
	// OptionContentFormat is option number 12, consulted for media-type
	// sniffing (spec.md §3).
	OptionContentFormat OptionNumber = 12

	maxOptionNumber = 65804
)

// NewOptionNumber validates n against the reserved/invalid range.
func NewOptionNumber(n int) (OptionNumber, error) {
	if n < 0 || n > maxOptionNumber {
		return 0, &InvalidOptionNumber{Number: n}
	}
	return OptionNumber(n), nil
}

// Option is one decoded CoAP option: its absolute Number (the running delta
// sum), opaque Value bytes, and Offset — the total bytes this option
// consumed from the wire (header byte + delta/length extension bytes +
// value). Encode ignores Offset.
type Option struct {
	Number OptionNumber
	Value  []byte
	Offset int
}

// MediaType is the sniffed or declared payload media type (spec.md §3).
// Sniffing is a placeholder per spec.md §9 open question #2: it is always
// treated identically to Text in this scope.
type MediaType uint8

const (
	MediaTypeAbsent MediaType = iota
	MediaTypeText
	MediaTypeSniffing
)

// MediaTypeFromContentFormat inspects a decoded Content-Format (option 12)
// option value for an integer selector. Any non-empty value is treated as
// "text" (the codec does not interpret specific CoAP content-format IDs);
// absence of the option falls back to Sniffing.
func MediaTypeFromContentFormat(opts []Option) MediaType {
	for _, o := range opts {
		if o.Number == OptionContentFormat {
			if len(o.Value) > 0 {
				return MediaTypeText
			}
			return MediaTypeSniffing
		}
	}
	return MediaTypeSniffing
}
