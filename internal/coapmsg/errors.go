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

import "fmt"

// InvalidHeaderField reports a header field whose value fell outside its
// refinement's allowed range. Mirrors the DISCOVERY_ERR_* taxonomy in
// dsoftbus-go's coap_common.go (invalid version, invalid token length, ...)
// collapsed into one tagged variant as spec.md §9 requires.
type InvalidHeaderField struct {
	Field string
	Value int
}

func (e *InvalidHeaderField) Error() string {
	return fmt.Sprintf("invalid header field %s: %d", e.Field, e.Value)
}

// InvalidOptionDelta is returned when an option's delta nibble is the
// reserved value 15.
type InvalidOptionDelta struct {
	Nibble int
}

func (e *InvalidOptionDelta) Error() string {
	return fmt.Sprintf("invalid option delta nibble: %d", e.Nibble)
}

// InvalidOptionLength is returned when an option's length nibble is the
// reserved value 15.
type InvalidOptionLength struct {
	Nibble int
}

func (e *InvalidOptionLength) Error() string {
	return fmt.Sprintf("invalid option length nibble: %d", e.Nibble)
}

// InvalidOptionNumber is returned when an option's absolute number falls
// outside its refinement's allowed range.
type InvalidOptionNumber struct {
	Number int
}

func (e *InvalidOptionNumber) Error() string {
	return fmt.Sprintf("invalid option number: %d", e.Number)
}

// InvalidPayloadMarker is returned when a 0xFF payload marker byte is the
// final byte of the datagram, with no payload bytes following it.
type InvalidPayloadMarker struct{}

func (e *InvalidPayloadMarker) Error() string {
	return "payload marker present with no following payload bytes"
}

// MissingAddress indicates the ingress failed to capture a peer address for
// a datagram; this is an ingress bug, fatal to the datagram but not the
// process.
type MissingAddress struct{}

func (e *MissingAddress) Error() string { return "missing peer address" }

// MissingCoapId indicates a parse failure occurred before a message id
// could be recovered from the datagram; the datagram must be silently
// dropped, since no reset can be addressed to it.
type MissingCoapId struct{}

func (e *MissingCoapId) Error() string { return "parse failed before message id was recovered" }

// NoResponseAvailable indicates the responder chose not to reply (a
// well-formed, non-confirmable message).
type NoResponseAvailable struct{}

func (e *NoResponseAvailable) Error() string { return "no response available" }

// MissingSubscriber is returned by broker operations addressed to a
// subscriber id that is unknown or already removed.
type MissingSubscriber struct {
	ID uint64
}

func (e *MissingSubscriber) Error() string {
	return fmt.Sprintf("missing subscriber: %d", e.ID)
}

// MissingBrokerBucket is returned when a broker invariant check at
// operation entry finds a map bucket absent where the caller expected one.
type MissingBrokerBucket struct {
	Path string
}

func (e *MissingBrokerBucket) Error() string {
	return fmt.Sprintf("missing broker bucket: %q", e.Path)
}

// UnreachableCodeError marks a defensive branch that the invariants say
// should never execute. No code in this repository returns or handles it.
type UnreachableCodeError struct {
	Detail string
}

func (e *UnreachableCodeError) Error() string {
	return fmt.Sprintf("unreachable code: %s", e.Detail)
}

// ParseError is the tagged parse-error variant spec.md §9 requires: a kind
// plus an optionally recovered message id, rather than two unrelated error
// types. ID is nil until bytes 3-4 of the header have been read.
type ParseError struct {
	Kind error
	ID   *uint16
}

func (e *ParseError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%v (id=%d)", e.Kind, *e.ID)
	}
	return e.Kind.Error()
}

func (e *ParseError) Unwrap() error { return e.Kind }

// NewParseError builds a ParseError without a recovered id.
func NewParseError(kind error) *ParseError {
	return &ParseError{Kind: kind}
}

// NewParseErrorWithID builds a ParseError carrying a recovered message id.
func NewParseErrorWithID(kind error, id uint16) *ParseError {
	return &ParseError{Kind: kind, ID: &id}
}
