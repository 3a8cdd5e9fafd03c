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

// Package coapmsg defines the immutable CoAP message value types (RFC 7252
// §3) and the refinement constructors that reject out-of-range field
// values, plus the typed error kinds the codec and broker raise.
package coapmsg

// Type is the CoAP message type carried in the header.
type Type uint8

const (
	TypeCON Type = 0
	TypeNON Type = 1
	TypeACK Type = 2
	TypeRST Type = 3
)

func (t Type) valid() bool {
	return t <= TypeRST
}

// Header is the fixed 4-byte CoAP header, decoded into its fields.
type Header struct {
	Version    uint8
	Type       Type
	TokenLen   uint8
	CodePrefix uint8
	CodeSuffix uint8
	MessageID  uint16
}

// NewHeader validates each field's range and returns a Header, or an
// InvalidHeaderField error naming the first field that fails.
func NewHeader(version uint8, typ Type, tokenLen, codePrefix, codeSuffix uint8, messageID uint16) (Header, error) {
	if version != 1 {
		return Header{}, &InvalidHeaderField{Field: "version", Value: int(version)}
	}
	if !typ.valid() {
		return Header{}, &InvalidHeaderField{Field: "type", Value: int(typ)}
	}
	if tokenLen > 8 {
		return Header{}, &InvalidHeaderField{Field: "tokenLength", Value: int(tokenLen)}
	}
	if codePrefix > 7 {
		return Header{}, &InvalidHeaderField{Field: "codePrefix", Value: int(codePrefix)}
	}
	if codeSuffix > 31 {
		return Header{}, &InvalidHeaderField{Field: "codeSuffix", Value: int(codeSuffix)}
	}
	// messageID is a uint16: every value in its domain is valid.
	return Header{
		Version:    version,
		Type:       typ,
		TokenLen:   tokenLen,
		CodePrefix: codePrefix,
		CodeSuffix: codeSuffix,
		MessageID:  messageID,
	}, nil
}

// Code returns the packed code byte (prefix<<5 | suffix), matching the
// "c.dd" CoAP response-code convention.
func (h Header) Code() uint8 {
	return h.CodePrefix<<5 | h.CodeSuffix
}

// Token is 1..8 opaque bytes identifying a CoAP request/response pair;
// present only when the header's token length is nonzero.
type Token []byte

// NewToken validates the token length against RFC 7252's 0..8 byte bound.
func NewToken(b []byte) (Token, error) {
	if len(b) > 8 {
		return nil, &InvalidHeaderField{Field: "tokenLength", Value: len(b)}
	}
	return Token(b), nil
}
