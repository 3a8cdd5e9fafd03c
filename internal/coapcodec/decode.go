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

// Package coapcodec implements the bit-exact CoAP (RFC 7252) deserializer
// and serializer: the 4-byte header, variable-length token, extended
// option delta/length encoding, and the 0xFF payload marker. The decode
// algorithm and option bit layout follow dsoftbus-go's
// pkg/discovery/coap/coap_adapter.go (COAP_SoftBusDecode /
// parseOptionsAndPayload), generalized to the typed error/option model in
// internal/coapmsg.
package coapcodec

import (
	"encoding/binary"

	"github.com/coapmesh/gateway/internal/coapbytes"
	"github.com/coapmesh/gateway/internal/coapmsg"
)

const payloadMarker = 0xFF

// Decode parses a CoAP datagram into a Message. On failure it returns a
// *coapmsg.ParseError, which carries a recovered message id whenever bytes
// 3-4 of the header were read before the failing check (spec.md §4.2
// algorithm step 1: the decoder reads the id before validating the other
// header fields, specifically so header-field errors still carry it).
func Decode(raw []byte) (coapmsg.Message, error) {
	if len(raw) < 4 {
		return coapmsg.Message{}, coapmsg.NewParseError(&coapbytes.ErrInvalidChunkSize{Want: 4, Have: len(raw)})
	}

	b1, b2 := raw[0], raw[1]
	id := binary.BigEndian.Uint16(raw[2:4])

	version := b1 >> 6 & 0x03
	typ := coapmsg.Type(b1 >> 4 & 0x03)
	tkl := b1 & 0x0F
	codePrefix := b2 >> 5 & 0x07
	codeSuffix := b2 & 0x1F

	header, err := coapmsg.NewHeader(version, typ, tkl, codePrefix, codeSuffix, id)
	if err != nil {
		// Bytes 3-4 were already read above, so the id is always
		// recoverable here even though header validation failed.
		return coapmsg.Message{}, coapmsg.NewParseErrorWithID(err, id)
	}

	rest := raw[4:]

	token, rest, err := takeToken(rest, int(header.TokenLen))
	if err != nil {
		return coapmsg.Message{}, coapmsg.NewParseErrorWithID(err, id)
	}

	options, payload, err := parseOptionsAndPayload(rest)
	if err != nil {
		return coapmsg.Message{}, coapmsg.NewParseErrorWithID(err, id)
	}

	body := coapmsg.Body{Options: options, Payload: payload}
	if len(token) > 0 {
		body.Token = coapmsg.Token(token)
	}

	return coapmsg.Message{Header: header, Body: body}, nil
}

func takeToken(rest []byte, tkl int) (coapmsg.Token, []byte, error) {
	if tkl == 0 {
		return nil, rest, nil
	}
	tok, err := coapbytes.TakeExact(rest, tkl)
	if err != nil {
		return nil, nil, err
	}
	rest, err = coapbytes.DropExact(rest, tkl)
	if err != nil {
		return nil, nil, err
	}
	return coapmsg.Token(tok), rest, nil
}

// parseOptionsAndPayload walks the option list starting from a running
// option number of 0, stopping at the payload marker (0xFF) or end of
// buffer, per spec.md §4.2 step 3.
func parseOptionsAndPayload(rest []byte) ([]coapmsg.Option, []byte, error) {
	var options []coapmsg.Option
	runningNumber := 0

	for len(rest) > 0 {
		if rest[0] == payloadMarker {
			if len(rest) == 1 {
				return nil, nil, &coapmsg.InvalidPayloadMarker{}
			}
			return options, rest[1:], nil
		}

		headerByte := rest[0]
		deltaNibble := int(headerByte >> 4 & 0x0F)
		lengthNibble := int(headerByte & 0x0F)
		cursor := rest[1:]

		delta, cursor, err := extendedValue(deltaNibble, cursor, true)
		if err != nil {
			return nil, nil, err
		}
		length, cursor, err := extendedValue(lengthNibble, cursor, false)
		if err != nil {
			return nil, nil, err
		}

		value, err := coapbytes.TakeExact(cursor, length)
		if err != nil {
			return nil, nil, err
		}
		cursor, err = coapbytes.DropExact(cursor, length)
		if err != nil {
			return nil, nil, err
		}

		runningNumber += delta
		number, err := coapmsg.NewOptionNumber(runningNumber)
		if err != nil {
			return nil, nil, err
		}

		consumed := len(rest) - len(cursor)
		options = append(options, coapmsg.Option{
			Number: number,
			Value:  value,
			Offset: consumed,
		})
		rest = cursor
	}

	// Trailing bytes consumed exactly; no payload marker seen — end of
	// body, not an error (spec.md §4.2 edge policy).
	return options, nil, nil
}

// extendedValue decodes one delta-or-length nibble and any extension
// bytes it requires, returning the effective value and the remaining
// buffer. isDelta selects which error type (InvalidOptionDelta vs
// InvalidOptionLength) nibble 15 produces.
func extendedValue(nibble int, rest []byte, isDelta bool) (int, []byte, error) {
	switch {
	case nibble <= 12:
		return nibble, rest, nil
	case nibble == 13:
		ext, err := coapbytes.TakeExact(rest, 1)
		if err != nil {
			return 0, nil, err
		}
		rest, err = coapbytes.DropExact(rest, 1)
		if err != nil {
			return 0, nil, err
		}
		return int(ext[0]) + 13, rest, nil
	case nibble == 14:
		ext, err := coapbytes.TakeExact(rest, 2)
		if err != nil {
			return 0, nil, err
		}
		rest, err = coapbytes.DropExact(rest, 2)
		if err != nil {
			return 0, nil, err
		}
		return int(binary.BigEndian.Uint16(ext)) + 269, rest, nil
	default: // nibble == 15, reserved
		if isDelta {
			return 0, nil, &coapmsg.InvalidOptionDelta{Nibble: nibble}
		}
		return 0, nil, &coapmsg.InvalidOptionLength{Nibble: nibble}
	}
}
