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
	"bytes"
	"reflect"
	"testing"

	"github.com/coapmesh/gateway/internal/coapmsg"
)

func TestDecodeHeaderRoundTrip(t *testing.T) {
	for _, typ := range []coapmsg.Type{coapmsg.TypeCON, coapmsg.TypeNON, coapmsg.TypeACK, coapmsg.TypeRST} {
		for _, tkl := range []uint8{0, 1, 8} {
			for _, prefix := range []uint8{0, 2, 7} {
				for _, suffix := range []uint8{0, 5, 31} {
					for _, id := range []uint16{0, 0x1234, 0xFFFF} {
						h, err := coapmsg.NewHeader(1, typ, tkl, prefix, suffix, id)
						if err != nil {
							t.Fatalf("NewHeader: %v", err)
						}
						token := bytes.Repeat([]byte{0xAB}, int(tkl))
						msg := coapmsg.Message{Header: h, Body: coapmsg.Body{Token: coapmsg.Token(token)}}
						wire := Encode(msg)

						b1 := wire[0]
						b2 := wire[1]
						if b1 != (1<<6 | uint8(typ)<<4 | tkl) {
							t.Fatalf("b1 mismatch: %08b", b1)
						}
						if b2 != (prefix<<5 | suffix) {
							t.Fatalf("b2 mismatch: %08b", b2)
						}

						got, err := Decode(wire)
						if err != nil {
							t.Fatalf("Decode: %v", err)
						}
						if got.Header != h {
							t.Fatalf("header mismatch: got %+v want %+v", got.Header, h)
						}
						reEncoded := Encode(got)
						if !bytes.Equal(reEncoded, wire) {
							t.Fatalf("re-encode mismatch: got %x want %x", reEncoded, wire)
						}
					}
				}
			}
		}
	}
}

func TestOptionExtendedEncodingRoundTrip(t *testing.T) {
	deltas := []int{0, 5, 12, 13, 100, 268, 269, 1000, 65804}
	for _, d := range deltas {
		msg := coapmsg.Message{
			Header: coapmsg.Header{Version: 1, Type: coapmsg.TypeCON, MessageID: 1},
			Body: coapmsg.Body{
				Options: []coapmsg.Option{{Number: coapmsg.OptionNumber(d), Value: []byte("v")}},
			},
		}
		wire := Encode(msg)
		got, err := Decode(wire)
		if err != nil {
			t.Fatalf("delta=%d: decode error: %v", d, err)
		}
		if len(got.Body.Options) != 1 {
			t.Fatalf("delta=%d: expected 1 option, got %d", d, len(got.Body.Options))
		}
		if int(got.Body.Options[0].Number) != d {
			t.Fatalf("delta=%d: number mismatch: got %d", d, got.Body.Options[0].Number)
		}
		if !bytes.Equal(got.Body.Options[0].Value, []byte("v")) {
			t.Fatalf("delta=%d: value mismatch", d)
		}
	}
}

func TestOptionExtendedLength(t *testing.T) {
	lengths := []int{0, 12, 13, 100, 268, 269, 2000}
	for _, l := range lengths {
		value := bytes.Repeat([]byte{0x42}, l)
		msg := coapmsg.Message{
			Header: coapmsg.Header{Version: 1, Type: coapmsg.TypeCON, MessageID: 1},
			Body:   coapmsg.Body{Options: []coapmsg.Option{{Number: 11, Value: value}}},
		}
		wire := Encode(msg)
		got, err := Decode(wire)
		if err != nil {
			t.Fatalf("length=%d: decode error: %v", l, err)
		}
		if !bytes.Equal(got.Body.Options[0].Value, value) {
			t.Fatalf("length=%d: value mismatch, got len %d", l, len(got.Body.Options[0].Value))
		}
	}
}

func TestErrorRecoveryCarriesID(t *testing.T) {
	// >= 4 bytes: id must always be recoverable, even on a header-field
	// error (version mismatch here).
	wire := []byte{0x80, 0x01, 0x12, 0x34} // version=2 (invalid)
	_, err := Decode(wire)
	pe, ok := err.(*coapmsg.ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.ID == nil || *pe.ID != 0x1234 {
		t.Fatalf("expected recovered id 0x1234, got %v", pe.ID)
	}

	// < 4 bytes: id must be absent.
	short := []byte{0x40, 0x01}
	_, err = Decode(short)
	pe, ok = err.(*coapmsg.ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.ID != nil {
		t.Fatalf("expected no recovered id, got %v", *pe.ID)
	}
}

func TestInvalidOptionDeltaNibble15(t *testing.T) {
	wire := []byte{0x40, 0x01, 0x00, 0x05, 0xF0}
	_, err := Decode(wire)
	pe, ok := err.(*coapmsg.ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if _, ok := pe.Kind.(*coapmsg.InvalidOptionDelta); !ok {
		t.Fatalf("expected InvalidOptionDelta, got %T", pe.Kind)
	}
}

func TestEndToEndScenario1(t *testing.T) {
	wire := []byte{0x40, 0x01, 0x12, 0x34}
	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ack := Encode(Ack(msg.Header.MessageID))
	want := []byte{0x60, 0x00, 0x12, 0x34}
	if !bytes.Equal(ack, want) {
		t.Fatalf("got %x, want %x", ack, want)
	}
}

func TestEndToEndScenario2(t *testing.T) {
	wire := []byte{0x40, 0x01, 0xAB, 0xCD, 0xFF}
	_, err := Decode(wire)
	pe, ok := err.(*coapmsg.ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if _, ok := pe.Kind.(*coapmsg.InvalidPayloadMarker); !ok {
		t.Fatalf("expected InvalidPayloadMarker, got %T", pe.Kind)
	}
	if pe.ID == nil || *pe.ID != 0xABCD {
		t.Fatalf("expected recovered id 0xabcd, got %v", pe.ID)
	}
	rst := Encode(Reset(*pe.ID))
	want := []byte{0x70, 0x00, 0xAB, 0xCD}
	if !bytes.Equal(rst, want) {
		t.Fatalf("got %x, want %x", rst, want)
	}
}

func TestEndToEndScenario3(t *testing.T) {
	wire := []byte{0x40, 0x01, 0x00, 0x05, 0xB4, 't', 'e', 's', 't'}
	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msg.Body.Options) != 1 {
		t.Fatalf("expected 1 option, got %d", len(msg.Body.Options))
	}
	opt := msg.Body.Options[0]
	if opt.Number != 11 {
		t.Fatalf("expected option number 11, got %d", opt.Number)
	}
	if !reflect.DeepEqual(opt.Value, []byte("test")) {
		t.Fatalf("expected value 'test', got %q", opt.Value)
	}
	if msg.Body.Payload != nil {
		t.Fatalf("expected no payload, got %q", msg.Body.Payload)
	}
}

func TestTrailingBytesNoMarkerIsNotError(t *testing.T) {
	// One empty option (number 1, zero-length value) followed by no
	// marker: decode must succeed with no payload, per the edge policy in
	// spec.md §4.2.
	wire := []byte{0x40, 0x01, 0x00, 0x05, 0x10}
	msg, err := Decode(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Body.Payload != nil {
		t.Fatalf("expected nil payload")
	}
}
