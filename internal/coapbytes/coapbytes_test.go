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

package coapbytes

import (
	"bytes"
	"testing"
)

func TestTakeExact(t *testing.T) {
	cases := []struct {
		name    string
		in      []byte
		n       int
		want    []byte
		wantErr bool
	}{
		{"exact", []byte{1, 2, 3}, 3, []byte{1, 2, 3}, false},
		{"prefix", []byte{1, 2, 3}, 2, []byte{1, 2}, false},
		{"short", []byte{1}, 3, nil, true},
		{"zero", []byte{1, 2}, 0, []byte{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := TakeExact(c.in, c.n)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				var csErr *ErrInvalidChunkSize
				if _, ok := err.(*ErrInvalidChunkSize); !ok {
					t.Fatalf("expected ErrInvalidChunkSize, got %T", err)
				}
				_ = csErr
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestDropExact(t *testing.T) {
	got, err := DropExact([]byte{1, 2, 3, 4}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte{3, 4}) {
		t.Fatalf("got %v", got)
	}
	if _, err := DropExact([]byte{1}, 5); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTakeNonEmpty(t *testing.T) {
	if _, err := TakeNonEmpty([]byte{1, 2}, 0); err == nil {
		t.Fatalf("expected error for n=0")
	}
	got, err := TakeNonEmpty([]byte{1, 2}, 1)
	if err != nil || !bytes.Equal(got, []byte{1}) {
		t.Fatalf("got %v, err %v", got, err)
	}
}

func TestLeftPadTo(t *testing.T) {
	got := LeftPadTo([]byte{1}, 3, 0)
	if !bytes.Equal(got, []byte{0, 0, 1}) {
		t.Fatalf("got %v", got)
	}
	same := []byte{1, 2, 3}
	got = LeftPadTo(same, 2, 0)
	if !bytes.Equal(got, same) {
		t.Fatalf("got %v, want unchanged", got)
	}
}

func TestStripLeadingZeros(t *testing.T) {
	cases := []struct {
		in   []byte
		want []byte
	}{
		{[]byte{0, 0, 1, 2}, []byte{1, 2}},
		{[]byte{0, 0, 0}, []byte{}},
		{[]byte{}, []byte{}},
		{[]byte{5}, []byte{5}},
	}
	for _, c := range cases {
		got := StripLeadingZeros(c.in)
		if !bytes.Equal(got, c.want) {
			t.Fatalf("StripLeadingZeros(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFirstByteAndFirstTwoBytes(t *testing.T) {
	if FirstByte(nil) != -1 {
		t.Fatalf("expected -1 for empty")
	}
	if FirstByte([]byte{0x12, 0x34}) != 0x12 {
		t.Fatalf("expected 0x12")
	}
	if FirstTwoBytesBE([]byte{0x01}) != -1 {
		t.Fatalf("expected -1 for short input")
	}
	if got := FirstTwoBytesBE([]byte{0x12, 0x34}); got != 0x1234 {
		t.Fatalf("got %x", got)
	}
}
