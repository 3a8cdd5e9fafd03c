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

// Package coapbytes provides the small slice helpers the CoAP codec is
// built on: exact-size reads and prefix drops, plus leading-zero and
// left-padding helpers. All but LeftPadTo return sub-slices of their input
// without allocating; the codec itself uses only TakeExact and DropExact.
package coapbytes

import "fmt"

// ErrInvalidChunkSize is returned by TakeExact/TakeNonEmpty/DropExact when
// fewer bytes are available than requested.
type ErrInvalidChunkSize struct {
	Want int
	Have int
}

func (e *ErrInvalidChunkSize) Error() string {
	return fmt.Sprintf("invalid chunk size: want %d bytes, have %d", e.Want, e.Have)
}

// TakeExact returns the first n bytes of b, or ErrInvalidChunkSize if b is
// shorter than n.
func TakeExact(b []byte, n int) ([]byte, error) {
	if len(b) < n {
		return nil, &ErrInvalidChunkSize{Want: n, Have: len(b)}
	}
	return b[:n], nil
}

// DropExact returns b with its first n bytes removed, or ErrInvalidChunkSize
// if b is shorter than n.
func DropExact(b []byte, n int) ([]byte, error) {
	if len(b) < n {
		return nil, &ErrInvalidChunkSize{Want: n, Have: len(b)}
	}
	return b[n:], nil
}

// TakeNonEmpty is TakeExact with the additional requirement that n > 0; it
// exists to distinguish an absent (zero-length) token from a malformed
// request for zero bytes.
func TakeNonEmpty(b []byte, n int) ([]byte, error) {
	if n <= 0 {
		return nil, &ErrInvalidChunkSize{Want: n, Have: len(b)}
	}
	return TakeExact(b, n)
}

// LeftPadTo prepends pad to b until it reaches length n. If b is already at
// least n bytes long, it is returned unchanged.
func LeftPadTo(b []byte, n int, pad byte) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	for i := 0; i < n-len(b); i++ {
		out[i] = pad
	}
	copy(out[n-len(b):], b)
	return out
}

// StripLeadingZeros returns the suffix of b starting at the first non-zero
// byte, or an empty slice if b is entirely zero (including empty b).
func StripLeadingZeros(b []byte) []byte {
	for i, v := range b {
		if v != 0 {
			return b[i:]
		}
	}
	return b[len(b):]
}

// FirstByte returns b[0] as an int, or -1 if b is empty.
func FirstByte(b []byte) int {
	if len(b) == 0 {
		return -1
	}
	return int(b[0])
}

// FirstTwoBytesBE returns the big-endian uint16 formed by b[0], b[1], or -1
// if b has fewer than 2 bytes.
func FirstTwoBytesBE(b []byte) int {
	if len(b) < 2 {
		return -1
	}
	return int(b[0])<<8 | int(b[1])
}
