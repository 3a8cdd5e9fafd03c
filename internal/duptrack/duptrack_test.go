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

package duptrack

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestAddReturnsTrueOnlyOnce(t *testing.T) {
	tr := New(clockwork.NewFakeClock())
	key := Key{Peer: "127.0.0.1:1234", ID: 1}
	if !tr.Add(key) {
		t.Fatalf("expected first add to return true")
	}
	if tr.Add(key) {
		t.Fatalf("expected second add to return false")
	}
}

func TestRemove(t *testing.T) {
	tr := New(clockwork.NewFakeClock())
	key := Key{Peer: "p", ID: 1}
	if tr.Remove(key) {
		t.Fatalf("expected remove of absent key to return false")
	}
	tr.Add(key)
	if !tr.Remove(key) {
		t.Fatalf("expected remove of present key to return true")
	}
	if tr.Size() != 0 {
		t.Fatalf("expected size 0, got %d", tr.Size())
	}
}

func TestAddAndDeleteAfterExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := New(clock)
	key := Key{Peer: "peer", ID: 0x1234}

	if !tr.AddAndDeleteAfter(key, DefaultDelay) {
		t.Fatalf("expected first add to return true")
	}
	if tr.AddAndDeleteAfter(key, DefaultDelay) {
		t.Fatalf("expected re-add within the window to return false")
	}

	clock.BlockUntil(1)
	clock.Advance(DefaultDelay)

	deadline := time.Now().Add(time.Second)
	for tr.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if tr.Size() != 0 {
		t.Fatalf("expected key to be evicted after the delay")
	}

	if !tr.Add(key) {
		t.Fatalf("expected add after eviction to return true")
	}
}

func TestSizeMonotonicAcrossDistinctKeys(t *testing.T) {
	tr := New(clockwork.NewFakeClock())
	tr.Add(Key{Peer: "a", ID: 1})
	tr.Add(Key{Peer: "a", ID: 2})
	tr.Add(Key{Peer: "b", ID: 1})
	if tr.Size() != 3 {
		t.Fatalf("expected size 3, got %d", tr.Size())
	}
}
