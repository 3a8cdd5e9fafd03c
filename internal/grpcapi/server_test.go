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

package grpcapi

import (
	"context"
	"io"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/coapmesh/gateway/internal/broker"
)

func TestValidatePathsRejectsEmptyAndSlash(t *testing.T) {
	cases := []struct {
		name string
		path Path
		want bool
	}{
		{"ok", Path{Segments: []string{"a", "b"}}, false},
		{"empty segment", Path{Segments: []string{"a", ""}}, true},
		{"embedded slash", Path{Segments: []string{"a/b"}}, true},
	}
	for _, tc := range cases {
		err := validatePaths([]Path{tc.path})
		if (err != nil) != tc.want {
			t.Errorf("%s: validatePaths error=%v, want error=%v", tc.name, err, tc.want)
		}
		if err != nil && status.Code(err) != codes.InvalidArgument {
			t.Errorf("%s: expected InvalidArgument, got %v", tc.name, status.Code(err))
		}
	}
}

func TestBrokerErrToStatus(t *testing.T) {
	b := broker.New()
	err := b.RemoveSubscriber(42)
	got := brokerErrToStatus(err)
	if status.Code(got) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", status.Code(got))
	}
}

// fakeStream is a minimal grpc.ServerStream fake that feeds a fixed queue
// of inbound messages and records outbound ones, enough to exercise
// GetTopics' recv-then-send-loop shape without a real network transport.
type fakeStream struct {
	grpc.ServerStream
	in  []interface{}
	out []interface{}
}

func (f *fakeStream) Context() context.Context { return context.Background() }

func (f *fakeStream) RecvMsg(m interface{}) error {
	if len(f.in) == 0 {
		return io.EOF
	}
	next := f.in[0]
	f.in = f.in[1:]
	switch v := m.(type) {
	case *Empty:
		*v = next.(Empty)
	case *SubscriptionRequest:
		*v = next.(SubscriptionRequest)
	}
	return nil
}

func (f *fakeStream) SendMsg(m interface{}) error {
	switch v := m.(type) {
	case *Path:
		f.out = append(f.out, *v)
	case *PublisherResponse:
		f.out = append(f.out, *v)
	}
	return nil
}

func TestGetTopicsStreamsEveryTopic(t *testing.T) {
	b := broker.New()
	b.AddTopic([]string{"a", "b"})
	b.AddTopic([]string{"c"})

	srv := &Server{Broker: b}
	stream := &fakeStream{in: []interface{}{Empty{}}}

	if err := srv.GetTopics(stream); err != nil {
		t.Fatalf("GetTopics: %v", err)
	}
	// AddTopic stores every prefix: "a", "a/b" and "c".
	if len(stream.out) != 3 {
		t.Fatalf("expected 3 topics streamed, got %d", len(stream.out))
	}
}

func TestSubscribeAddThenRemoveViaStream(t *testing.T) {
	b := broker.New()
	srv := &Server{Broker: b}

	stream := &fakeStream{in: []interface{}{
		SubscriptionRequest{Action: ActionAdd, Paths: []Path{{Segments: []string{"a", "b"}}}},
	}}

	if err := srv.Subscribe(stream); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	// The subscriber id allocated inside Subscribe is opaque to the test,
	// but RemoveSubscriber running on stream teardown must have left no
	// dangling mailbox: the topic key exists with an empty subscriber set.
	if b.SubscriberCount("a/b") != 0 {
		t.Fatalf("expected subscriber removed on stream close, got count %d", b.SubscriberCount("a/b"))
	}
}

func TestSubscribeRejectsInvalidPath(t *testing.T) {
	b := broker.New()
	srv := &Server{Broker: b}

	stream := &fakeStream{in: []interface{}{
		SubscriptionRequest{Action: ActionAdd, Paths: []Path{{Segments: []string{""}}}},
	}}

	err := srv.Subscribe(stream)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
