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

// Package grpcapi is the Subscription API façade spec.md §6 describes as a
// collaborator: Subscribe(stream SubscriptionRequest) -> stream
// PublisherResponse, and GetTopics(Empty) -> stream Path. Message shapes
// are plain Go structs rather than protoc-gen-go output (see
// subscription.proto and DESIGN.md's open-question log for why), carried
// over the wire by codec.go's JSON encoding.Codec.
package grpcapi

// Action selects whether a SubscriptionRequest adds or removes the listed
// paths from the caller's subscriber id.
type Action int32

const (
	ActionAdd    Action = 0
	ActionRemove Action = 1
)

// Path is a repeated sequence of path segments, mirroring spec.md §6's "A
// Path is a repeated string of segments". Segments containing '/' or that
// are empty are rejected by the API filter before they ever reach the
// broker (server.go's validatePaths).
type Path struct {
	Segments []string `json:"segments"`
}

// SubscriptionRequest is one message in the client->server half of the
// Subscribe stream.
type SubscriptionRequest struct {
	Action Action `json:"action"`
	Paths  []Path `json:"paths"`
}

// PublisherResponse is one message in the server->client half of the
// Subscribe stream: a topic path plus the delivered content.
type PublisherResponse struct {
	Path    Path   `json:"path"`
	Content string `json:"content"`
}

// Empty is the request message for GetTopics.
type Empty struct{}
