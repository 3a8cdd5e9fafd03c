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
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/coapmesh/gateway/internal/broker"
	"github.com/coapmesh/gateway/internal/coapmsg"
)

// serviceName and method/stream names mirror subscription.proto; they are
// the strings grpc-go's routing table keys off of, exactly as
// protoc-gen-go-grpc would generate them for this contract.
const serviceName = "coapmesh.gateway.v1.Subscription"

// Server implements the Subscription gRPC service (spec.md §6) against a
// broker.Broker. Errors are translated to grpc/codes the way
// absmach-magistrala's coap-api-transport.go translates its own service
// errors via grpc/codes + grpc/status.
type Server struct {
	Broker *broker.Broker
	Log    logrus.FieldLogger
}

func (s *Server) logger() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

// validatePaths implements spec.md §6's API filter: segments containing
// '/' or that are empty are rejected before reaching the broker.
func validatePaths(paths []Path) error {
	for _, p := range paths {
		for _, seg := range p.Segments {
			if seg == "" || strings.Contains(seg, "/") {
				return status.Errorf(codes.InvalidArgument, "invalid path segment %q", seg)
			}
		}
	}
	return nil
}

func toSegments(paths []Path) [][]string {
	out := make([][]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Segments)
	}
	return out
}

func brokerErrToStatus(err error) error {
	var missingSub *coapmsg.MissingSubscriber
	var missingBucket *coapmsg.MissingBrokerBucket
	switch {
	case errors.As(err, &missingSub):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &missingBucket):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// Subscribe implements the bidi-streaming half of the contract: the client
// sends SubscriptionRequest{Action, Paths} messages to add/remove topic
// subscriptions for one subscriber id (allocated on first contact via
// broker.NextID), while a concurrent goroutine drains that subscriber's
// mailbox and streams PublisherResponse messages back. The subscriber is
// torn down via broker.RemoveSubscriber when the stream ends for any
// reason, per spec.md §5's cancellation model.
func (s *Server) Subscribe(stream grpc.ServerStream) error {
	id := s.Broker.NextID()
	log := s.logger().WithField("subscriber_id", id)
	log.Debug("subscription stream opened")

	// Create the mailbox before the pump starts so Take has one to wait on
	// ahead of the first ADD request.
	s.Broker.AddSubscriberTo(nil, id)
	defer func() {
		if removeErr := s.Broker.RemoveSubscriber(id); removeErr != nil {
			log.WithError(brokerErrToStatus(removeErr)).Debug("subscriber already removed on stream close")
		}
	}()

	done := make(chan struct{})
	defer close(done)

	go s.pumpMailbox(stream, id, done)

	for {
		var req SubscriptionRequest
		if err := stream.RecvMsg(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if err := validatePaths(req.Paths); err != nil {
			return err
		}

		switch req.Action {
		case ActionAdd:
			s.Broker.AddSubscriberTo(toSegments(req.Paths), id)
		case ActionRemove:
			s.Broker.RemoveSubscriptions(toSegments(req.Paths), id)
		default:
			return status.Errorf(codes.InvalidArgument, "unknown action %d", req.Action)
		}
	}
}

// pumpMailbox drains the subscriber's broker mailbox and forwards each
// message as a PublisherResponse until done is closed (the stream ended)
// or the mailbox itself is closed by RemoveSubscriber running on another
// path (e.g. an explicit admin teardown).
func (s *Server) pumpMailbox(stream grpc.ServerStream, id uint64, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		msg, ok := s.Broker.Take(id)
		if !ok {
			return
		}

		resp := PublisherResponse{
			Path:    Path{Segments: strings.Split(msg.Path, "/")},
			Content: string(msg.Content),
		}
		if err := stream.SendMsg(&resp); err != nil {
			s.logger().WithError(err).WithField("subscriber_id", id).Warn("failed to send publisher response")
			return
		}
	}
}

// GetTopics implements the server-streaming half of the contract: after
// receiving the single Empty request, it streams one Path per known
// broker topic key.
func (s *Server) GetTopics(stream grpc.ServerStream) error {
	var req Empty
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	for _, topic := range s.Broker.GetTopics() {
		p := Path{Segments: strings.Split(topic, "/")}
		if err := stream.SendMsg(&p); err != nil {
			return err
		}
	}
	return nil
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(*Server).Subscribe(stream)
}

func getTopicsHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(*Server).GetTopics(stream)
}

// ServiceDesc is the hand-rolled equivalent of what protoc-gen-go-grpc
// would emit for subscription.proto's service (DESIGN.md's "gRPC without
// protoc" open question). Register it with
// grpcServer.RegisterService(&ServiceDesc, server).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*interface{})(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
		{
			StreamName:    "GetTopics",
			Handler:       getTopicsHandler,
			ServerStreams: true,
			ClientStreams: false,
		},
	},
	Metadata: "internal/grpcapi/subscription.proto",
}

// Register attaches the Subscription service to s. It does not set the
// codec: s must be built with grpc.ForceServerCodec(Codec()) for the JSON
// codec to replace protobuf.
func Register(s *grpc.Server, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}
