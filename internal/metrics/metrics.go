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

// Package metrics exposes the gateway's Prometheus collectors. This is an
// ambient concern carried regardless of spec.md's Non-goals (which scope
// out congestion control and caching, not observability), grounded on
// tonylturner-cipgram's client_golang/promauto usage.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BrokerStats is the subset of *broker.Broker the gauge callbacks below
// read. Declared here rather than imported so this package stays free of
// an internal/broker dependency; *broker.Broker satisfies it directly.
type BrokerStats interface {
	SubscriberIDCount() int
	TopicCount() int
}

// Collectors bundles every metric the pipeline updates, plus the broker
// gauges, which sample the broker on each scrape.
type Collectors struct {
	DatagramsReceived prometheus.Counter
	DecodeErrors       prometheus.Counter
	RepliesSent        *prometheus.CounterVec
	DuplicatesDropped  prometheus.Counter
	BrokerSubscribers  prometheus.GaugeFunc
	BrokerTopics       prometheus.GaugeFunc
}

// New registers and returns a fresh set of collectors against reg. b
// backs the broker gauges, sampled on every scrape rather than pushed on
// every broker mutation, since the broker already computes these counts
// under its own lock in SubscriberIDCount/TopicCount.
func New(reg prometheus.Registerer, b BrokerStats) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "coapgw_datagrams_received_total",
			Help: "CoAP datagrams received on the UDP ingress.",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "coapgw_decode_errors_total",
			Help: "Datagrams that failed to decode as CoAP messages.",
		}),
		RepliesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coapgw_replies_sent_total",
			Help: "Replies sent on the UDP egress, labeled by kind (ack, reset, none).",
		}, []string{"kind"}),
		DuplicatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "coapgw_duplicates_dropped_total",
			Help: "Datagrams dropped because their (peer, message id) was already tracked.",
		}),
		BrokerSubscribers: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "coapgw_broker_subscribers",
			Help: "Current number of distinct broker subscriber ids.",
		}, func() float64 { return float64(b.SubscriberIDCount()) }),
		BrokerTopics: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "coapgw_broker_topics",
			Help: "Current number of known broker topic keys.",
		}, func() float64 { return float64(b.TopicCount()) }),
	}
}
