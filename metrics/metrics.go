// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

const namespace = "nsedata"

// Registry holds every collector exported by nsedata. It is kept separate from
// the default registerer so that pushes only carry nsedata series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var defaultBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}

var (
	// FetchAttempts counts history requests by ladder period and outcome
	// (bars, empty, error, cancelled)
	FetchAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "history_attempts_total",
			Help:      "Number of history requests issued while walking the period ladder",
		},
		[]string{"period", "outcome"},
	)

	ProviderRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Number of HTTP requests sent to the market data provider",
		},
		[]string{"endpoint", "status"},
	)

	ProviderDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of market data provider requests",
			Buckets:   defaultBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// TickersProcessed counts tickers by outcome (processed, skipped, failed)
	TickersProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "tickers_total",
			Help:      "Number of tickers handled by the ingest loop",
		},
		[]string{"outcome"},
	)

	RowsUpserted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_upserted_total",
			Help:      "Number of rows written by the upsert reconciler",
		},
		[]string{"table"},
	)

	TickerDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ticker_duration_seconds",
			Help:      "Time spent ingesting a single ticker",
			Buckets:   defaultBuckets,
		},
	)

	SummaryPublished = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "last_published_timestamp_seconds",
			Help:      "Unix time of the last published financial summary",
		},
	)

	SummaryStocks = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "stocks",
			Help:      "Number of stocks included in the last financial summary",
		},
	)
)

// Push sends the current value of every collector to a prometheus
// pushgateway. An empty url disables pushing.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}

	if err := push.New(url, job).Gatherer(Registry).PushContext(ctx); err != nil {
		return err
	}

	log.Debug().Str("Pushgateway", url).Str("Job", job).Msg("pushed metrics")
	return nil
}
