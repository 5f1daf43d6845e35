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
package provider

import (
	"context"

	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/metrics"
	"github.com/rs/zerolog"
)

// HistoryFetcher requests bars for progressively wider windows until the
// provider returns data
type HistoryFetcher struct {
	MarketData MarketData
}

func NewHistoryFetcher(md MarketData) *HistoryFetcher {
	return &HistoryFetcher{MarketData: md}
}

// Fetch walks the period ladder starting at start and returns the first
// non-empty result. Provider errors are logged and treated as an empty
// window. When every window is empty, or ctx is done, an empty slice is
// returned. Fetch never fails.
func (fetcher *HistoryFetcher) Fetch(ctx context.Context, ticker string, start Period) []*data.Bar {
	logger := zerolog.Ctx(ctx).With().Str("Ticker", ticker).Logger()

	startIdx, err := start.Index()
	if err != nil {
		logger.Warn().Err(err).Msg("unknown start period, walking the full ladder")
		startIdx = 0
	}

	for _, period := range Ladder()[startIdx:] {
		if ctx.Err() != nil {
			metrics.FetchAttempts.WithLabelValues(period.String(), "cancelled").Inc()
			logger.Warn().Err(ctx.Err()).Str("Period", period.String()).Msg("history fetch cancelled")
			return []*data.Bar{}
		}

		bars, err := fetcher.MarketData.History(ctx, ticker, period)
		if err != nil {
			metrics.FetchAttempts.WithLabelValues(period.String(), "error").Inc()
			logger.Error().Err(err).Str("Period", period.String()).Msg("history request failed, escalating to a wider window")
			continue
		}

		if len(bars) == 0 {
			metrics.FetchAttempts.WithLabelValues(period.String(), "empty").Inc()
			logger.Debug().Str("Period", period.String()).Msg("no bars returned, escalating to a wider window")
			continue
		}

		metrics.FetchAttempts.WithLabelValues(period.String(), "bars").Inc()
		logger.Debug().Str("Period", period.String()).Int("NumBars", len(bars)).Msg("fetched history")
		return bars
	}

	logger.Warn().Msg("no history available for any window")
	return []*data.Bar{}
}
