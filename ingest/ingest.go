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
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/penny-vault/nsedata/cache"
	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/metrics"
	"github.com/penny-vault/nsedata/provider"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLastDate is used as the last stored bar date of a stock without bars
var DefaultLastDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// TickerResult describes what was written for a single ticker
type TickerResult struct {
	Ticker          string
	StockID         int64
	Skipped         bool
	Period          provider.Period
	NumBars         int
	NumFundamentals int
	NumStatements   int
}

func (result *TickerResult) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", result.Ticker)
	e.Int64("StockID", result.StockID)
	e.Bool("Skipped", result.Skipped)
	e.Str("Period", result.Period.String())
	e.Int("NumBars", result.NumBars)
	e.Int("NumFundamentals", result.NumFundamentals)
	e.Int("NumStatements", result.NumStatements)
}

// Ingestor synchronizes tickers from a market data provider into a store
type Ingestor struct {
	marketData provider.MarketData
	fetcher    *provider.HistoryFetcher
	reconciler *Reconciler
	skip       *SkipSet
	now        func() time.Time
}

type Option func(*Ingestor)

// WithClock replaces the time source used to measure staleness
func WithClock(now func() time.Time) Option {
	return func(ingestor *Ingestor) {
		ingestor.now = now
	}
}

func New(md provider.MarketData, store Store, c cache.Cache, opts ...Option) *Ingestor {
	ingestor := &Ingestor{
		marketData: md,
		fetcher:    provider.NewHistoryFetcher(md),
		reconciler: NewReconciler(store),
		skip:       NewSkipSet(c),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(ingestor)
	}

	return ingestor
}

// Run ingests tickers one at a time. A failed ticker is logged, recorded in
// the summary and left unmarked so the next run retries it; the remaining
// tickers are still processed. Run only returns an error when ctx is done.
func (ingestor *Ingestor) Run(ctx context.Context, tickers []string) (*data.RunSummary, error) {
	summary := data.NewRunSummary(ingestor.now())
	defer func() {
		summary.EndTime = ingestor.now()
	}()

	for _, ticker := range tickers {
		ticker = strings.TrimSpace(ticker)
		if ticker == "" {
			continue
		}

		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("NumTickers", summary.NumTickers).Msg("ingest interrupted")
			return summary, err
		}

		summary.NumTickers++

		logger := log.With().Str("Ticker", ticker).Str("RunID", summary.RunID.String()).Logger()
		tickerCtx := logger.WithContext(ctx)

		start := time.Now()
		result, err := ingestor.ProcessTicker(tickerCtx, ticker)
		metrics.TickerDuration.Observe(time.Since(start).Seconds())

		switch {
		case err != nil:
			summary.NumFailed++
			summary.Failed = append(summary.Failed, ticker)
			metrics.TickersProcessed.WithLabelValues("failed").Inc()
			logger.Error().Err(err).Msg("ticker failed, it will be retried on the next run")
		case result.Skipped:
			summary.NumSkipped++
			metrics.TickersProcessed.WithLabelValues("skipped").Inc()
			logger.Info().Msg("skipping already processed ticker")
		default:
			summary.NumProcessed++
			summary.NumBars += result.NumBars
			summary.NumStatements += result.NumStatements
			metrics.TickersProcessed.WithLabelValues("processed").Inc()
			logger.Info().Object("Result", result).Msg("processed ticker")
		}
	}

	return summary, nil
}

// ProcessTicker synchronizes a single ticker: bars for the stale window, a
// fundamentals row per fetched bar date and every statement table. The ticker
// is marked processed only when all writes succeed.
func (ingestor *Ingestor) ProcessTicker(ctx context.Context, ticker string) (*TickerResult, error) {
	logger := zerolog.Ctx(ctx)
	result := &TickerResult{Ticker: ticker}

	processed, _ := ingestor.skip.Processed(ctx, ticker)
	if processed {
		result.Skipped = true
		return result, nil
	}

	stockID, err := ingestor.reconciler.Store.UpsertStock(ctx, ticker)
	if err != nil {
		return result, fmt.Errorf("upsert stock: %w", err)
	}
	result.StockID = stockID

	lastDate, ok, err := ingestor.reconciler.Store.LastBarDate(ctx, stockID)
	if err != nil {
		return result, fmt.Errorf("read last bar date: %w", err)
	}

	if !ok {
		lastDate = DefaultLastDate
	}

	gap := data.DaysBetween(lastDate, ingestor.now())
	result.Period = provider.PeriodForGap(gap)
	logger.Debug().Time("LastDate", lastDate).Int("DaysGap", gap).Str("Period", result.Period.String()).Msg("resolved history window")

	bars := ingestor.fetcher.Fetch(ctx, ticker, result.Period)
	if result.NumBars, err = ingestor.reconciler.SaveBars(ctx, stockID, bars); err != nil {
		return result, fmt.Errorf("save bars: %w", err)
	}

	info, err := ingestor.marketData.Info(ctx, ticker)
	if err != nil {
		return result, fmt.Errorf("fetch info: %w", err)
	}

	if result.NumFundamentals, err = ingestor.reconciler.SaveFundamentals(ctx, stockID, info, bars); err != nil {
		return result, fmt.Errorf("save fundamentals: %w", err)
	}

	for _, statementType := range data.StatementTypes {
		columns, err := ingestor.marketData.Statements(ctx, ticker, statementType)
		if err != nil {
			return result, fmt.Errorf("fetch %s: %w", statementType, err)
		}

		count, err := ingestor.reconciler.SaveStatements(ctx, stockID, statementType, columns)
		result.NumStatements += count
		if err != nil {
			return result, fmt.Errorf("save %s: %w", statementType, err)
		}
	}

	// a cancelled fetch returns no bars; do not record the ticker as done
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if err := ingestor.skip.Mark(ctx, ticker); err != nil {
		return result, fmt.Errorf("mark processed: %w", err)
	}

	return result, nil
}

// Forget clears the processed marker of every ticker
func (ingestor *Ingestor) Forget(ctx context.Context, tickers ...string) error {
	return ingestor.skip.Forget(ctx, tickers...)
}
