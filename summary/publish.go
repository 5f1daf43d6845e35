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
package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/nsedata/cache"
	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/metrics"
	"github.com/rs/zerolog/log"
)

const (
	CacheKey = "financialSummary"
	CacheTTL = time.Hour
)

// Store persists one financial summary per calendar day
type Store interface {
	SaveSummary(ctx context.Context, summary *data.FinancialSummary) error
	LatestSummary(ctx context.Context) (*data.FinancialSummary, error)
}

// Publisher stores summaries and mirrors the latest one into the cache
type Publisher struct {
	store Store
	cache cache.Cache
	now   func() time.Time
}

func NewPublisher(store Store, c cache.Cache) *Publisher {
	return &Publisher{
		store: store,
		cache: c,
		now:   time.Now,
	}
}

// WithClock replaces the time source used to date summaries
func (publisher *Publisher) WithClock(now func() time.Time) *Publisher {
	publisher.now = now
	return publisher
}

// Publish upserts summaryData as today's summary and caches it for an hour.
// Publishing twice on the same day keeps only the later summary. Non-finite
// values are stored as absent.
func (publisher *Publisher) Publish(ctx context.Context, summaryData *data.SummaryData) error {
	summaryData, _ = data.Sanitize(summaryData).(*data.SummaryData)
	if summaryData == nil {
		return fmt.Errorf("%w: summary without data", data.ErrInvalidRow)
	}

	now := publisher.now()
	row := &data.FinancialSummary{
		Date: data.Day(now),
		Data: summaryData,
	}

	if err := publisher.store.SaveSummary(ctx, row); err != nil {
		return fmt.Errorf("save financial summary: %w", err)
	}

	if err := publisher.mirror(ctx, summaryData); err != nil {
		return err
	}

	metrics.SummaryPublished.Set(float64(now.Unix()))
	log.Info().Time("Date", row.Date).Int("NumStocks", summaryData.NumStocks).Msg("published financial summary")
	return nil
}

// Latest returns the cached summary, falling back to the most recently
// stored one. A summary read from the store is cached again.
func (publisher *Publisher) Latest(ctx context.Context) (*data.SummaryData, error) {
	val, ok, err := publisher.cache.Get(ctx, CacheKey)
	if err != nil {
		log.Warn().Err(err).Msg("could not read cached financial summary")
	}

	if ok {
		summaryData := &data.SummaryData{}
		err := json.Unmarshal([]byte(val), summaryData)
		if err == nil {
			return summaryData, nil
		}
		log.Warn().Err(err).Msg("discarding undecodable cached financial summary")
	}

	latest, err := publisher.store.LatestSummary(ctx)
	if err != nil {
		if errors.Is(err, data.ErrNoSummary) {
			return nil, err
		}
		return nil, fmt.Errorf("load financial summary: %w", err)
	}

	if err := publisher.mirror(ctx, latest.Data); err != nil {
		log.Warn().Err(err).Msg("could not cache financial summary")
	}

	return latest.Data, nil
}

func (publisher *Publisher) mirror(ctx context.Context, summaryData *data.SummaryData) error {
	encoded, err := json.Marshal(data.Sanitize(summaryData))
	if err != nil {
		return fmt.Errorf("encode financial summary: %w", err)
	}

	if err := publisher.cache.Set(ctx, CacheKey, string(encoded), CacheTTL); err != nil {
		return fmt.Errorf("cache financial summary: %w", err)
	}

	return nil
}
