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
package ingest_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/guregu/null/v6"

	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/memstore"
	"github.com/penny-vault/nsedata/provider"
)

var errProvider = errors.New("provider unavailable")

type fakeMarketData struct {
	locker sync.Mutex

	bars       map[string][]*data.Bar
	statements map[data.StatementType][]*provider.StatementColumn
	infoErr    error
	stmtErr    error

	historyCalls   map[string][]provider.Period
	infoCalls      map[string]int
	statementCalls map[string]int
}

func newFakeMarketData() *fakeMarketData {
	return &fakeMarketData{
		bars:           map[string][]*data.Bar{},
		statements:     map[data.StatementType][]*provider.StatementColumn{},
		historyCalls:   map[string][]provider.Period{},
		infoCalls:      map[string]int{},
		statementCalls: map[string]int{},
	}
}

func (md *fakeMarketData) Name() string { return "fake" }

func (md *fakeMarketData) History(_ context.Context, ticker string, period provider.Period) ([]*data.Bar, error) {
	md.locker.Lock()
	defer md.locker.Unlock()
	md.historyCalls[ticker] = append(md.historyCalls[ticker], period)
	return md.bars[ticker], nil
}

func (md *fakeMarketData) Info(_ context.Context, ticker string) (*provider.Info, error) {
	md.locker.Lock()
	defer md.locker.Unlock()
	md.infoCalls[ticker]++
	if md.infoErr != nil {
		return nil, md.infoErr
	}
	return &provider.Info{
		MarketCap:  null.FloatFrom(1e11),
		TrailingPE: null.FloatFrom(math.Inf(1)),
	}, nil
}

func (md *fakeMarketData) Statements(_ context.Context, ticker string, statementType data.StatementType) ([]*provider.StatementColumn, error) {
	md.locker.Lock()
	defer md.locker.Unlock()
	md.statementCalls[ticker]++
	if md.stmtErr != nil {
		return nil, md.stmtErr
	}
	return md.statements[statementType], nil
}

func (md *fakeMarketData) calls(ticker string) int {
	md.locker.Lock()
	defer md.locker.Unlock()
	return len(md.historyCalls[ticker]) + md.infoCalls[ticker] + md.statementCalls[ticker]
}

// countingStore wraps the in-memory store and counts writes per method
type countingStore struct {
	*memstore.Store
	writes  int
	failBar bool
}

func (store *countingStore) UpsertStock(ctx context.Context, ticker string) (int64, error) {
	store.writes++
	return store.Store.UpsertStock(ctx, ticker)
}

func (store *countingStore) SaveBars(ctx context.Context, stockID int64, bars []*data.Bar) error {
	store.writes++
	if store.failBar {
		return errors.New("bar write failed")
	}
	return store.Store.SaveBars(ctx, stockID, bars)
}

func (store *countingStore) SaveFundamentals(ctx context.Context, fundamentals *data.Fundamentals) error {
	store.writes++
	return store.Store.SaveFundamentals(ctx, fundamentals)
}

func (store *countingStore) SaveStatement(ctx context.Context, statement *data.FinancialStatement) error {
	store.writes++
	return store.Store.SaveStatement(ctx, statement)
}

// brokenCache fails every read
type brokenCache struct {
	sets map[string]string
}

func (c *brokenCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache unavailable")
}

func (c *brokenCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.sets[key] = value
	return nil
}

func (c *brokenCache) Delete(context.Context, string) error { return nil }

func dailyBars(start time.Time, n int) []*data.Bar {
	bars := make([]*data.Bar, n)
	for idx := range bars {
		bars[idx] = &data.Bar{
			Date:   start.AddDate(0, 0, idx),
			Open:   100 + float64(idx),
			High:   101 + float64(idx),
			Low:    99 + float64(idx),
			Close:  100.5 + float64(idx),
			Volume: 1000,
		}
	}
	return bars
}
