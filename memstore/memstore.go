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
package memstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/penny-vault/nsedata/data"
)

// Store keeps every table in process memory. It implements the same upsert
// semantics as the PostgreSQL library: rows are matched on their natural key,
// inserted when absent and fully overwritten otherwise.
type Store struct {
	locker sync.Mutex
	now    func() time.Time

	nextID       int64
	stocks       map[string]*data.Stock
	bars         map[data.BarKey]*data.Bar
	fundamentals map[data.BarKey]*data.Fundamentals
	statements   map[data.FinancialStatementKey]*data.FinancialStatement
	summaries    map[time.Time]*data.FinancialSummary
}

func New() *Store {
	return &Store{
		now:          time.Now,
		nextID:       1,
		stocks:       make(map[string]*data.Stock),
		bars:         make(map[data.BarKey]*data.Bar),
		fundamentals: make(map[data.BarKey]*data.Fundamentals),
		statements:   make(map[data.FinancialStatementKey]*data.FinancialStatement),
		summaries:    make(map[time.Time]*data.FinancialSummary),
	}
}

// WithClock replaces the time source used for created/updated timestamps
func (store *Store) WithClock(now func() time.Time) *Store {
	store.now = now
	return store
}

func (store *Store) UpsertStock(ctx context.Context, ticker string) (int64, error) {
	if ticker == "" {
		return 0, fmt.Errorf("%w: empty ticker", data.ErrInvalidRow)
	}

	store.locker.Lock()
	defer store.locker.Unlock()

	if stock, ok := store.stocks[ticker]; ok {
		return stock.ID, nil
	}

	now := store.now()
	stock := &data.Stock{
		ID:        store.nextID,
		Ticker:    ticker,
		CreatedAt: now,
		UpdatedAt: now,
	}
	store.nextID++
	store.stocks[ticker] = stock

	return stock.ID, nil
}

func (store *Store) LastBarDate(ctx context.Context, stockID int64) (time.Time, bool, error) {
	store.locker.Lock()
	defer store.locker.Unlock()

	var last time.Time
	found := false
	for key := range store.bars {
		if key.StockID == stockID && (!found || key.Date.After(last)) {
			last = key.Date
			found = true
		}
	}

	return last, found, nil
}

// SaveBars upserts the batch atomically: an invalid row rejects the whole
// batch and leaves the store unchanged
func (store *Store) SaveBars(ctx context.Context, stockID int64, bars []*data.Bar) error {
	for _, bar := range bars {
		if bar.Date.IsZero() {
			return fmt.Errorf("%w: bar without a date", data.ErrInvalidRow)
		}
		if !bar.Finite() {
			return fmt.Errorf("%w: non-finite bar value on %s", data.ErrInvalidRow, bar.Date.Format("2006-01-02"))
		}
	}

	store.locker.Lock()
	defer store.locker.Unlock()

	now := store.now()
	for _, bar := range bars {
		row := *bar
		row.StockID = stockID
		row.Date = data.Day(bar.Date)
		row.CreatedAt = now
		row.UpdatedAt = now

		if existing, ok := store.bars[row.Key()]; ok {
			row.CreatedAt = existing.CreatedAt
		}

		store.bars[row.Key()] = &row
	}

	return nil
}

func (store *Store) SaveFundamentals(ctx context.Context, fundamentals *data.Fundamentals) error {
	if fundamentals.Date.IsZero() {
		return fmt.Errorf("%w: fundamentals without a date", data.ErrInvalidRow)
	}

	store.locker.Lock()
	defer store.locker.Unlock()

	now := store.now()
	row := *fundamentals
	row.Date = data.Day(fundamentals.Date)
	row.Sanitize()
	row.CreatedAt = now
	row.UpdatedAt = now

	if existing, ok := store.fundamentals[row.Key()]; ok {
		row.CreatedAt = existing.CreatedAt
	}

	store.fundamentals[row.Key()] = &row
	return nil
}

func (store *Store) SaveStatement(ctx context.Context, statement *data.FinancialStatement) error {
	if statement.Date.IsZero() || !statement.StatementType.Valid() {
		return fmt.Errorf("%w: statement without a date or type", data.ErrInvalidRow)
	}

	store.locker.Lock()
	defer store.locker.Unlock()

	now := store.now()
	row := *statement
	row.Date = data.Day(statement.Date)
	row.Data = statement.Data.Sanitized()
	row.CreatedAt = now
	row.UpdatedAt = now

	if existing, ok := store.statements[row.Key()]; ok {
		row.CreatedAt = existing.CreatedAt
	}

	store.statements[row.Key()] = &row
	return nil
}

// Stocks returns every stock ordered by id
func (store *Store) Stocks(ctx context.Context) ([]*data.Stock, error) {
	store.locker.Lock()
	defer store.locker.Unlock()

	stocks := make([]*data.Stock, 0, len(store.stocks))
	for _, stock := range store.stocks {
		cp := *stock
		stocks = append(stocks, &cp)
	}

	sort.Slice(stocks, func(i, j int) bool {
		return stocks[i].ID < stocks[j].ID
	})

	return stocks, nil
}

// Financials returns every statement ordered by stock, date and type
func (store *Store) Financials(ctx context.Context) ([]*data.FinancialStatement, error) {
	store.locker.Lock()
	defer store.locker.Unlock()

	statements := make([]*data.FinancialStatement, 0, len(store.statements))
	for _, statement := range store.statements {
		cp := *statement
		cp.Data = maps.Clone(statement.Data)
		statements = append(statements, &cp)
	}

	sort.Slice(statements, func(i, j int) bool {
		a, b := statements[i], statements[j]
		if a.StockID != b.StockID {
			return a.StockID < b.StockID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.StatementType < b.StatementType
	})

	return statements, nil
}

// Fundamentals returns the valuation columns of every fundamentals row
// ordered by stock and date
func (store *Store) Fundamentals(ctx context.Context) ([]*data.FundamentalsRow, error) {
	store.locker.Lock()
	defer store.locker.Unlock()

	rows := make([]*data.FundamentalsRow, 0, len(store.fundamentals))
	for _, fundamentals := range store.fundamentals {
		rows = append(rows, &data.FundamentalsRow{
			StockID:     fundamentals.StockID,
			Date:        fundamentals.Date,
			MarketCap:   fundamentals.MarketCap,
			TrailingPE:  fundamentals.TrailingPE,
			PriceToBook: fundamentals.PriceToBook,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StockID != rows[j].StockID {
			return rows[i].StockID < rows[j].StockID
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	return rows, nil
}

func (store *Store) SaveSummary(ctx context.Context, summary *data.FinancialSummary) error {
	if summary.Date.IsZero() || summary.Data == nil {
		return fmt.Errorf("%w: summary without a date or data", data.ErrInvalidRow)
	}

	store.locker.Lock()
	defer store.locker.Unlock()

	now := store.now()
	row := *summary
	row.Date = data.Day(summary.Date)
	row.CreatedAt = now
	row.UpdatedAt = now

	if existing, ok := store.summaries[row.Date]; ok {
		row.CreatedAt = existing.CreatedAt
	}

	store.summaries[row.Date] = &row
	return nil
}

func (store *Store) LatestSummary(ctx context.Context) (*data.FinancialSummary, error) {
	store.locker.Lock()
	defer store.locker.Unlock()

	var latest *data.FinancialSummary
	for date, summary := range store.summaries {
		if latest == nil || date.After(latest.Date) {
			latest = summary
		}
	}

	if latest == nil {
		return nil, data.ErrNoSummary
	}

	cp := *latest
	return &cp, nil
}

// Inspection helpers

func (store *Store) Bar(stockID int64, date time.Time) (*data.Bar, bool) {
	store.locker.Lock()
	defer store.locker.Unlock()

	bar, ok := store.bars[data.BarKey{StockID: stockID, Date: data.Day(date)}]
	if !ok {
		return nil, false
	}

	cp := *bar
	return &cp, true
}

func (store *Store) Statement(stockID int64, date time.Time, statementType data.StatementType) (*data.FinancialStatement, bool) {
	store.locker.Lock()
	defer store.locker.Unlock()

	statement, ok := store.statements[data.FinancialStatementKey{StockID: stockID, Date: data.Day(date), StatementType: statementType}]
	if !ok {
		return nil, false
	}

	cp := *statement
	cp.Data = maps.Clone(statement.Data)
	return &cp, true
}

func (store *Store) FundamentalsFor(stockID int64, date time.Time) (*data.Fundamentals, bool) {
	store.locker.Lock()
	defer store.locker.Unlock()

	fundamentals, ok := store.fundamentals[data.BarKey{StockID: stockID, Date: data.Day(date)}]
	if !ok {
		return nil, false
	}

	cp := *fundamentals
	return &cp, true
}

// Counts returns the number of stocks, bars, fundamentals and statements
func (store *Store) Counts() (stocks, bars, fundamentals, statements int) {
	store.locker.Lock()
	defer store.locker.Unlock()

	return len(store.stocks), len(store.bars), len(store.fundamentals), len(store.statements)
}
