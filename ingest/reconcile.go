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
	"time"

	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/metrics"
	"github.com/penny-vault/nsedata/provider"
	"github.com/rs/zerolog"
)

// Store persists ingested rows. Every save is an upsert on the row's natural
// key: absent rows are inserted, present rows have all non-key fields
// overwritten. A failed save leaves the unit of work (bar batch, fundamentals
// row or statement) unapplied.
type Store interface {
	// UpsertStock returns the id of ticker, creating the stock on first use
	UpsertStock(ctx context.Context, ticker string) (int64, error)

	// LastBarDate returns the date of the most recent stored bar. The second
	// return value is false when the stock has no bars.
	LastBarDate(ctx context.Context, stockID int64) (time.Time, bool, error)

	// SaveBars upserts the batch in a single transaction
	SaveBars(ctx context.Context, stockID int64, bars []*data.Bar) error

	SaveFundamentals(ctx context.Context, fundamentals *data.Fundamentals) error
	SaveStatement(ctx context.Context, statement *data.FinancialStatement) error
}

// Reconciler converts provider results into keyed rows and writes them to the
// store
type Reconciler struct {
	Store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{Store: store}
}

// SaveBars assigns stockID to every bar and upserts the batch
func (reconciler *Reconciler) SaveBars(ctx context.Context, stockID int64, bars []*data.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	rows := make([]*data.Bar, len(bars))
	for idx, bar := range bars {
		row := *bar
		row.StockID = stockID
		row.Date = data.Day(bar.Date)
		rows[idx] = &row
	}

	if err := reconciler.Store.SaveBars(ctx, stockID, rows); err != nil {
		return 0, err
	}

	metrics.RowsUpserted.WithLabelValues("stock_data").Add(float64(len(rows)))
	return len(rows), nil
}

// SaveFundamentals stamps the info snapshot against the date of every bar and
// upserts one row per date. The snapshot describes the stock as of today, so
// historical dates receive current valuations.
func (reconciler *Reconciler) SaveFundamentals(ctx context.Context, stockID int64, info *provider.Info, bars []*data.Bar) (int, error) {
	if info == nil {
		return 0, nil
	}

	count := 0
	for _, bar := range bars {
		fundamentals := info.Fundamentals(stockID, bar.Date)
		if err := reconciler.Store.SaveFundamentals(ctx, fundamentals); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Object("Fundamentals", fundamentals).Msg("could not save fundamentals")
			return count, err
		}
		count++
	}

	metrics.RowsUpserted.WithLabelValues("fundamentals").Add(float64(count))
	return count, nil
}

// SaveStatements upserts one row per reporting date of the statement table.
// Line items are sanitized before they are written.
func (reconciler *Reconciler) SaveStatements(ctx context.Context, stockID int64, statementType data.StatementType, columns []*provider.StatementColumn) (int, error) {
	count := 0
	for _, column := range columns {
		if column == nil || column.Date.IsZero() {
			continue
		}

		statement := column.Statement(stockID, statementType)
		if err := reconciler.Store.SaveStatement(ctx, statement); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Object("Statement", statement).Msg("could not save financial statement")
			return count, err
		}
		count++
	}

	metrics.RowsUpserted.WithLabelValues("financials").Add(float64(count))
	return count, nil
}
