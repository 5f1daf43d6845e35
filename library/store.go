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
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/penny-vault/nsedata/data"
	"github.com/rs/zerolog/log"
)

// UpsertStock returns the id of ticker, creating the stock the first time it
// is seen. Existing stocks are never modified.
func (myLibrary *Library) UpsertStock(ctx context.Context, ticker string) (int64, error) {
	if ticker == "" {
		return 0, fmt.Errorf("%w: empty ticker", data.ErrInvalidRow)
	}

	var stockID int64
	err := myLibrary.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO stock ("ticker") VALUES ($1)
	ON CONFLICT ON CONSTRAINT stock_ticker_key DO NOTHING
	RETURNING id`, ticker).Scan(&stockID)
		if errors.Is(err, pgx.ErrNoRows) {
			return tx.QueryRow(ctx, `SELECT id FROM stock WHERE ticker = $1`, ticker).Scan(&stockID)
		}
		return err
	})

	return stockID, err
}

// LastBarDate returns the date of the most recent bar stored for the stock
func (myLibrary *Library) LastBarDate(ctx context.Context, stockID int64) (time.Time, bool, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	defer conn.Release()

	var last *time.Time
	if err := conn.QueryRow(ctx, `SELECT max(date) FROM stock_data WHERE stock_id = $1`, stockID).Scan(&last); err != nil {
		return time.Time{}, false, err
	}

	if last == nil {
		return time.Time{}, false, nil
	}

	return *last, true, nil
}

// SaveBars upserts every bar in a single transaction. Any failure rolls back
// the whole batch.
func (myLibrary *Library) SaveBars(ctx context.Context, stockID int64, bars []*data.Bar) error {
	for _, bar := range bars {
		if bar.Date.IsZero() {
			return fmt.Errorf("%w: bar without a date", data.ErrInvalidRow)
		}
		if !bar.Finite() {
			return fmt.Errorf("%w: non-finite bar value on %s", data.ErrInvalidRow, bar.Date.Format("2006-01-02"))
		}
	}

	sql := `INSERT INTO stock_data (
		"stock_id",
		"date",
		"open",
		"high",
		"low",
		"close",
		"volume",
		"dividends",
		"stock_splits"
	) VALUES (
		$1,
		$2,
		$3,
		$4,
		$5,
		$6,
		$7,
		$8,
		$9
	) ON CONFLICT ON CONSTRAINT stock_data_stock_id_date_key
	DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		dividends = EXCLUDED.dividends,
		stock_splits = EXCLUDED.stock_splits,
		updated_at = now();`

	return myLibrary.withTx(ctx, func(tx pgx.Tx) error {
		for _, bar := range bars {
			_, err := tx.Exec(ctx, sql, stockID, data.Day(bar.Date), bar.Open, bar.High, bar.Low,
				bar.Close, bar.Volume, bar.Dividends, bar.SplitRatio)
			if err != nil {
				log.Error().Err(err).Object("Bar", bar).Msg("error saving bar to database")
				return err
			}
		}
		return nil
	})
}

// SaveFundamentals upserts a single fundamentals row in its own transaction
func (myLibrary *Library) SaveFundamentals(ctx context.Context, fundamentals *data.Fundamentals) error {
	if fundamentals.Date.IsZero() {
		return fmt.Errorf("%w: fundamentals without a date", data.ErrInvalidRow)
	}

	row := *fundamentals
	row.Sanitize()

	sql := `INSERT INTO fundamentals (
		"stock_id",
		"date",
		"market_cap",
		"enterprise_value",
		"trailing_pe",
		"forward_pe",
		"peg_ratio",
		"price_to_book",
		"dividend_yield"
	) VALUES (
		$1,
		$2,
		$3,
		$4,
		$5,
		$6,
		$7,
		$8,
		$9
	) ON CONFLICT ON CONSTRAINT fundamentals_stock_id_date_key
	DO UPDATE SET
		market_cap = EXCLUDED.market_cap,
		enterprise_value = EXCLUDED.enterprise_value,
		trailing_pe = EXCLUDED.trailing_pe,
		forward_pe = EXCLUDED.forward_pe,
		peg_ratio = EXCLUDED.peg_ratio,
		price_to_book = EXCLUDED.price_to_book,
		dividend_yield = EXCLUDED.dividend_yield,
		updated_at = now();`

	return myLibrary.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sql, row.StockID, data.Day(row.Date), row.MarketCap, row.EnterpriseValue,
			row.TrailingPE, row.ForwardPE, row.PEGRatio, row.PriceToBook, row.DividendYield)
		return err
	})
}

// SaveStatement upserts a single statement column in its own transaction
func (myLibrary *Library) SaveStatement(ctx context.Context, statement *data.FinancialStatement) error {
	if statement.Date.IsZero() || !statement.StatementType.Valid() {
		return fmt.Errorf("%w: statement without a date or type", data.ErrInvalidRow)
	}

	items := statement.Data.Sanitized()
	if items == nil {
		items = data.LineItems{}
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return err
	}

	sql := `INSERT INTO financials (
		"stock_id",
		"date",
		"statement_type",
		"data"
	) VALUES (
		$1,
		$2,
		$3,
		$4::jsonb
	) ON CONFLICT ON CONSTRAINT financials_stock_id_date_statement_type_key
	DO UPDATE SET
		data = EXCLUDED.data,
		updated_at = now();`

	return myLibrary.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sql, statement.StockID, data.Day(statement.Date),
			string(statement.StatementType), string(encoded))
		return err
	})
}

// Stocks returns every stock ordered by id
func (myLibrary *Library) Stocks(ctx context.Context) ([]*data.Stock, error) {
	var stocks []*data.Stock
	err := pgxscan.Select(ctx, myLibrary.Pool, &stocks,
		`SELECT id, ticker, created_at, updated_at FROM stock ORDER BY id`)
	return stocks, err
}

type statementRow struct {
	StockID       int64     `db:"stock_id"`
	Date          time.Time `db:"date"`
	StatementType string    `db:"statement_type"`
	Data          []byte    `db:"data"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Financials returns every stored statement ordered by stock, date and type
func (myLibrary *Library) Financials(ctx context.Context) ([]*data.FinancialStatement, error) {
	var rows []*statementRow
	err := pgxscan.Select(ctx, myLibrary.Pool, &rows,
		`SELECT stock_id, date, statement_type, data, created_at, updated_at
FROM financials ORDER BY stock_id, date, statement_type`)
	if err != nil {
		return nil, err
	}

	statements := make([]*data.FinancialStatement, 0, len(rows))
	for _, row := range rows {
		items := make(data.LineItems)
		if err := json.Unmarshal(row.Data, &items); err != nil {
			log.Error().Err(err).Int64("StockID", row.StockID).Time("Date", row.Date).Msg("could not decode statement line items")
			return nil, err
		}

		statements = append(statements, &data.FinancialStatement{
			StockID:       row.StockID,
			Date:          row.Date,
			StatementType: data.StatementType(row.StatementType),
			Data:          items.Sanitized(),
			CreatedAt:     row.CreatedAt,
			UpdatedAt:     row.UpdatedAt,
		})
	}

	return statements, nil
}

// Fundamentals returns the valuation columns of every stored fundamentals row
func (myLibrary *Library) Fundamentals(ctx context.Context) ([]*data.FundamentalsRow, error) {
	var rows []*data.FundamentalsRow
	err := pgxscan.Select(ctx, myLibrary.Pool, &rows,
		`SELECT stock_id, date, market_cap, trailing_pe, price_to_book
FROM fundamentals ORDER BY stock_id, date`)
	return rows, err
}

// SaveSummary upserts the summary for its calendar day
func (myLibrary *Library) SaveSummary(ctx context.Context, summary *data.FinancialSummary) error {
	if summary.Date.IsZero() || summary.Data == nil {
		return fmt.Errorf("%w: summary without a date or data", data.ErrInvalidRow)
	}

	encoded, err := json.Marshal(data.Sanitize(summary.Data))
	if err != nil {
		return err
	}

	return myLibrary.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO financial_summary ("date", "data") VALUES ($1, $2::jsonb)
	ON CONFLICT ON CONSTRAINT financial_summary_date_key
	DO UPDATE SET
		data = EXCLUDED.data,
		updated_at = now();`, data.Day(summary.Date), string(encoded))
		return err
	})
}

// LatestSummary returns the most recently dated summary
func (myLibrary *Library) LatestSummary(ctx context.Context) (*data.FinancialSummary, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	summary := &data.FinancialSummary{}
	var raw []byte
	err = conn.QueryRow(ctx, `SELECT date, data, created_at, updated_at FROM financial_summary
ORDER BY date DESC LIMIT 1`).Scan(&summary.Date, &raw, &summary.CreatedAt, &summary.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNoSummary
	}

	if err != nil {
		return nil, err
	}

	summary.Data = &data.SummaryData{}
	if err := json.Unmarshal(raw, summary.Data); err != nil {
		return nil, err
	}

	return summary, nil
}
