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
	"time"

	"github.com/guregu/null/v6"
	"github.com/penny-vault/nsedata/data"
)

// MarketData is a source of daily bars, valuation snapshots and financial
// statements for a ticker. Implementations map the ticker to their own symbol
// convention.
type MarketData interface {
	Name() string

	// History returns daily bars for the window named by period. An empty
	// result with a nil error means the provider has no data for the window.
	History(ctx context.Context, ticker string, period Period) ([]*data.Bar, error)

	// Info returns the provider's current valuation snapshot
	Info(ctx context.Context, ticker string) (*Info, error)

	// Statements returns one column per reporting date of the statement table
	Statements(ctx context.Context, ticker string, statementType data.StatementType) ([]*StatementColumn, error)
}

// Info is a point-in-time valuation snapshot
type Info struct {
	MarketCap       null.Float
	EnterpriseValue null.Float
	TrailingPE      null.Float
	ForwardPE       null.Float
	PEGRatio        null.Float
	PriceToBook     null.Float
	DividendYield   null.Float
}

// Fundamentals stamps the snapshot against a stock and date
func (info *Info) Fundamentals(stockID int64, date time.Time) *data.Fundamentals {
	fundamentals := &data.Fundamentals{
		StockID:       stockID,
		Date:          data.Day(date),
		TrailingPE:    info.TrailingPE,
		ForwardPE:     info.ForwardPE,
		PEGRatio:      info.PEGRatio,
		PriceToBook:   info.PriceToBook,
		DividendYield: info.DividendYield,
	}

	if info.MarketCap.Valid {
		fundamentals.MarketCap = data.FloatToInt(info.MarketCap.Float64)
	}

	if info.EnterpriseValue.Valid {
		fundamentals.EnterpriseValue = data.FloatToInt(info.EnterpriseValue.Float64)
	}

	fundamentals.Sanitize()
	return fundamentals
}

// StatementColumn holds the line items reported for a single period end
type StatementColumn struct {
	Date  time.Time
	Items data.LineItems
}

// Statement converts the column into a sanitized statement row
func (column *StatementColumn) Statement(stockID int64, statementType data.StatementType) *data.FinancialStatement {
	return &data.FinancialStatement{
		StockID:       stockID,
		Date:          data.Day(column.Date),
		StatementType: statementType,
		Data:          column.Items.Sanitized(),
	}
}
