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
package data

import (
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
)

// Fundamentals holds the valuation ratios reported for a stock. The provider
// only exposes a current snapshot so the same values are recorded against
// every bar date in a fetch window.
type Fundamentals struct {
	StockID         int64      `db:"stock_id" json:"stock_id"`
	Date            time.Time  `db:"date" json:"date"`
	MarketCap       null.Int   `db:"market_cap" json:"market_cap"`
	EnterpriseValue null.Int   `db:"enterprise_value" json:"enterprise_value"`
	TrailingPE      null.Float `db:"trailing_pe" json:"trailing_pe"`
	ForwardPE       null.Float `db:"forward_pe" json:"forward_pe"`
	PEGRatio        null.Float `db:"peg_ratio" json:"peg_ratio"`
	PriceToBook     null.Float `db:"price_to_book" json:"price_to_book"`
	DividendYield   null.Float `db:"dividend_yield" json:"dividend_yield"`

	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

func (fundamentals *Fundamentals) Key() BarKey {
	return BarKey{StockID: fundamentals.StockID, Date: Day(fundamentals.Date)}
}

// Sanitize replaces non-finite ratios with the absent marker
func (fundamentals *Fundamentals) Sanitize() {
	fundamentals.TrailingPE = SanitizeNull(fundamentals.TrailingPE)
	fundamentals.ForwardPE = SanitizeNull(fundamentals.ForwardPE)
	fundamentals.PEGRatio = SanitizeNull(fundamentals.PEGRatio)
	fundamentals.PriceToBook = SanitizeNull(fundamentals.PriceToBook)
	fundamentals.DividendYield = SanitizeNull(fundamentals.DividendYield)
}

func (fundamentals *Fundamentals) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("StockID", fundamentals.StockID)
	e.Time("Date", fundamentals.Date)
}

// FundamentalsRow is the projection of a fundamentals record that is
// published alongside the financial summary
type FundamentalsRow struct {
	StockID     int64      `db:"stock_id" json:"stock_id"`
	Date        time.Time  `db:"date" json:"date"`
	MarketCap   null.Int   `db:"market_cap" json:"market_cap"`
	TrailingPE  null.Float `db:"trailing_pe" json:"trailing_pe"`
	PriceToBook null.Float `db:"price_to_book" json:"price_to_book"`
}

func (row *FundamentalsRow) Sanitize() {
	row.TrailingPE = SanitizeNull(row.TrailingPE)
	row.PriceToBook = SanitizeNull(row.PriceToBook)
}
