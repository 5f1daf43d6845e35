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

// LineItems maps a statement line-item name (e.g. "Net Income") to its value.
// The key set differs from filing to filing; a missing key or an invalid value
// means the item was not reported, which is not the same as a reported zero.
type LineItems map[string]null.Float

// Value returns the numeric value of the named item, or 0 if it is absent
func (items LineItems) Value(name string) float64 {
	val, ok := items[name]
	if !ok || !val.Valid || !IsFinite(val.Float64) {
		return 0
	}
	return val.Float64
}

// Has reports whether the named item is present with a usable value
func (items LineItems) Has(name string) bool {
	val, ok := items[name]
	return ok && val.Valid && IsFinite(val.Float64)
}

// Sanitized returns a copy with non-finite values replaced by the absent marker
func (items LineItems) Sanitized() LineItems {
	if items == nil {
		return nil
	}

	out := make(LineItems, len(items))
	for k, v := range items {
		out[k] = SanitizeNull(v)
	}
	return out
}

// FinancialStatementKey is the natural key of a financial statement
type FinancialStatementKey struct {
	StockID       int64
	Date          time.Time
	StatementType StatementType
}

// FinancialStatement is one dated column of a balance sheet, income statement
// or cash flow statement
type FinancialStatement struct {
	StockID       int64         `db:"stock_id" json:"stock_id"`
	Date          time.Time     `db:"date" json:"date"`
	StatementType StatementType `db:"statement_type" json:"statement_type"`
	Data          LineItems     `db:"data" json:"data"`

	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

func (statement *FinancialStatement) Key() FinancialStatementKey {
	return FinancialStatementKey{
		StockID:       statement.StockID,
		Date:          Day(statement.Date),
		StatementType: statement.StatementType,
	}
}

func (statement *FinancialStatement) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("StockID", statement.StockID)
	e.Time("Date", statement.Date)
	e.Str("StatementType", string(statement.StatementType))
	e.Int("NumLineItems", len(statement.Data))
}
