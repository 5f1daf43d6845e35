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

	"github.com/rs/zerolog"
)

// Bar is a single trading-day observation for a stock
type Bar struct {
	StockID    int64     `db:"stock_id" json:"stock_id"`
	Date       time.Time `db:"date" json:"date"`
	Open       float64   `db:"open" json:"open"`
	High       float64   `db:"high" json:"high"`
	Low        float64   `db:"low" json:"low"`
	Close      float64   `db:"close" json:"close"`
	Volume     int64     `db:"volume" json:"volume"`
	Dividends  float64   `db:"dividends" json:"dividends"`
	SplitRatio float64   `db:"stock_splits" json:"stock_splits"`

	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// BarKey is the natural key of a bar
type BarKey struct {
	StockID int64
	Date    time.Time
}

func (bar *Bar) Key() BarKey {
	return BarKey{StockID: bar.StockID, Date: Day(bar.Date)}
}

// Finite reports whether every price field holds a finite number
func (bar *Bar) Finite() bool {
	return IsFinite(bar.Open) && IsFinite(bar.High) && IsFinite(bar.Low) &&
		IsFinite(bar.Close) && IsFinite(bar.Dividends) && IsFinite(bar.SplitRatio)
}

func (bar *Bar) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("StockID", bar.StockID)
	e.Time("Date", bar.Date)
	e.Float64("Close", bar.Close)
	e.Int64("Volume", bar.Volume)
}
