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
)

// SummaryData is the cross-ticker aggregate published once per day. Monetary
// totals are expressed in crores (1e7).
type SummaryData struct {
	NumStocks           int        `json:"numStocks"`
	TotalMarketCap      null.Float `json:"totalMarketCap"`
	TotalProfit         null.Float `json:"totalProfit"`
	CombinedEPS         null.Float `json:"combinedEPS"`
	TotalDebt           null.Float `json:"totalDebt"`
	TotalRevenue        null.Float `json:"totalRevenue"`
	AvgProfitPerMcap    null.Float `json:"avgProfitPerMcap"`
	AvgProfitPerRevenue null.Float `json:"avgProfitPerRevenue"`
	AvgDebtPerMcap      null.Float `json:"avgDebtPerMcap"`
	AvgDebtPerRevenue   null.Float `json:"avgDebtPerRevenue"`

	FundamentalsData []*FundamentalsRow `json:"fundamentalsData"`
}

// FinancialSummary is the stored form of SummaryData, one row per date
type FinancialSummary struct {
	Date      time.Time    `db:"date" json:"date"`
	Data      *SummaryData `db:"data" json:"data"`
	CreatedAt time.Time    `db:"created_at" json:"-"`
	UpdatedAt time.Time    `db:"updated_at" json:"-"`
}
