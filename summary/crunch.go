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
	"fmt"

	"github.com/guregu/null/v6"
	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/metrics"
	"github.com/rs/zerolog/log"
)

// crore converts rupee amounts into units of ten million
const crore = 1e7

const (
	netIncome    = "Net Income"
	totalRevenue = "Total Revenue"
	basicEPS     = "Basic EPS"
	totalDebt    = "Total Debt"
)

// Source reads every stored row that contributes to the summary
type Source interface {
	Stocks(ctx context.Context) ([]*data.Stock, error)
	Financials(ctx context.Context) ([]*data.FinancialStatement, error)
	Fundamentals(ctx context.Context) ([]*data.FundamentalsRow, error)
}

type Options struct {
	// LatestFundamentalsOnly restricts the market cap total to the most
	// recent fundamentals row of each stock. By default every stored row
	// contributes.
	LatestFundamentalsOnly bool
}

// Crunch aggregates market cap, profit, revenue, EPS and debt across every
// stock and derives the per-thousand ratios between them. Missing and
// non-finite values contribute zero and every ratio with a zero denominator
// is zero. The result never contains a non-finite number.
func Crunch(stocks []*data.Stock, financials []*data.FinancialStatement, fundamentals []*data.FundamentalsRow, opts Options) *data.SummaryData {
	rows := sanitizedRows(fundamentals)
	if opts.LatestFundamentalsOnly {
		rows = latestPerStock(rows)
	}

	var marketCap float64
	for _, row := range rows {
		if row.MarketCap.Valid {
			marketCap += float64(row.MarketCap.Int64)
		}
	}

	var profit, revenue, eps, debt float64
	for _, statement := range financials {
		switch statement.StatementType {
		case data.IncomeStatement:
			profit += statement.Data.Value(netIncome)
			revenue += statement.Data.Value(totalRevenue)
			eps += statement.Data.Value(basicEPS)
		case data.BalanceSheet:
			debt += statement.Data.Value(totalDebt)
		}
	}

	marketCap /= crore
	profit /= crore
	revenue /= crore
	debt /= crore

	return &data.SummaryData{
		NumStocks:           len(stocks),
		TotalMarketCap:      data.SanitizeFloat(marketCap),
		TotalProfit:         data.SanitizeFloat(profit),
		CombinedEPS:         data.SanitizeFloat(eps),
		TotalDebt:           data.SanitizeFloat(debt),
		TotalRevenue:        data.SanitizeFloat(revenue),
		AvgProfitPerMcap:    perThousand(profit, marketCap),
		AvgProfitPerRevenue: perThousand(profit, revenue),
		AvgDebtPerMcap:      perThousand(debt, marketCap),
		AvgDebtPerRevenue:   perThousand(debt, revenue),
		FundamentalsData:    rows,
	}
}

// perThousand returns num / (den / 1000), or zero when den is zero
func perThousand(num, den float64) null.Float {
	if den == 0 {
		return null.FloatFrom(0)
	}
	return data.SanitizeFloat(num / (den / 1000))
}

func sanitizedRows(fundamentals []*data.FundamentalsRow) []*data.FundamentalsRow {
	rows := make([]*data.FundamentalsRow, 0, len(fundamentals))
	for _, fundamental := range fundamentals {
		if fundamental == nil {
			continue
		}
		row := *fundamental
		row.Sanitize()
		rows = append(rows, &row)
	}
	return rows
}

func latestPerStock(rows []*data.FundamentalsRow) []*data.FundamentalsRow {
	latest := make(map[int64]*data.FundamentalsRow, len(rows))
	order := make([]int64, 0)
	for _, row := range rows {
		current, ok := latest[row.StockID]
		if !ok {
			order = append(order, row.StockID)
		}
		if !ok || row.Date.After(current.Date) {
			latest[row.StockID] = row
		}
	}

	out := make([]*data.FundamentalsRow, len(order))
	for idx, stockID := range order {
		out[idx] = latest[stockID]
	}
	return out
}

// Cruncher loads every stored row, aggregates it and publishes the result
type Cruncher struct {
	Source    Source
	Publisher *Publisher
	Options   Options
}

func NewCruncher(source Source, publisher *Publisher, opts Options) *Cruncher {
	return &Cruncher{
		Source:    source,
		Publisher: publisher,
		Options:   opts,
	}
}

func (cruncher *Cruncher) Run(ctx context.Context) (*data.SummaryData, error) {
	stocks, err := cruncher.Source.Stocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stocks: %w", err)
	}

	financials, err := cruncher.Source.Financials(ctx)
	if err != nil {
		return nil, fmt.Errorf("load financials: %w", err)
	}

	fundamentals, err := cruncher.Source.Fundamentals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fundamentals: %w", err)
	}

	log.Info().
		Int("NumStocks", len(stocks)).
		Int("NumStatements", len(financials)).
		Int("NumFundamentals", len(fundamentals)).
		Bool("LatestFundamentalsOnly", cruncher.Options.LatestFundamentalsOnly).
		Msg("crunching financial summary")

	summaryData := Crunch(stocks, financials, fundamentals, cruncher.Options)
	if err := cruncher.Publisher.Publish(ctx, summaryData); err != nil {
		return summaryData, err
	}

	metrics.SummaryStocks.Set(float64(summaryData.NumStocks))
	return summaryData, nil
}
