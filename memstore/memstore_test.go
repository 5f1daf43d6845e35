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
package memstore_test

import (
	"context"
	"math"
	"time"

	"github.com/guregu/null/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/memstore"
)

var _ = Describe("Store", func() {
	var (
		store *memstore.Store
		now   time.Time
		ctx   context.Context
		day   time.Time
	)

	BeforeEach(func() {
		now = time.Date(2024, 4, 1, 18, 0, 0, 0, time.UTC)
		store = memstore.New().WithClock(func() time.Time { return now })
		ctx = context.Background()
		day = time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)
	})

	Describe("stocks", func() {
		It("assigns stable ids to tickers", func() {
			tcs, err := store.UpsertStock(ctx, "TCS")
			Expect(err).ToNot(HaveOccurred())
			infy, err := store.UpsertStock(ctx, "INFY")
			Expect(err).ToNot(HaveOccurred())
			again, err := store.UpsertStock(ctx, "TCS")
			Expect(err).ToNot(HaveOccurred())

			Expect(again).To(Equal(tcs))
			Expect(infy).ToNot(Equal(tcs))

			stocks, err := store.Stocks(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(stocks).To(HaveLen(2))
		})

		It("rejects empty tickers", func() {
			_, err := store.UpsertStock(ctx, "")
			Expect(err).To(MatchError(data.ErrInvalidRow))
		})
	})

	Describe("bars", func() {
		var stockID int64

		BeforeEach(func() {
			var err error
			stockID, err = store.UpsertStock(ctx, "TCS")
			Expect(err).ToNot(HaveOccurred())
		})

		It("keeps a single unchanged row when the same bar is saved twice", func() {
			bar := &data.Bar{Date: day, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}
			Expect(store.SaveBars(ctx, stockID, []*data.Bar{bar})).To(Succeed())
			first, ok := store.Bar(stockID, day)
			Expect(ok).To(BeTrue())

			Expect(store.SaveBars(ctx, stockID, []*data.Bar{bar})).To(Succeed())
			second, ok := store.Bar(stockID, day)
			Expect(ok).To(BeTrue())

			_, bars, _, _ := store.Counts()
			Expect(bars).To(Equal(1))
			Expect(second).To(Equal(first))
		})

		It("overwrites changed values and advances the update time", func() {
			Expect(store.SaveBars(ctx, stockID, []*data.Bar{{Date: day, Close: 1.5}})).To(Succeed())
			created := now

			now = now.Add(time.Hour)
			Expect(store.SaveBars(ctx, stockID, []*data.Bar{{Date: day, Close: 1.6}})).To(Succeed())

			bar, ok := store.Bar(stockID, day)
			Expect(ok).To(BeTrue())
			Expect(bar.Close).To(Equal(1.6))
			Expect(bar.CreatedAt).To(Equal(created))
			Expect(bar.UpdatedAt).To(Equal(now))
			Expect(bar.UpdatedAt).To(BeTemporally(">", bar.CreatedAt))

			_, bars, _, _ := store.Counts()
			Expect(bars).To(Equal(1))
		})

		It("matches bars on calendar day", func() {
			Expect(store.SaveBars(ctx, stockID, []*data.Bar{{Date: day.Add(9 * time.Hour), Close: 1}})).To(Succeed())
			Expect(store.SaveBars(ctx, stockID, []*data.Bar{{Date: day.Add(15 * time.Hour), Close: 2}})).To(Succeed())

			_, bars, _, _ := store.Counts()
			Expect(bars).To(Equal(1))
		})

		It("rejects the whole batch when one row is invalid", func() {
			err := store.SaveBars(ctx, stockID, []*data.Bar{
				{Date: day, Close: 1},
				{Date: day.AddDate(0, 0, 1), Close: math.NaN()},
			})
			Expect(err).To(MatchError(data.ErrInvalidRow))

			_, bars, _, _ := store.Counts()
			Expect(bars).To(Equal(0))
		})

		It("reports the most recent bar date", func() {
			_, ok, err := store.LastBarDate(ctx, stockID)
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())

			Expect(store.SaveBars(ctx, stockID, []*data.Bar{
				{Date: day, Close: 1},
				{Date: day.AddDate(0, 0, 1), Close: 2},
				{Date: day.AddDate(0, 0, -5), Close: 3},
			})).To(Succeed())

			last, ok, err := store.LastBarDate(ctx, stockID)
			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(last).To(Equal(day.AddDate(0, 0, 1)))
		})
	})

	Describe("fundamentals", func() {
		It("upserts on stock and date and sanitizes ratios", func() {
			Expect(store.SaveFundamentals(ctx, &data.Fundamentals{
				StockID: 1, Date: day, MarketCap: null.IntFrom(100), TrailingPE: null.FloatFrom(math.Inf(1)),
			})).To(Succeed())
			Expect(store.SaveFundamentals(ctx, &data.Fundamentals{
				StockID: 1, Date: day, MarketCap: null.IntFrom(200), TrailingPE: null.FloatFrom(12),
			})).To(Succeed())

			row, ok := store.FundamentalsFor(1, day)
			Expect(ok).To(BeTrue())
			Expect(row.MarketCap).To(Equal(null.IntFrom(200)))
			Expect(row.TrailingPE).To(Equal(null.FloatFrom(12)))

			rows, err := store.Fundamentals(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(HaveLen(1))
		})
	})

	Describe("statements", func() {
		It("keys statements on stock, date and type", func() {
			items := data.LineItems{"Net Income": null.FloatFrom(5)}
			Expect(store.SaveStatement(ctx, &data.FinancialStatement{StockID: 1, Date: day, StatementType: data.IncomeStatement, Data: items})).To(Succeed())
			Expect(store.SaveStatement(ctx, &data.FinancialStatement{StockID: 1, Date: day, StatementType: data.BalanceSheet, Data: items})).To(Succeed())
			Expect(store.SaveStatement(ctx, &data.FinancialStatement{StockID: 1, Date: day, StatementType: data.IncomeStatement, Data: data.LineItems{"Net Income": null.FloatFrom(6)}})).To(Succeed())

			statements, err := store.Financials(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(statements).To(HaveLen(2))

			income, ok := store.Statement(1, day, data.IncomeStatement)
			Expect(ok).To(BeTrue())
			Expect(income.Data.Value("Net Income")).To(Equal(6.0))
		})

		It("does not share line items with the caller", func() {
			items := data.LineItems{"Net Income": null.FloatFrom(5)}
			Expect(store.SaveStatement(ctx, &data.FinancialStatement{StockID: 1, Date: day, StatementType: data.IncomeStatement, Data: items})).To(Succeed())
			items["Net Income"] = null.FloatFrom(99)

			income, _ := store.Statement(1, day, data.IncomeStatement)
			Expect(income.Data.Value("Net Income")).To(Equal(5.0))
		})

		It("rejects unknown statement types", func() {
			err := store.SaveStatement(ctx, &data.FinancialStatement{StockID: 1, Date: day, StatementType: "ratios"})
			Expect(err).To(MatchError(data.ErrInvalidRow))
		})
	})

	Describe("summaries", func() {
		It("reports when nothing has been published", func() {
			_, err := store.LatestSummary(ctx)
			Expect(err).To(MatchError(data.ErrNoSummary))
		})

		It("keeps one summary per day and returns the latest", func() {
			Expect(store.SaveSummary(ctx, &data.FinancialSummary{Date: day, Data: &data.SummaryData{NumStocks: 1}})).To(Succeed())
			Expect(store.SaveSummary(ctx, &data.FinancialSummary{Date: day.Add(time.Hour), Data: &data.SummaryData{NumStocks: 2}})).To(Succeed())
			Expect(store.SaveSummary(ctx, &data.FinancialSummary{Date: day.AddDate(0, 0, -1), Data: &data.SummaryData{NumStocks: 3}})).To(Succeed())

			latest, err := store.LatestSummary(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(latest.Date).To(Equal(day))
			Expect(latest.Data.NumStocks).To(Equal(2))
		})
	})
})
