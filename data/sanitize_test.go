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
package data_test

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/nsedata/data"
)

var _ = Describe("Sanitize", func() {
	DescribeTable("scalars",
		func(input any, expected any) {
			if expected == nil {
				Expect(data.Sanitize(input)).To(BeNil())
				return
			}
			Expect(data.Sanitize(input)).To(Equal(expected))
		},
		Entry("finite float passes through", 1.5, 1.5),
		Entry("NaN becomes nil", math.NaN(), nil),
		Entry("+Inf becomes nil", math.Inf(1), nil),
		Entry("-Inf becomes nil", math.Inf(-1), nil),
		Entry("float32 NaN becomes nil", float32(math.NaN()), nil),
		Entry("strings are untouched", "TCS", "TCS"),
		Entry("integers are untouched", 42, 42),
		Entry("nil stays nil", nil, nil),
		Entry("valid null.Float passes through", null.FloatFrom(3), null.FloatFrom(3)),
		Entry("non-finite null.Float becomes absent", null.FloatFrom(math.Inf(1)), null.Float{}),
	)

	It("replaces non-finite values anywhere in a nested structure", func() {
		input := map[string]any{
			"a": 1.0,
			"b": math.NaN(),
			"c": []any{2.0, math.Inf(1), map[string]any{"d": math.Inf(-1), "e": "x"}},
		}

		Expect(data.Sanitize(input)).To(Equal(map[string]any{
			"a": 1.0,
			"b": nil,
			"c": []any{2.0, nil, map[string]any{"d": nil, "e": "x"}},
		}))
	})

	It("does not modify its input", func() {
		input := []any{math.Inf(1)}
		data.Sanitize(input)
		Expect(math.IsInf(input[0].(float64), 1)).To(BeTrue())
	})

	It("sanitizes typed line items", func() {
		items := data.LineItems{
			"Net Income":    null.FloatFrom(math.NaN()),
			"Total Revenue": null.FloatFrom(10),
		}

		Expect(data.Sanitize(items)).To(Equal(data.LineItems{
			"Net Income":    null.Float{},
			"Total Revenue": null.FloatFrom(10),
		}))
	})

	DescribeTable("is idempotent",
		func(input any) {
			once := data.Sanitize(input)
			if once == nil {
				Expect(data.Sanitize(once)).To(BeNil())
				return
			}
			Expect(data.Sanitize(once)).To(Equal(once))
		},
		Entry("scalar", math.NaN()),
		Entry("float slice", []float64{1, math.Inf(1), math.NaN()}),
		Entry("float map", map[string]float64{"x": math.Inf(-1), "y": 2}),
		Entry("nested", map[string]any{"x": []any{math.NaN(), map[string]any{"y": 1.0}}}),
		Entry("null float with garbage payload", null.NewFloat(7, false)),
		Entry("line items", data.LineItems{"Basic EPS": null.FloatFrom(math.Inf(1))}),
		Entry("typed nested", map[string][]float64{"x": {math.Inf(-1), 3}}),
		Entry("struct pointer", &data.SummaryData{TotalProfit: null.FloatFrom(math.NaN())}),
	)

	Describe("typed containers", func() {
		It("sanitizes maps inside slices", func() {
			Expect(data.Sanitize([]map[string]any{{"x": math.NaN(), "y": 1.0}})).To(Equal(
				[]map[string]any{{"x": nil, "y": 1.0}},
			))
		})

		It("keeps maps of optional values typed", func() {
			Expect(data.Sanitize(map[string]null.Float{"x": null.FloatFrom(math.Inf(1)), "y": null.FloatFrom(2)})).To(Equal(
				map[string]null.Float{"x": {}, "y": null.FloatFrom(2)},
			))
		})

		It("widens float containers that hold non-finite values", func() {
			Expect(data.Sanitize(map[string][]float64{"x": {math.Inf(-1), 3}})).To(Equal(
				map[string]any{"x": []any{nil, 3.0}},
			))
			Expect(data.Sanitize([2]float32{1, float32(math.NaN())})).To(Equal([]any{float32(1), nil}))
		})

		It("keeps finite float containers typed", func() {
			Expect(data.Sanitize(map[string]float64{"x": 1})).To(Equal(map[string]float64{"x": 1}))
			Expect(data.Sanitize([]float64{1, 2})).To(Equal([]float64{1, 2}))
		})

		It("leaves byte slices alone", func() {
			Expect(data.Sanitize([]byte("abc"))).To(Equal([]byte("abc")))
		})

		It("treats pointers to non-finite floats as absent", func() {
			nan := math.NaN()
			Expect(data.Sanitize(&nan)).To(BeNil())
		})

		It("sanitizes exported struct fields through pointers", func() {
			input := &data.SummaryData{
				NumStocks:   2,
				TotalProfit: null.FloatFrom(math.NaN()),
				TotalDebt:   null.FloatFrom(5),
				FundamentalsData: []*data.FundamentalsRow{
					{StockID: 9, TrailingPE: null.FloatFrom(math.Inf(-1)), PriceToBook: null.FloatFrom(1)},
				},
			}

			out, ok := data.Sanitize(input).(*data.SummaryData)
			Expect(ok).To(BeTrue())
			Expect(out.NumStocks).To(Equal(2))
			Expect(out.TotalProfit).To(Equal(null.Float{}))
			Expect(out.TotalDebt).To(Equal(null.FloatFrom(5)))
			Expect(out.FundamentalsData).To(HaveLen(1))
			Expect(out.FundamentalsData[0].StockID).To(Equal(int64(9)))
			Expect(out.FundamentalsData[0].TrailingPE).To(Equal(null.Float{}))
			Expect(out.FundamentalsData[0].PriceToBook).To(Equal(null.FloatFrom(1)))

			Expect(math.IsNaN(input.TotalProfit.Float64)).To(BeTrue())
			Expect(math.IsInf(input.FundamentalsData[0].TrailingPE.Float64, -1)).To(BeTrue())
		})

		It("resets struct float fields that cannot be kept", func() {
			bar := data.Sanitize(data.Bar{StockID: 1, Open: math.NaN(), Close: 10}).(data.Bar)
			Expect(bar.Open).To(Equal(0.0))
			Expect(bar.Close).To(Equal(10.0))
		})
	})
})

var _ = Describe("FloatToInt", func() {
	It("rounds finite values", func() {
		Expect(data.FloatToInt(1234.6)).To(Equal(null.IntFrom(1235)))
	})

	It("treats non-finite and overflowing values as absent", func() {
		Expect(data.FloatToInt(math.NaN()).Valid).To(BeFalse())
		Expect(data.FloatToInt(math.Inf(1)).Valid).To(BeFalse())
		Expect(data.FloatToInt(1e30).Valid).To(BeFalse())
	})
})

var _ = Describe("LineItems", func() {
	It("reports absent items as zero", func() {
		items := data.LineItems{"Net Income": null.FloatFrom(5), "Total Debt": null.Float{}}
		Expect(items.Value("Net Income")).To(Equal(5.0))
		Expect(items.Value("Total Debt")).To(Equal(0.0))
		Expect(items.Value("Basic EPS")).To(Equal(0.0))
		Expect(items.Has("Total Debt")).To(BeFalse())
		Expect(items.Has("Net Income")).To(BeTrue())
	})
})

var _ = Describe("Dates", func() {
	It("truncates to a UTC calendar day in the observation's zone", func() {
		kolkata := time.FixedZone("IST", 5*60*60+30*60)
		observed := time.Date(2024, 3, 28, 0, 30, 0, 0, kolkata)
		Expect(data.Day(observed)).To(Equal(time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)))
	})

	It("counts calendar days between dates", func() {
		from := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
		to := time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC)
		Expect(data.DaysBetween(from, to)).To(Equal(7))
	})
})
