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
	"strings"

	"github.com/guregu/null/v6"
	"github.com/penny-vault/nsedata/data"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Markdown describes the summary as a markdown document. Monetary totals are
// reported in crore.
func Markdown(summaryData *data.SummaryData) string {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString("# Financial Summary\n\n")
	builder.WriteString(p.Sprintf("Stocks: %d\n\n", summaryData.NumStocks))

	builder.WriteString("## Totals (₹ crore)\n\n")
	builder.WriteString("| Measure | Value |\n|---|---:|\n")
	writeRow(&builder, p, "Market Cap", summaryData.TotalMarketCap)
	writeRow(&builder, p, "Profit", summaryData.TotalProfit)
	writeRow(&builder, p, "Revenue", summaryData.TotalRevenue)
	writeRow(&builder, p, "Debt", summaryData.TotalDebt)
	writeRow(&builder, p, "Combined EPS (₹)", summaryData.CombinedEPS)

	builder.WriteString("\n## Ratios (per ₹1,000)\n\n")
	builder.WriteString("| Ratio | Value |\n|---|---:|\n")
	writeRow(&builder, p, "Profit / Market Cap", summaryData.AvgProfitPerMcap)
	writeRow(&builder, p, "Profit / Revenue", summaryData.AvgProfitPerRevenue)
	writeRow(&builder, p, "Debt / Market Cap", summaryData.AvgDebtPerMcap)
	writeRow(&builder, p, "Debt / Revenue", summaryData.AvgDebtPerRevenue)

	builder.WriteString(p.Sprintf("\nFundamentals rows: %d\n", len(summaryData.FundamentalsData)))

	return builder.String()
}

func writeRow(builder *strings.Builder, p *message.Printer, label string, val null.Float) {
	if !val.Valid {
		builder.WriteString(p.Sprintf("| %s | n/a |\n", label))
		return
	}
	builder.WriteString(p.Sprintf("| %s | %.2f |\n", label, val.Float64))
}
