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

import "github.com/penny-vault/nsedata/data"

type lineItem struct {
	key  string
	name string
}

// statementLineItems lists the timeseries keys requested for each statement
// table and the line item name they are stored under
var statementLineItems = map[data.StatementType][]lineItem{
	data.IncomeStatement: {
		{"TotalRevenue", "Total Revenue"},
		{"OperatingRevenue", "Operating Revenue"},
		{"CostOfRevenue", "Cost Of Revenue"},
		{"GrossProfit", "Gross Profit"},
		{"OperatingExpense", "Operating Expense"},
		{"OperatingIncome", "Operating Income"},
		{"InterestExpense", "Interest Expense"},
		{"PretaxIncome", "Pretax Income"},
		{"TaxProvision", "Tax Provision"},
		{"NetIncome", "Net Income"},
		{"NetIncomeCommonStockholders", "Net Income Common Stockholders"},
		{"BasicEPS", "Basic EPS"},
		{"DilutedEPS", "Diluted EPS"},
		{"BasicAverageShares", "Basic Average Shares"},
		{"DilutedAverageShares", "Diluted Average Shares"},
		{"EBIT", "EBIT"},
		{"EBITDA", "EBITDA"},
	},
	data.BalanceSheet: {
		{"TotalAssets", "Total Assets"},
		{"CurrentAssets", "Current Assets"},
		{"CashAndCashEquivalents", "Cash And Cash Equivalents"},
		{"TotalLiabilitiesNetMinorityInterest", "Total Liabilities Net Minority Interest"},
		{"CurrentLiabilities", "Current Liabilities"},
		{"StockholdersEquity", "Stockholders Equity"},
		{"TotalDebt", "Total Debt"},
		{"LongTermDebt", "Long Term Debt"},
		{"CurrentDebt", "Current Debt"},
		{"NetDebt", "Net Debt"},
		{"WorkingCapital", "Working Capital"},
		{"InvestedCapital", "Invested Capital"},
		{"TangibleBookValue", "Tangible Book Value"},
		{"OrdinarySharesNumber", "Ordinary Shares Number"},
	},
	data.CashFlow: {
		{"OperatingCashFlow", "Operating Cash Flow"},
		{"InvestingCashFlow", "Investing Cash Flow"},
		{"FinancingCashFlow", "Financing Cash Flow"},
		{"FreeCashFlow", "Free Cash Flow"},
		{"CapitalExpenditure", "Capital Expenditure"},
		{"CashDividendsPaid", "Cash Dividends Paid"},
		{"RepaymentOfDebt", "Repayment Of Debt"},
		{"IssuanceOfDebt", "Issuance Of Debt"},
		{"RepurchaseOfCapitalStock", "Repurchase Of Capital Stock"},
		{"BeginningCashPosition", "Beginning Cash Position"},
		{"EndCashPosition", "End Cash Position"},
		{"ChangesInCash", "Changes In Cash"},
	},
}

func lineItemName(statementType data.StatementType, key string) string {
	for _, item := range statementLineItems[statementType] {
		if item.key == key {
			return item.name
		}
	}
	return key
}
