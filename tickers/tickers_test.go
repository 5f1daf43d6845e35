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
package tickers_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/penny-vault/nsedata/tickers"
)

func writeWorkbook(path string, rows [][]any) {
	workbook := excelize.NewFile()
	defer workbook.Close()

	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+1)
		Expect(err).ToNot(HaveOccurred())
		Expect(workbook.SetSheetRow("Sheet1", cell, &row)).To(Succeed())
	}

	Expect(workbook.SaveAs(path)).To(Succeed())
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("spreadsheets", func() {
		It("reads the symbol column of the first sheet", func() {
			path := filepath.Join(dir, "nifty.xlsx")
			writeWorkbook(path, [][]any{
				{"Company Name", "Industry", "Symbol", "Series"},
				{"Tata Consultancy Services Ltd.", "Information Technology", "TCS", "EQ"},
				{"Infosys Ltd.", "Information Technology", " INFY ", "EQ"},
				{"Blank", "", "", "EQ"},
				{"Tata Consultancy Services Ltd.", "Information Technology", "TCS", "EQ"},
			})

			list, err := tickers.Load(path, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(Equal([]string{"TCS", "INFY"}))
		})

		It("matches the column header without regard to case", func() {
			path := filepath.Join(dir, "list.xlsx")
			writeWorkbook(path, [][]any{
				{"ticker"},
				{"RELIANCE"},
			})

			list, err := tickers.Load(path, "Ticker")
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(Equal([]string{"RELIANCE"}))
		})

		It("reports a missing column", func() {
			path := filepath.Join(dir, "list.xlsx")
			writeWorkbook(path, [][]any{{"Name"}, {"Infosys"}})

			_, err := tickers.Load(path, "Symbol")
			Expect(err).To(MatchError(tickers.ErrColumnNotFound))
		})
	})

	Describe("csv", func() {
		It("reads the symbol column", func() {
			path := filepath.Join(dir, "nifty.csv")
			Expect(os.WriteFile(path, []byte("Company Name,Symbol,Series\nHDFC Bank Ltd.,HDFCBANK,EQ\nITC Ltd.,ITC,EQ\n"), 0o600)).To(Succeed())

			list, err := tickers.Load(path, "Symbol")
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(Equal([]string{"HDFCBANK", "ITC"}))
		})

		It("reports a missing column", func() {
			path := filepath.Join(dir, "nifty.csv")
			Expect(os.WriteFile(path, []byte("Company Name,Series\nITC Ltd.,EQ\n"), 0o600)).To(Succeed())

			_, err := tickers.Load(path, "Symbol")
			Expect(err).To(MatchError(tickers.ErrColumnNotFound))
		})
	})

	It("rejects other formats", func() {
		_, err := tickers.Load(filepath.Join(dir, "list.json"), "Symbol")
		Expect(err).To(MatchError(tickers.ErrUnsupportedFormat))
	})

	It("normalizes ticker lists", func() {
		Expect(tickers.Normalize([]string{"TCS", " ", "INFY", "TCS "})).To(Equal([]string{"TCS", "INFY"}))
	})
})
