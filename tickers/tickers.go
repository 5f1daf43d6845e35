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
package tickers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// DefaultColumn is the header of the ticker column in NSE equity lists
const DefaultColumn = "Symbol"

var (
	ErrColumnNotFound    = errors.New("ticker column not found")
	ErrUnsupportedFormat = errors.New("unsupported ticker file format")
)

// Load reads the tickers listed in column of a spreadsheet (.xlsx) or csv
// file. The header match ignores case and surrounding whitespace. Blank cells
// are skipped and duplicates are removed, keeping the first occurrence.
func Load(path, column string) ([]string, error) {
	if column == "" {
		column = DefaultColumn
	}

	var (
		values []string
		err    error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		values, err = loadSpreadsheet(path, column)
	case ".csv":
		values, err = loadCSV(path, column)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if err != nil {
		return nil, err
	}

	tickers := Normalize(values)
	log.Debug().Str("Path", path).Str("Column", column).Int("NumTickers", len(tickers)).Msg("loaded ticker list")
	return tickers, nil
}

// Normalize trims tickers and drops blanks and duplicates
func Normalize(values []string) []string {
	seen := make(map[string]bool, len(values))
	tickers := make([]string, 0, len(values))
	for _, val := range values {
		ticker := strings.TrimSpace(val)
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		tickers = append(tickers, ticker)
	}
	return tickers
}

// loadSpreadsheet reads column from the first sheet of the workbook
func loadSpreadsheet(path, column string) ([]string, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := workbook.Close(); err != nil {
			log.Warn().Err(err).Str("Path", path).Msg("could not close workbook")
		}
	}()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrColumnNotFound, path)
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	colIdx := -1
	for idx, header := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(header), column) {
			colIdx = idx
			break
		}
	}

	if colIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	values := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// excelize trims trailing empty cells from each row
		if colIdx < len(row) {
			values = append(values, row[colIdx])
		}
	}

	return values, nil
}

func loadCSV(path, column string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	records, err := gocsv.CSVToMaps(fh)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return []string{}, nil
	}

	key := ""
	for header := range records[0] {
		if strings.EqualFold(strings.TrimSpace(header), column) {
			key = header
			break
		}
	}

	if key == "" {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	values := make([]string, 0, len(records))
	for _, record := range records {
		values = append(values, record[key])
	}

	return values, nil
}
