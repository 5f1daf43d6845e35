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
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoSummary  = errors.New("no financial summary has been published")
	ErrInvalidRow = errors.New("row is missing a natural key field")
)

type StatementType string

const (
	BalanceSheet    StatementType = "balance_sheet"
	IncomeStatement StatementType = "income_statement"
	CashFlow        StatementType = "cash_flow"
)

// StatementTypes lists every statement kind in the order they are ingested
var StatementTypes = []StatementType{BalanceSheet, IncomeStatement, CashFlow}

func (st StatementType) Valid() bool {
	switch st {
	case BalanceSheet, IncomeStatement, CashFlow:
		return true
	default:
		return false
	}
}

// RunSummary describes the outcome of a single ingestion run
type RunSummary struct {
	RunID     uuid.UUID
	StartTime time.Time
	EndTime   time.Time

	NumTickers    int
	NumProcessed  int
	NumSkipped    int
	NumFailed     int
	NumBars       int
	NumStatements int

	Failed []string
}

func NewRunSummary(now time.Time) *RunSummary {
	return &RunSummary{
		RunID:     uuid.New(),
		StartTime: now,
		Failed:    []string{},
	}
}

func (summary *RunSummary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("RunID", summary.RunID.String())
	e.Int("NumTickers", summary.NumTickers)
	e.Int("NumProcessed", summary.NumProcessed)
	e.Int("NumSkipped", summary.NumSkipped)
	e.Int("NumFailed", summary.NumFailed)
	e.Int("NumBars", summary.NumBars)
	e.Int("NumStatements", summary.NumStatements)
	e.Dur("RunTime", summary.EndTime.Sub(summary.StartTime))
}

// Day truncates t to a calendar date. The year, month and day are taken in
// t's own location and the result is midnight UTC so that dates compare equal
// regardless of the zone they were observed in.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from `from` to `to`
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}
