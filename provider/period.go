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

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownPeriod = errors.New("unknown history period")
)

// Period is a named history window understood by the market data provider
type Period string

const (
	Period1d  Period = "1d"
	Period5d  Period = "5d"
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
	Period10y Period = "10y"
	PeriodYTD Period = "ytd"
	PeriodMax Period = "max"
)

type rung struct {
	period  Period
	maxDays int
}

// ladder is ordered from the narrowest window to the widest. ytd sits after
// 10y so the resolver never selects it, but escalation still walks it.
var ladder = []rung{
	{Period1d, 1},
	{Period5d, 5},
	{Period1mo, 30},
	{Period3mo, 90},
	{Period6mo, 180},
	{Period1y, 365},
	{Period2y, 730},
	{Period5y, 1825},
	{Period10y, 3650},
	{PeriodYTD, 365},
	{PeriodMax, math.MaxInt},
}

// Ladder returns the escalation order of history periods
func Ladder() []Period {
	periods := make([]Period, len(ladder))
	for idx, r := range ladder {
		periods[idx] = r.period
	}
	return periods
}

// PeriodForGap returns the smallest window that covers daysGap calendar days
func PeriodForGap(daysGap int) Period {
	if daysGap < 0 {
		daysGap = 0
	}

	for _, r := range ladder {
		if daysGap <= r.maxDays {
			return r.period
		}
	}

	return PeriodMax
}

// MaxDays returns the number of days covered by the period
func (p Period) MaxDays() (int, error) {
	idx, err := p.Index()
	if err != nil {
		return 0, err
	}
	return ladder[idx].maxDays, nil
}

// Index returns the position of the period on the escalation ladder
func (p Period) Index() (int, error) {
	for idx, r := range ladder {
		if r.period == p {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownPeriod, p)
}

func (p Period) String() string {
	return string(p)
}
