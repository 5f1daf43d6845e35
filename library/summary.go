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
package library

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/penny-vault/nsedata/data"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary returns a description of the library in markdown
func (myLibrary *Library) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	if _, err := builder.WriteString("# nsedata\n"); err != nil {
		return "", err
	}

	if _, err := builder.WriteString("## Details\n\n"); err != nil {
		return "", err
	}

	// Database connection string
	if _, err := builder.WriteString(fmt.Sprintf("Database: %s\n\n", redact(myLibrary.DBUrl))); err != nil {
		return "", err
	}

	counts := []struct {
		label string
		fetch func(context.Context) (int, error)
	}{
		{"Stocks", myLibrary.NumStocks},
		{"Daily Bars", myLibrary.NumBars},
		{"Fundamentals", myLibrary.NumFundamentals},
		{"Financial Statements", myLibrary.NumStatements},
	}

	for _, count := range counts {
		val, err := count.fetch(ctx)
		if err != nil {
			return "", err
		}

		if _, err := builder.WriteString(p.Sprintf("  * %s: %d\n", count.label, val)); err != nil {
			return "", err
		}
	}

	// Most recent bar
	latestBar, err := myLibrary.LatestBarDate(ctx)
	if err != nil {
		return "", err
	}

	if latestBar.Year() > 1 {
		if _, err := builder.WriteString(fmt.Sprintf("  * Latest Bar: %s\n", latestBar.Format("Jan 2, 2006"))); err != nil {
			return "", err
		}
	}

	if _, err := builder.WriteString("\n"); err != nil {
		return "", err
	}

	// Last updated time
	lastUpdated, err := myLibrary.LastUpdated(ctx)
	if err != nil {
		return "", err
	}

	if lastUpdated.Year() <= 1 {
		if _, err := builder.WriteString("Last Updated: Never\n\n"); err != nil {
			return "", err
		}
	} else {
		age := timeago.English.Format(lastUpdated)
		if _, err := builder.WriteString(fmt.Sprintf("Last Updated: %s (%s)\n\n", age, lastUpdated.Local().Format("01/02/2006"))); err != nil {
			return "", err
		}
	}

	// Financial summary
	if _, err := builder.WriteString("## Financial Summary\n\n"); err != nil {
		return "", err
	}

	latest, err := myLibrary.LatestSummary(ctx)
	switch {
	case errors.Is(err, data.ErrNoSummary):
		if _, err := builder.WriteString("No summary has been published. Run `nsedata crunch`.\n"); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		published := fmt.Sprintf("Published: %s (%s)\n\n", latest.Date.Format("Jan 2, 2006"),
			timeago.English.Format(latest.UpdatedAt))
		if time.Since(latest.Date) < 24*time.Hour {
			published = fmt.Sprintf("Published: today (%s)\n\n", timeago.English.Format(latest.UpdatedAt))
		}

		if _, err := builder.WriteString(published); err != nil {
			return "", err
		}

		if _, err := builder.WriteString(p.Sprintf("  * Stocks: %d\n", latest.Data.NumStocks)); err != nil {
			return "", err
		}
	}

	return builder.String(), nil
}

// redact hides the password of a database url
func redact(dbURL string) string {
	parsed, err := url.Parse(dbURL)
	if err != nil || parsed.User == nil {
		return dbURL
	}

	if _, ok := parsed.User.Password(); ok {
		parsed.User = url.UserPassword(parsed.User.Username(), "xxxxx")
	}

	return parsed.String()
}
