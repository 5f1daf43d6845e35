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
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"
	"github.com/penny-vault/nsedata/cache"
	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/healthcheck"
	"github.com/penny-vault/nsedata/ingest"
	"github.com/penny-vault/nsedata/memstore"
	"github.com/penny-vault/nsedata/metrics"
	"github.com/penny-vault/nsedata/provider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dryRun bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [ticker...]",
	Short: "Ingest prices, fundamentals and statements for a list of tickers",
	Long: `The run sub-command synchronizes each ticker with the market data provider.
If no tickers are given the tickers listed in the configured tickers file are
used. Tickers that were fully ingested by an earlier run are skipped; use the
forget sub-command to ingest them again.

With --dry-run nothing is written to the database or the cache and nothing
is reported to healthchecks.io or the metrics push gateway; data is collected
in memory and only the run summary is printed.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext()
		defer stop()

		tickerList := tickerList(args)

		var (
			store ingest.Store
			kv    cache.Cache
		)

		if dryRun {
			log.Info().Msg("dry run, nothing will be saved")
			store = memstore.New()
			kv = cache.NewMemory()
		} else {
			myLibrary := connectLibrary(ctx)
			defer myLibrary.Close()
			store = myLibrary

			badgerCache := openCache()
			defer badgerCache.Close()
			kv = badgerCache
		}

		summary, err := runIngest(ctx, newMarketData(), store, kv, tickerList, !dryRun)
		if summary != nil {
			printRunSummary(summary)
		}

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("ingest failed")
		}
	},
}

// runIngest runs a single ingest pass. A monitored pass is reported to
// healthchecks.io and the prometheus push gateway when they are configured.
func runIngest(ctx context.Context, md provider.MarketData, store ingest.Store, kv cache.Cache, tickerList []string, monitored bool) (*data.RunSummary, error) {
	ingestor := ingest.New(md, store, kv)
	if !monitored {
		return ingestor.Run(ctx, tickerList)
	}

	hc := healthcheck.NewFromConfig()
	checkID := viper.GetString("healthchecks.ingest")

	if err := hc.Start(ctx, checkID); err != nil {
		log.Warn().Err(err).Msg("could not signal healthcheck start")
	}

	summary, err := ingestor.Run(ctx, tickerList)

	switch {
	case err != nil:
		if hcErr := hc.Fail(context.WithoutCancel(ctx), checkID, err.Error()); hcErr != nil {
			log.Warn().Err(hcErr).Msg("could not signal healthcheck failure")
		}
	case summary.NumFailed > 0 && summary.NumProcessed == 0:
		msg := fmt.Sprintf("all %d attempted tickers failed", summary.NumFailed)
		if hcErr := hc.Fail(ctx, checkID, msg); hcErr != nil {
			log.Warn().Err(hcErr).Msg("could not signal healthcheck failure")
		}
	default:
		if hcErr := hc.Ping(ctx, checkID); hcErr != nil {
			log.Warn().Err(hcErr).Msg("could not signal healthcheck success")
		}
	}

	if pushErr := metrics.Push(context.WithoutCancel(ctx), viper.GetString("metrics.pushgateway"), viper.GetString("metrics.job")); pushErr != nil {
		log.Warn().Err(pushErr).Msg("could not push metrics")
	}

	return summary, err
}

func printRunSummary(summary *data.RunSummary) {
	keyword := func(s string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", lipgloss.NewStyle().Bold(true).Render("Ingest complete"))
	fmt.Fprintf(&sb, "Run ID: %s\n", keyword(summary.RunID.String()))
	fmt.Fprintf(&sb, "Run time: %s\n\n", keyword(durafmt.Parse(summary.EndTime.Sub(summary.StartTime)).LimitFirstN(2).String()))
	fmt.Fprintf(&sb, "Tickers: %s\n", keyword(fmt.Sprintf("%d", summary.NumTickers)))
	fmt.Fprintf(&sb, "Processed: %s\n", keyword(fmt.Sprintf("%d", summary.NumProcessed)))
	fmt.Fprintf(&sb, "Skipped: %s\n", keyword(fmt.Sprintf("%d", summary.NumSkipped)))
	fmt.Fprintf(&sb, "Failed: %s\n", keyword(fmt.Sprintf("%d", summary.NumFailed)))
	fmt.Fprintf(&sb, "Bars saved: %s\n", keyword(fmt.Sprintf("%d", summary.NumBars)))
	fmt.Fprintf(&sb, "Statements saved: %s", keyword(fmt.Sprintf("%d", summary.NumStatements)))

	if len(summary.Failed) > 0 {
		fmt.Fprintf(&sb, "\n\nFailed tickers: %s", keyword(strings.Join(summary.Failed, ", ")))
	}

	fmt.Println(
		lipgloss.NewStyle().
			Width(60).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			Render(sb.String()),
	)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "collect data in memory without saving it")
}
