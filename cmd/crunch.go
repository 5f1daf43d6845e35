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
	"fmt"

	"github.com/penny-vault/nsedata/cache"
	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/healthcheck"
	"github.com/penny-vault/nsedata/library"
	"github.com/penny-vault/nsedata/metrics"
	"github.com/penny-vault/nsedata/summary"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var latestFundamentals bool

// crunchCmd represents the crunch command
var crunchCmd = &cobra.Command{
	Use:   "crunch",
	Short: "Aggregate stored financials into a market wide summary",
	Long: `The crunch sub-command sums market cap over the stored fundamentals rows
and net income, revenue, basic EPS and total debt over the stored statements.
Monetary totals are reported in crores. It then derives profit and debt per
thousand of market cap and of revenue and publishes the result. The summary
is saved for today's date and cached for an hour.

By default every stored fundamentals row contributes to the market cap total.
Pass --latest-fundamentals to use only the most recent row of each stock.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext()
		defer stop()

		myLibrary := connectLibrary(ctx)
		defer myLibrary.Close()

		badgerCache := openCache()
		defer badgerCache.Close()

		summaryData, err := runCrunch(ctx, myLibrary, badgerCache)
		if err != nil {
			log.Fatal().Err(err).Msg("crunch failed")
		}

		fmt.Print(renderMarkdown(summary.Markdown(summaryData)))
	},
}

// runCrunch aggregates and publishes a summary and reports the outcome to
// healthchecks.io and the prometheus push gateway when they are configured
func runCrunch(ctx context.Context, myLibrary *library.Library, kv cache.Cache) (*data.SummaryData, error) {
	hc := healthcheck.NewFromConfig()
	checkID := viper.GetString("healthchecks.crunch")

	if err := hc.Start(ctx, checkID); err != nil {
		log.Warn().Err(err).Msg("could not signal healthcheck start")
	}

	cruncher := summary.NewCruncher(myLibrary, summary.NewPublisher(myLibrary, kv), summary.Options{
		LatestFundamentalsOnly: viper.GetBool("crunch.latest_fundamentals"),
	})

	summaryData, err := cruncher.Run(ctx)
	if err != nil {
		if hcErr := hc.Fail(context.WithoutCancel(ctx), checkID, err.Error()); hcErr != nil {
			log.Warn().Err(hcErr).Msg("could not signal healthcheck failure")
		}
	} else if hcErr := hc.Ping(ctx, checkID); hcErr != nil {
		log.Warn().Err(hcErr).Msg("could not signal healthcheck success")
	}

	if pushErr := metrics.Push(context.WithoutCancel(ctx), viper.GetString("metrics.pushgateway"), viper.GetString("metrics.job")); pushErr != nil {
		log.Warn().Err(pushErr).Msg("could not push metrics")
	}

	return summaryData, err
}

func init() {
	rootCmd.AddCommand(crunchCmd)

	crunchCmd.Flags().BoolVar(&latestFundamentals, "latest-fundamentals", false, "only use the most recent fundamentals row of each stock")
	if err := viper.BindPFlag("crunch.latest_fundamentals", crunchCmd.Flags().Lookup("latest-fundamentals")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for latest-fundamentals failed")
	}
}
