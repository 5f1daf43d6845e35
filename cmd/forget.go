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
	"github.com/penny-vault/nsedata/ingest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var forgetAllFromFile bool

// forgetCmd represents the forget command
var forgetCmd = &cobra.Command{
	Use:   "forget [ticker...]",
	Short: "Clear the processed marker of tickers so the next run ingests them again",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && !forgetAllFromFile {
			log.Fatal().Msg("no tickers given; pass them as arguments or use --all-from-file")
		}

		if forgetAllFromFile {
			args = nil
		}

		tickerList := tickerList(args)

		ctx, stop := signalContext()
		defer stop()

		badgerCache := openCache()
		defer badgerCache.Close()

		if err := ingest.NewSkipSet(badgerCache).Forget(ctx, tickerList...); err != nil {
			log.Fatal().Err(err).Msg("could not forget tickers")
		}

		log.Info().Int("NumTickers", len(tickerList)).Msg("forgot processed tickers")
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
	forgetCmd.Flags().BoolVar(&forgetAllFromFile, "all-from-file", false, "forget every ticker listed in the configured tickers file")
}
