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
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/summary"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var summaryJSON bool

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the most recently published financial summary",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext()
		defer stop()

		myLibrary := connectLibrary(ctx)
		defer myLibrary.Close()

		badgerCache := openCache()
		defer badgerCache.Close()

		summaryData, err := summary.NewPublisher(myLibrary, badgerCache).Latest(ctx)
		if errors.Is(err, data.ErrNoSummary) {
			log.Error().Msg("no financial summary has been published yet, run the crunch sub-command first")
			os.Exit(1)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("could not load financial summary")
		}

		if summaryJSON {
			encoded, err := json.MarshalIndent(summaryData, "", "  ")
			if err != nil {
				log.Fatal().Err(err).Msg("could not encode financial summary")
			}
			fmt.Println(string(encoded))
			return
		}

		fmt.Print(renderMarkdown(summary.Markdown(summaryData)))
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print the summary as JSON")
}
