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
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/penny-vault/nsedata/cache"
	"github.com/penny-vault/nsedata/library"
	"github.com/penny-vault/nsedata/provider"
	"github.com/penny-vault/nsedata/tickers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// signalContext returns a context that is cancelled on SIGINT or SIGTERM so
// in-flight work stops at the next ticker boundary
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newMarketData() *provider.Yahoo {
	opts := []provider.YahooOption{
		provider.WithSuffix(viper.GetString("yahoo.suffix")),
		provider.WithTimeout(viper.GetDuration("yahoo.timeout")),
		provider.WithRateLimit(viper.GetInt("yahoo.rate_limit")),
	}

	if baseURL := viper.GetString("yahoo.base_url"); baseURL != "" {
		opts = append(opts, provider.WithBaseURL(baseURL))
	}

	return provider.NewYahoo(opts...)
}

func openCache() *cache.Badger {
	path := viper.GetString("cache.path")
	inMemory := viper.GetBool("cache.in_memory")

	badgerCache, err := cache.OpenBadger(path, inMemory)
	if err != nil {
		log.Fatal().Err(err).Str("Path", path).Msg("could not open cache")
	}

	log.Debug().Str("Path", path).Bool("InMemory", inMemory).Msg("opened cache")
	return badgerCache
}

func connectLibrary(ctx context.Context) *library.Library {
	myLibrary, err := library.Connect(ctx, viper.GetString("db.url"))
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}
	return myLibrary
}

// tickerList returns the tickers named on the command line, or the tickers
// listed in the configured tickers file when none were given
func tickerList(args []string) []string {
	if len(args) > 0 {
		return tickers.Normalize(args)
	}

	tickersFile := viper.GetString("tickers.file")
	if tickersFile == "" {
		log.Fatal().Msg("no tickers given; pass them as arguments or set --tickers-file")
	}

	tickerList, err := tickers.Load(tickersFile, viper.GetString("tickers.column"))
	if err != nil {
		log.Fatal().Err(err).Str("FileName", tickersFile).Msg("could not load tickers")
	}

	log.Info().Str("FileName", tickersFile).Int("NumTickers", len(tickerList)).Msg("loaded tickers")
	return tickerList
}

func renderMarkdown(doc string) string {
	r, _ := glamour.NewTermRenderer(
		// detect background color and pick either the default dark or light theme
		glamour.WithAutoStyle(),
		// wrap output at specific width (default is 80)
		glamour.WithWordWrap(80),
	)

	out, err := r.Render(doc)
	if err != nil {
		log.Fatal().Err(err).Msg("could not render markdown document")
	}

	return out
}
