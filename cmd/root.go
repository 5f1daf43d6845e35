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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/penny-vault/nsedata/pkginfo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nsedata",
	Short: "nsedata maintains a database of NSE listed stock prices and financials",
	Long: `nsedata is a command line utility for building and maintaining a
PostgreSQL database of daily prices, valuation snapshots and annual financial
statements for stocks listed on the National Stock Exchange of India.

Each run reads a list of tickers, works out how stale the stored history of
each ticker is and fetches just enough history to catch up. Rows are upserted
by their natural key so runs can be repeated safely. Tickers that have been
fully ingested are remembered in a local cache and skipped until they are
forgotten.

The crunch sub-command aggregates every stored statement into a market wide
financial summary that is saved to the database and cached for an hour.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := zerolog.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			log.Warn().Err(err).Str("Level", viper.GetString("log.level")).Msg("invalid log level, using info")
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Debug().Object("Build", pkginfo.Current()).Msg("starting nsedata")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.nsedata.toml)")

	rootCmd.PersistentFlags().String("db-url", "", "database connection string")
	if err := viper.BindPFlag("db.url", rootCmd.PersistentFlags().Lookup("db-url")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for db-url failed")
	}

	rootCmd.PersistentFlags().String("cache-path", "", "directory of the processed ticker cache (default is $HOME/.nsedata/cache)")
	if err := viper.BindPFlag("cache.path", rootCmd.PersistentFlags().Lookup("cache-path")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for cache-path failed")
	}

	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for log-level failed")
	}

	rootCmd.PersistentFlags().String("tickers-file", "", "spreadsheet or csv file listing the tickers to ingest")
	if err := viper.BindPFlag("tickers.file", rootCmd.PersistentFlags().Lookup("tickers-file")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for tickers-file failed")
	}

	rootCmd.PersistentFlags().String("column", "Symbol", "name of the column holding tickers in the tickers file")
	if err := viper.BindPFlag("tickers.column", rootCmd.PersistentFlags().Lookup("column")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for column failed")
	}

	viper.SetDefault("yahoo.suffix", ".NS")
	viper.SetDefault("yahoo.timeout", "30s")
	viper.SetDefault("yahoo.rate_limit", 120)
	viper.SetDefault("tickers.column", "Symbol")
	viper.SetDefault("cache.in_memory", false)
	viper.SetDefault("schedule.ingest", "0 18 * * 1-5")
	viper.SetDefault("schedule.crunch", "30 19 * * 1-5")
	viper.SetDefault("schedule.timezone", "Asia/Kolkata")
	viper.SetDefault("metrics.job", "nsedata")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// values in .env are exported before the environment is consulted
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search config in home directory with name ".nsedata" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".nsedata")
	}

	viper.SetDefault("cache.path", filepath.Join(home, ".nsedata", "cache"))

	viper.SetEnvPrefix("nsedata")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}
