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
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/nsedata/db"
	"github.com/penny-vault/nsedata/healthcheck"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type dbConfig struct {
	URL string `toml:"url"`
}

type cacheConfig struct {
	Path string `toml:"path"`
}

type tickersConfig struct {
	File   string `toml:"file"`
	Column string `toml:"column"`
}

type yahooConfig struct {
	Suffix    string `toml:"suffix"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"`
}

type scheduleConfig struct {
	Ingest string `toml:"ingest"`
	Crunch string `toml:"crunch"`
}

type healthchecksConfig struct {
	APIKey string `toml:"apikey"`
	Ingest string `toml:"ingest"`
	Crunch string `toml:"crunch"`
}

// configFile is the layout of $HOME/.nsedata.toml
type configFile struct {
	DB           dbConfig            `toml:"db"`
	Cache        cacheConfig         `toml:"cache"`
	Tickers      tickersConfig       `toml:"tickers"`
	Yahoo        yahooConfig         `toml:"yahoo"`
	Schedule     scheduleConfig      `toml:"schedule"`
	Healthchecks *healthchecksConfig `toml:"healthchecks,omitempty"`
}

func validateSchedule(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather configuration, setup the database schema and save a config file",
	Run: func(cmd *cobra.Command, args []string) {
		conf := configFile{
			DB:    dbConfig{URL: viper.GetString("db.url")},
			Cache: cacheConfig{Path: viper.GetString("cache.path")},
			Tickers: tickersConfig{
				File:   viper.GetString("tickers.file"),
				Column: viper.GetString("tickers.column"),
			},
			Yahoo: yahooConfig{
				Suffix:    viper.GetString("yahoo.suffix"),
				Timeout:   viper.GetDuration("yahoo.timeout").String(),
				RateLimit: viper.GetInt("yahoo.rate_limit"),
			},
			Schedule: scheduleConfig{
				Ingest: viper.GetString("schedule.ingest"),
				Crunch: viper.GetString("schedule.crunch"),
			},
		}

		var useHealthchecks bool

		form := huh.NewForm(
			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&conf.DB.URL).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),

			// Where tickers come from and where processed tickers are remembered
			huh.NewGroup(
				huh.NewInput().
					Title("Spreadsheet or CSV file listing the tickers to ingest:").
					Value(&conf.Tickers.File).
					Validate(func(fn string) error {
						if fn == "" {
							return nil
						}
						_, err := os.Stat(fn)
						return err
					}),

				huh.NewInput().
					Title("Column holding the ticker symbols:").
					Value(&conf.Tickers.Column),

				huh.NewInput().
					Title("Directory for the processed ticker cache:").
					Value(&conf.Cache.Path),
			),

			// When the daemon runs
			huh.NewGroup(
				huh.NewInput().
					Title("Cron schedule for ingest (Asia/Kolkata, the market closes at 15:30):").
					Value(&conf.Schedule.Ingest).
					Validate(validateSchedule),

				huh.NewInput().
					Title("Cron schedule for crunch:").
					Value(&conf.Schedule.Crunch).
					Validate(validateSchedule),

				huh.NewConfirm().
					Title("Monitor scheduled jobs with healthchecks.io?").
					Value(&useHealthchecks),
			),
		)

		if err := form.Run(); err != nil {
			log.Fatal().Err(err).Msg("error gathering settings")
		}

		if useHealthchecks {
			conf.Healthchecks = createHealthchecks(conf.Schedule)
		}

		log.Info().Msg("creating database tables")

		if err := db.Migrate(conf.DB.URL); err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		version, _, err := db.Version(conf.DB.URL)
		if err != nil {
			log.Warn().Err(err).Msg("could not read schema version")
		}

		log.Info().Uint("SchemaVersion", version).Msg("database tables created")

		if err := os.MkdirAll(conf.Cache.Path, 0o755); err != nil {
			log.Fatal().Err(err).Str("Path", conf.Cache.Path).Msg("could not create cache directory")
		}

		// save settings to config file
		configFN := cfgFile
		if configFN == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatal().Err(err).Msg("could not determine user home directory")
			}
			configFN = filepath.Join(home, ".nsedata.toml")
		}

		log.Info().Str("ConfigFile", configFN).Msg("Saving configuration to config file")
		configData, err := toml.Marshal(conf)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0600)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("nsedata has been initialized")
	},
}

// createHealthchecks asks for a healthchecks.io API key and creates one
// check per scheduled job
func createHealthchecks(schedule scheduleConfig) *healthchecksConfig {
	conf := &healthchecksConfig{APIKey: viper.GetString("healthchecks.apikey")}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("healthchecks.io API key:").
				Value(&conf.APIKey).
				Password(true).
				Validate(func(key string) error {
					if key == "" {
						return errors.New("an API key is required")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		log.Fatal().Err(err).Msg("error gathering healthchecks.io settings")
	}

	hc := healthcheck.New(conf.APIKey)

	var err error
	conf.Ingest, err = hc.Create("nsedata ingest", []string{"nsedata", "ingest"}, schedule.Ingest)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create ingest healthcheck")
	}

	conf.Crunch, err = hc.Create("nsedata crunch", []string{"nsedata", "crunch"}, schedule.Crunch)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create crunch healthcheck")
	}

	log.Info().Str("IngestCheck", conf.Ingest).Str("CrunchCheck", conf.Crunch).Msg("created healthchecks")
	return conf
}

func init() {
	rootCmd.AddCommand(initCmd)
}
