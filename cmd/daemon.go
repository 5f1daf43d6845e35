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
	"time"

	"github.com/penny-vault/nsedata/cache"
	"github.com/penny-vault/nsedata/ingest"
	"github.com/penny-vault/nsedata/library"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runNow bool

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run ingest and crunch on their configured schedules",
	Long: `The daemon sub-command stays in the foreground and runs an ingest pass
on the schedule.ingest cron expression and a crunch on the schedule.crunch
cron expression. Schedules are evaluated in schedule.timezone. Every scheduled
ingest pass starts by forgetting the processed markers of the configured
tickers so that each pass brings every ticker up to date. The daemon stops on
SIGINT or SIGTERM after the running jobs finish.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signalContext()
		defer stop()

		tickerList := tickerList(args)

		badgerCache := openCache()
		defer badgerCache.Close()

		tz := viper.GetString("schedule.timezone")
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatal().Err(err).Str("TimeZone", tz).Msg("invalid schedule time zone")
		}

		cronLog := cronLogger{logger: log.With().Str("Component", "cron").Logger()}
		ingestSchedule := viper.GetString("schedule.ingest")
		crunchSchedule := viper.GetString("schedule.crunch")

		sched, err := newScheduler(loc, cronLog,
			ingestSchedule, func() { ingestJob(ctx, badgerCache, tickerList) },
			crunchSchedule, func() { crunchJob(ctx, badgerCache) },
		)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid schedule")
		}

		log.Info().Str("IngestSchedule", ingestSchedule).Str("CrunchSchedule", crunchSchedule).
			Int("NumTickers", len(tickerList)).Msg("starting scheduler")
		sched.cron.Start()

		if runNow {
			sched.ingest.Run()
			sched.crunch.Run()
		}

		<-ctx.Done()
		log.Info().Msg("shutting down, waiting for running jobs")
		<-sched.cron.Stop().Done()
	},
}

// scheduler holds the ingest and crunch jobs wrapped so that a job never
// runs twice at once, whether started by the schedule or by hand
type scheduler struct {
	cron   *cron.Cron
	ingest cron.Job
	crunch cron.Job
}

func newScheduler(loc *time.Location, logger cron.Logger, ingestSpec string, ingest func(), crunchSpec string, crunch func()) (*scheduler, error) {
	chain := cron.NewChain(cron.SkipIfStillRunning(logger))
	sched := &scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithLogger(logger)),
		ingest: chain.Then(cron.FuncJob(ingest)),
		crunch: chain.Then(cron.FuncJob(crunch)),
	}

	if _, err := sched.cron.AddJob(ingestSpec, sched.ingest); err != nil {
		return nil, fmt.Errorf("ingest schedule %q: %w", ingestSpec, err)
	}

	if _, err := sched.cron.AddJob(crunchSpec, sched.crunch); err != nil {
		return nil, fmt.Errorf("crunch schedule %q: %w", crunchSpec, err)
	}

	return sched, nil
}

func ingestJob(ctx context.Context, kv cache.Cache, tickerList []string) {
	if ctx.Err() != nil {
		return
	}

	if err := ingest.NewSkipSet(kv).Forget(ctx, tickerList...); err != nil {
		log.Error().Err(err).Msg("could not reset processed tickers")
		return
	}

	myLibrary, err := library.Connect(ctx, viper.GetString("db.url"))
	if err != nil {
		log.Error().Err(err).Msg("could not connect to database")
		return
	}
	defer myLibrary.Close()

	summary, err := runIngest(ctx, newMarketData(), myLibrary, kv, tickerList, true)
	if err != nil {
		log.Error().Err(err).Msg("ingest failed")
	}
	if summary != nil {
		log.Info().Object("Summary", summary).Msg("ingest complete")
	}
}

func crunchJob(ctx context.Context, kv cache.Cache) {
	if ctx.Err() != nil {
		return
	}

	myLibrary, err := library.Connect(ctx, viper.GetString("db.url"))
	if err != nil {
		log.Error().Err(err).Msg("could not connect to database")
		return
	}
	defer myLibrary.Close()

	summaryData, err := runCrunch(ctx, myLibrary, kv)
	if err != nil {
		log.Error().Err(err).Msg("crunch failed")
		return
	}

	log.Info().Int("NumStocks", summaryData.NumStocks).Msg("crunch complete")
}

// cronLogger routes scheduler messages through zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (cl cronLogger) Info(msg string, keysAndValues ...any) {
	cl.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (cl cronLogger) Error(err error, msg string, keysAndValues ...any) {
	cl.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().BoolVar(&runNow, "run-now", false, "run an ingest pass and a crunch immediately after starting")
}
