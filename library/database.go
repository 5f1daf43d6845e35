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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoDatabaseURL = errors.New("database url is not configured")
)

// connectRetries bounds the number of pings made while the database starts up
const connectRetries = 5

// Library is the PostgreSQL store of stocks, bars, fundamentals, statements
// and published summaries
type Library struct {
	DBUrl string

	Pool *pgxpool.Pool
}

func New(dbURL string) *Library {
	return &Library{DBUrl: dbURL}
}

// Connect to the database configured for the library. The database is
// pinged with exponential backoff so that a run started alongside the
// database does not fail immediately.
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Pool != nil {
		return nil
	}

	if myLibrary.DBUrl == "" {
		return ErrNoDatabaseURL
	}

	pool, err := pgxpool.New(ctx, myLibrary.DBUrl)
	if err != nil {
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectRetries), ctx)
	err = backoff.RetryNotify(func() error {
		return pool.Ping(ctx)
	}, bo, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("Wait", wait).Msg("database is not reachable, retrying")
	})
	if err != nil {
		pool.Close()
		return err
	}

	myLibrary.Pool = pool
	return nil
}

// Connect creates a library for dbURL and connects to it
func Connect(ctx context.Context, dbURL string) (*Library, error) {
	myLibrary := New(dbURL)
	if err := myLibrary.Connect(ctx); err != nil {
		return nil, err
	}
	return myLibrary, nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	if myLibrary.Pool != nil {
		myLibrary.Pool.Close()
	}
}

// withTx runs fn inside a transaction on a single acquired connection. The
// transaction is committed when fn succeeds and rolled back otherwise.
func (myLibrary *Library) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			if !errors.Is(err, pgx.ErrTxClosed) {
				log.Error().Err(err).Msg("error rolling back tx")
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// NumStocks returns the number of stocks that have been ingested
func (myLibrary *Library) NumStocks(ctx context.Context) (int, error) {
	return myLibrary.count(ctx, "SELECT count(*) FROM stock")
}

// NumBars returns the total number of stored daily bars
func (myLibrary *Library) NumBars(ctx context.Context) (int, error) {
	return myLibrary.count(ctx, "SELECT count(*) FROM stock_data")
}

func (myLibrary *Library) NumFundamentals(ctx context.Context) (int, error) {
	return myLibrary.count(ctx, "SELECT count(*) FROM fundamentals")
}

func (myLibrary *Library) NumStatements(ctx context.Context) (int, error) {
	return myLibrary.count(ctx, "SELECT count(*) FROM financials")
}

func (myLibrary *Library) count(ctx context.Context, sql string) (int, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, sql).Scan(&count)
	return count, err
}

// LastUpdated returns the time the most recent bar was written
func (myLibrary *Library) LastUpdated(ctx context.Context) (time.Time, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Release()

	var lastUpdated time.Time
	err = conn.QueryRow(ctx, "SELECT coalesce(max(updated_at), '0001-01-01'::timestamptz) FROM stock_data").Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, err
	}

	return lastUpdated, nil
}

// LatestBarDate returns the most recent bar date across all stocks
func (myLibrary *Library) LatestBarDate(ctx context.Context) (time.Time, error) {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Release()

	var latest time.Time
	err = conn.QueryRow(ctx, "SELECT coalesce(max(date), '0001-01-01'::date) FROM stock_data").Scan(&latest)
	return latest, err
}
