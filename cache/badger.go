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
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
)

// Badger is a Cache backed by an embedded badger database
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the badger database at path. When inMemory
// is set nothing is written to disk and path is ignored.
func OpenBadger(path string, inMemory bool) (*Badger, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}

	// badger's own logger is noisy on every open
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}

	log.Debug().Str("Path", path).Bool("InMemory", inMemory).Msg("opened badger cache")
	return &Badger{db: db}, nil
}

func (cache *Badger) Get(ctx context.Context, key string) (string, bool, error) {
	var value []byte
	err := cache.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return string(value), true, nil
}

func (cache *Badger) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return cache.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(value))
		if ttl > NoExpiry {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (cache *Badger) Delete(ctx context.Context, key string) error {
	return cache.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (cache *Badger) Close() error {
	return cache.db.Close()
}
