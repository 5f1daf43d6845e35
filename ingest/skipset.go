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
package ingest

import (
	"context"
	"errors"

	"github.com/penny-vault/nsedata/cache"
	"github.com/rs/zerolog"
)

const processedMarker = "processed"

// SkipSet records which tickers have been fully ingested. Markers never
// expire; Forget clears them so a ticker is ingested again.
type SkipSet struct {
	Cache cache.Cache
}

func NewSkipSet(c cache.Cache) *SkipSet {
	return &SkipSet{Cache: c}
}

// Processed reports whether ticker carries the processed marker. A cache
// failure is logged and reported as not processed.
func (skip *SkipSet) Processed(ctx context.Context, ticker string) (bool, error) {
	val, ok, err := skip.Cache.Get(ctx, ticker)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("Ticker", ticker).Msg("could not read processed marker, ingesting ticker again")
		return false, err
	}

	return ok && val == processedMarker, nil
}

func (skip *SkipSet) Mark(ctx context.Context, ticker string) error {
	return skip.Cache.Set(ctx, ticker, processedMarker, cache.NoExpiry)
}

// Forget removes the processed marker of every ticker
func (skip *SkipSet) Forget(ctx context.Context, tickers ...string) error {
	var errs []error
	for _, ticker := range tickers {
		if err := skip.Cache.Delete(ctx, ticker); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
