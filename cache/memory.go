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
	"time"

	"github.com/alphadose/haxmap"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// Memory is a process local Cache used for dry runs and tests
type Memory struct {
	entries *haxmap.Map[string, memoryEntry]
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: haxmap.New[string, memoryEntry](),
		now:     time.Now,
	}
}

// WithClock replaces the time source used to evaluate expiry
func (cache *Memory) WithClock(now func() time.Time) *Memory {
	cache.now = now
	return cache
}

func (cache *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	entry, ok := cache.entries.Get(key)
	if !ok {
		return "", false, nil
	}

	if !entry.expires.IsZero() && !cache.now().Before(entry.expires) {
		cache.entries.Del(key)
		return "", false, nil
	}

	return entry.value, true, nil
}

func (cache *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > NoExpiry {
		entry.expires = cache.now().Add(ttl)
	}

	cache.entries.Set(key, entry)
	return nil
}

func (cache *Memory) Delete(ctx context.Context, key string) error {
	cache.entries.Del(key)
	return nil
}

// Len returns the number of stored keys, including expired keys that have
// not been read since expiring
func (cache *Memory) Len() int {
	return int(cache.entries.Len())
}
