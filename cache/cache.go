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
)

// NoExpiry keeps a value until it is deleted
const NoExpiry time.Duration = 0

// Cache is a string key-value store with optional per key expiry
type Cache interface {
	// Get returns the value stored at key. Expired and missing keys report
	// false with a nil error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value at key. A ttl of NoExpiry keeps the value forever.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
}
