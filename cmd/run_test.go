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
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/nsedata/cache"
	"github.com/penny-vault/nsedata/data"
	"github.com/penny-vault/nsedata/memstore"
	"github.com/penny-vault/nsedata/provider"
)

// staticMarketData returns a single bar for every ticker
type staticMarketData struct{}

func (staticMarketData) Name() string { return "static" }

func (staticMarketData) History(ctx context.Context, ticker string, period provider.Period) ([]*data.Bar, error) {
	return []*data.Bar{{Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 1, Close: 2, Volume: 10}}, nil
}

func (staticMarketData) Info(ctx context.Context, ticker string) (*provider.Info, error) {
	return &provider.Info{}, nil
}

func (staticMarketData) Statements(ctx context.Context, ticker string, statementType data.StatementType) ([]*provider.StatementColumn, error) {
	return nil, nil
}

var _ = Describe("runIngest", func() {
	var (
		server   *httptest.Server
		locker   sync.Mutex
		requests []string
	)

	requestPaths := func() []string {
		locker.Lock()
		defer locker.Unlock()
		return append([]string{}, requests...)
	}

	BeforeEach(func() {
		requests = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locker.Lock()
			requests = append(requests, r.URL.Path)
			locker.Unlock()
			w.WriteHeader(http.StatusOK)
		}))

		viper.Set("healthchecks.ping_url", server.URL)
		viper.Set("healthchecks.ingest", "ingest-check")
		viper.Set("metrics.pushgateway", server.URL)

		DeferCleanup(func() {
			viper.Set("healthchecks.ping_url", "")
			viper.Set("healthchecks.ingest", "")
			viper.Set("metrics.pushgateway", "")
			server.Close()
		})
	})

	It("does not report unmonitored passes", func() {
		summary, err := runIngest(context.Background(), staticMarketData{}, memstore.New(), cache.NewMemory(), []string{"TCS"}, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.NumProcessed).To(Equal(1))
		Expect(requestPaths()).To(BeEmpty())
	})

	It("reports monitored passes to healthchecks and the push gateway", func() {
		summary, err := runIngest(context.Background(), staticMarketData{}, memstore.New(), cache.NewMemory(), []string{"TCS"}, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(summary.NumProcessed).To(Equal(1))

		paths := requestPaths()
		Expect(paths).To(ContainElements("/ingest-check/start", "/ingest-check"))
		Expect(paths).To(ContainElement(Satisfy(func(path string) bool {
			return strings.HasPrefix(path, "/metrics/job/")
		})))
	})
})
