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
package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/nsedata/metrics"
)

var _ = Describe("Push", func() {
	It("is a no-op without a pushgateway", func() {
		Expect(metrics.Push(context.Background(), "", "nsedata")).To(Succeed())
	})

	It("sends the registry to the pushgateway", func() {
		metrics.TickersProcessed.WithLabelValues("processed").Inc()

		var path, body string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			raw, _ := io.ReadAll(r.Body)
			body = string(raw)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		Expect(metrics.Push(context.Background(), server.URL, "nsedata_ingest")).To(Succeed())
		Expect(path).To(Equal("/metrics/job/nsedata_ingest"))
		Expect(strings.Contains(body, "nsedata_ingest_tickers_total")).To(BeTrue())
	})

	It("reports gateway failures", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		Expect(metrics.Push(context.Background(), server.URL, "nsedata")).ToNot(Succeed())
	})
})
