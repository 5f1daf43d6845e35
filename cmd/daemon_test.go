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
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
)

var _ = Describe("scheduler", func() {
	var quiet cronLogger

	BeforeEach(func() {
		quiet = cronLogger{logger: zerolog.Nop()}
	})

	It("registers both jobs", func() {
		sched, err := newScheduler(time.UTC, quiet, "0 18 * * 1-5", func() {}, "30 19 * * 1-5", func() {})
		Expect(err).ToNot(HaveOccurred())
		Expect(sched.cron.Entries()).To(HaveLen(2))
	})

	It("rejects invalid schedules", func() {
		_, err := newScheduler(time.UTC, quiet, "not a schedule", func() {}, "@daily", func() {})
		Expect(err).To(MatchError(ContainSubstring("ingest schedule")))

		_, err = newScheduler(time.UTC, quiet, "@daily", func() {}, "61 * * * *", func() {})
		Expect(err).To(MatchError(ContainSubstring("crunch schedule")))
	})

	It("never runs a job twice at once", func() {
		var ingestCalls, crunchCalls atomic.Int32
		started := make(chan struct{}, 2)
		release := make(chan struct{})

		sched, err := newScheduler(time.UTC, quiet,
			"@every 1h", func() {
				ingestCalls.Add(1)
				started <- struct{}{}
				<-release
			},
			"@every 1h", func() { crunchCalls.Add(1) },
		)
		Expect(err).ToNot(HaveOccurred())

		done := make(chan struct{})
		go func() {
			defer close(done)
			sched.ingest.Run()
		}()
		Eventually(started).Should(Receive())

		// a second start while the first pass runs is skipped
		sched.ingest.Run()
		Expect(ingestCalls.Load()).To(Equal(int32(1)))

		// other jobs are not blocked
		sched.crunch.Run()
		Expect(crunchCalls.Load()).To(Equal(int32(1)))

		close(release)
		Eventually(done).Should(BeClosed())

		sched.ingest.Run()
		Expect(ingestCalls.Load()).To(Equal(int32(2)))
	})
})
