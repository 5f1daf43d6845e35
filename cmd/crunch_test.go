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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("crunch help", func() {
	It("names the aggregates that are computed", func() {
		Expect(crunchCmd.Long).To(ContainSubstring("market cap"))
		Expect(crunchCmd.Long).To(ContainSubstring("net income, revenue, basic EPS and total debt"))
		Expect(crunchCmd.Long).ToNot(ContainSubstring("enterprise value"))
	})

	It("binds --latest-fundamentals", func() {
		Expect(crunchCmd.Flags().Lookup("latest-fundamentals")).ToNot(BeNil())
	})
})
