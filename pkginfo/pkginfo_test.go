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
package pkginfo_test

import (
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/nsedata/pkginfo"
)

var _ = Describe("Build info", func() {
	var saved string

	BeforeEach(func() {
		saved = pkginfo.Version
		DeferCleanup(func() { pkginfo.Version = saved })
	})

	It("reports dev for binaries built without a version", func() {
		pkginfo.Version = ""
		Expect(pkginfo.Current().Version).To(Equal("dev"))
		Expect(pkginfo.UserAgent()).To(HavePrefix("nsedata/dev "))
	})

	It("includes the version and platform in the version string", func() {
		pkginfo.Version = "1.2.3"
		Expect(pkginfo.Current().Platform).To(Equal(runtime.GOOS + "/" + runtime.GOARCH))
		Expect(pkginfo.BuildVersionString()).To(HavePrefix("nsedata 1.2.3 " + runtime.GOOS))
		Expect(pkginfo.BuildVersionString()).To(ContainSubstring("Built with: " + runtime.Version()))
	})

	It("lists dependencies in sorted order", func() {
		deps := pkginfo.GetDependencyList()
		Expect(deps).ToNot(BeNil())
		for idx := 1; idx < len(deps); idx++ {
			Expect(deps[idx-1] <= deps[idx]).To(BeTrue())
		}
	})
})
