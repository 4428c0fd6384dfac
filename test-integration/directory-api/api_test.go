package integration

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	directoryapp "github.com/campuslink/campuslink-server/internal/app"
	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/test-integration/directory-api/helpers"
)

func names(records []directory.ServiceRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

var _ = Describe("Directory API", Label("api"), func() {
	var (
		tempDir      string
		serverHelper *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		tempDir = createTempDir("directory-api-test-")

		configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
			SQLitePath: filepath.Join(tempDir, "directory.db"),
		})
		serverHelper = helpers.NewServerTestHelper(ctx, configFile,
			directoryapp.WithSeedRecords(helpers.CreateTestRecords()))
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
		cleanupTempDir(tempDir)
	})

	Context("Operational endpoints", func() {
		It("should report health and version", func() {
			status, body := serverHelper.Get("/health")
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("healthy"))

			status, body = serverHelper.Get("/version")
			Expect(status).To(Equal(http.StatusOK))

			var version map[string]any
			Expect(json.Unmarshal(body, &version)).To(Succeed())
			Expect(version).To(HaveKey("version"))
		})
	})

	Context("Listing services", func() {
		It("should list every seeded service", func() {
			resp := serverHelper.ListServices(nil)
			Expect(resp.Count).To(Equal(4))
			Expect(resp.Services).To(HaveLen(4))
			Expect(names(resp.Services)).To(ConsistOf(
				"Campus Canteen", "Maa Xerox", "Apollo Pharmacy", "Central Library"))
		})

		It("should filter by category", func() {
			resp := serverHelper.ListServices(url.Values{"category": {"Food"}})
			Expect(names(resp.Services)).To(ConsistOf("Campus Canteen"))

			resp = serverHelper.ListServices(url.Values{"category": {"All"}})
			Expect(resp.Count).To(Equal(4))
		})

		It("should search names and descriptions case-insensitively", func() {
			resp := serverHelper.ListServices(url.Values{"search": {"STUDENT"}})
			Expect(names(resp.Services)).To(ConsistOf("Campus Canteen", "Apollo Pharmacy"))

			resp = serverHelper.ListServices(url.Values{"search": {"xerox"}})
			Expect(names(resp.Services)).To(ConsistOf("Maa Xerox"))
		})

		It("should combine category and search", func() {
			resp := serverHelper.ListServices(url.Values{"category": {"Pharmacy"}, "search": {"canteen"}})
			Expect(resp.Count).To(BeZero())
			Expect(resp.Services).To(BeEmpty())
		})
	})

	Context("Fetching one service", func() {
		It("should return the record", func() {
			rec := serverHelper.GetService(helpers.LibraryID)
			Expect(rec.Name).To(Equal("Central Library"))
			Expect(rec.Category).To(Equal("Study"))
			Expect(rec.ExternalRef).To(BeNil())
			Expect(rec.StatusLastChecked).To(BeNil())
		})

		It("should return 404 for an unknown id", func() {
			status, body := serverHelper.Get("/api/services/" + uuid.NewString())
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(string(body)).To(ContainSubstring("error"))
		})

		It("should return 400 for a malformed id", func() {
			status, _ := serverHelper.Get("/api/services/not-a-uuid")
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})
})
