package integration

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	directoryapp "github.com/campuslink/campuslink-server/internal/app"
	"github.com/campuslink/campuslink-server/test-integration/directory-api/helpers"
)

const testAPIKey = "integration-key"

var _ = Describe("Open status freshness", Label("freshness"), func() {
	var (
		tempDir      string
		dbPath       string
		places       *helpers.MockPlacesServer
		publisher    *helpers.RecordingPublisher
		serverHelper *helpers.ServerTestHelper
	)

	startServer := func(ttl string, seed bool) {
		configFile := helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
			SQLitePath:     dbPath,
			PlacesEndpoint: places.Endpoint(),
			PlacesAPIKey:   testAPIKey,
			FreshnessTTL:   ttl,
		})

		opts := []directoryapp.DirectoryAppOptions{directoryapp.WithPublisher(publisher)}
		if seed {
			opts = append(opts, directoryapp.WithSeedRecords(helpers.CreateTestRecords()))
		}
		serverHelper = helpers.NewServerTestHelper(ctx, configFile, opts...)
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	}

	BeforeEach(func() {
		tempDir = createTempDir("directory-freshness-test-")
		dbPath = filepath.Join(tempDir, "directory.db")
		places = helpers.NewMockPlacesServer(testAPIKey)
		publisher = &helpers.RecordingPublisher{}
	})

	AfterEach(func() {
		if serverHelper != nil {
			Expect(serverHelper.StopServer()).To(Succeed())
		}
		places.Close()
		cleanupTempDir(tempDir)
	})

	Context("With the default TTL", func() {
		BeforeEach(func() {
			startServer("15m", true)
		})

		It("should refresh a never-checked record once and serve it from storage afterwards", func() {
			places.SetOpen(helpers.CanteenPlaceID, true)

			before := time.Now().UTC()
			rec := serverHelper.GetService(helpers.CanteenID)
			Expect(rec.IsOpen).To(BeTrue())
			Expect(rec.StatusLastChecked).NotTo(BeNil())
			Expect(*rec.StatusLastChecked).To(BeTemporally(">=", before.Truncate(time.Microsecond)))
			Expect(places.Calls(helpers.CanteenPlaceID)).To(Equal(1))

			places.SetOpen(helpers.CanteenPlaceID, false)
			again := serverHelper.GetService(helpers.CanteenID)
			Expect(again.IsOpen).To(BeTrue(), "a fresh record is not refetched")
			Expect(again.StatusLastChecked).To(Equal(rec.StatusLastChecked))
			Expect(places.Calls(helpers.CanteenPlaceID)).To(Equal(1))
		})

		It("should publish an event only when the status changes", func() {
			places.SetOpen(helpers.CanteenPlaceID, true)
			places.SetOpen(helpers.XeroxPlaceID, false)

			serverHelper.GetService(helpers.CanteenID)
			serverHelper.GetService(helpers.XeroxID)

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].ServiceID).To(Equal(helpers.CanteenID))
			Expect(events[0].Previous).To(BeFalse())
			Expect(events[0].IsOpen).To(BeTrue())
		})

		It("should keep the stored status when Places fails", func() {
			places.SetFailing(helpers.PharmacyPlaceID)

			rec := serverHelper.GetService(helpers.PharmacyID)
			Expect(rec.IsOpen).To(BeFalse())
			Expect(rec.StatusLastChecked).To(BeNil())

			By("retrying on the next read because the record is still stale")
			places.SetOpen(helpers.PharmacyPlaceID, true)
			rec = serverHelper.GetService(helpers.PharmacyID)
			Expect(rec.IsOpen).To(BeTrue())
			Expect(rec.StatusLastChecked).NotTo(BeNil())
			Expect(places.Calls(helpers.PharmacyPlaceID)).To(Equal(2))
		})

		It("should keep the stored status when Places has no record of the place", func() {
			rec := serverHelper.GetService(helpers.XeroxID)
			Expect(rec.StatusLastChecked).To(BeNil())
			Expect(places.Calls(helpers.XeroxPlaceID)).To(Equal(1))
		})

		It("should never contact Places for a record without an external reference", func() {
			rec := serverHelper.GetService(helpers.LibraryID)
			Expect(rec.StatusLastChecked).To(BeNil())
			Expect(places.Calls("")).To(BeZero())
		})

		It("should not refresh records while listing", func() {
			places.SetOpen(helpers.CanteenPlaceID, true)

			resp := serverHelper.ListServices(nil)
			Expect(resp.Count).To(Equal(4))
			for _, rec := range resp.Services {
				Expect(rec.StatusLastChecked).To(BeNil(), rec.Name)
			}
			Expect(places.Calls(helpers.CanteenPlaceID)).To(BeZero())
		})

		It("should keep refreshed status across restarts", func() {
			places.SetOpen(helpers.CanteenPlaceID, true)
			first := serverHelper.GetService(helpers.CanteenID)

			Expect(serverHelper.StopServer()).To(Succeed())
			startServer("15m", false)

			rec := serverHelper.GetService(helpers.CanteenID)
			Expect(rec.IsOpen).To(BeTrue())
			Expect(rec.StatusLastChecked).NotTo(BeNil())
			Expect(rec.StatusLastChecked.Equal(*first.StatusLastChecked)).To(BeTrue())
			Expect(places.Calls(helpers.CanteenPlaceID)).To(Equal(1))
		})
	})

	Context("With a short TTL", func() {
		BeforeEach(func() {
			startServer("200ms", true)
		})

		It("should refetch once the last check is a TTL old", func() {
			places.SetOpen(helpers.CanteenPlaceID, true)
			first := serverHelper.GetService(helpers.CanteenID)
			Expect(first.IsOpen).To(BeTrue())

			places.SetOpen(helpers.CanteenPlaceID, false)
			Eventually(func() bool {
				return serverHelper.GetService(helpers.CanteenID).IsOpen
			}, 5*time.Second, 100*time.Millisecond).Should(BeFalse())

			Expect(places.Calls(helpers.CanteenPlaceID)).To(BeNumerically(">=", 2))
			Expect(publisher.Events()).To(HaveLen(2))
		})
	})
})
