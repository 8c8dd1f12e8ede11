package searchfn

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltHistory", func() {
	var history *BoltHistory

	BeforeEach(func() {
		var err error
		history, err = NewBoltHistory(filepath.Join(GinkgoT().TempDir(), "history.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(history.Close()).To(Succeed())
	})

	Describe("SaveScan and ListScans", func() {
		BeforeEach(func() {
			base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			Expect(history.SaveScan(&ScanRecord{
				ID: "rec-1", UserID: "user-1", ImagePath: "user-1/scan-1.jpg", TotalFound: 2, CreatedAt: base,
			})).To(Succeed())
			Expect(history.SaveScan(&ScanRecord{
				ID: "rec-2", UserID: "user-2", ImagePath: "user-2/scan-2.jpg", TotalFound: 0, CreatedAt: base.Add(time.Minute),
			})).To(Succeed())
			Expect(history.SaveScan(&ScanRecord{
				ID: "rec-3", UserID: "user-1", ImagePath: "user-1/scan-3.jpg", TotalFound: 5, CreatedAt: base.Add(2 * time.Minute),
			})).To(Succeed())
		})

		It("returns only the given user's records", func() {
			records, err := history.ListScans("user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			for _, record := range records {
				Expect(record.UserID).To(Equal("user-1"))
			}
		})

		It("orders records newest first", func() {
			records, err := history.ListScans("user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].ID).To(Equal("rec-3"))
			Expect(records[1].ID).To(Equal("rec-1"))
		})

		It("round-trips all fields", func() {
			records, err := history.ListScans("user-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ImagePath).To(Equal("user-2/scan-2.jpg"))
			Expect(records[0].TotalFound).To(Equal(0))
			Expect(records[0].CreatedAt.Unix()).To(Equal(time.Date(2024, 6, 1, 12, 1, 0, 0, time.UTC).Unix()))
		})

		It("returns an empty slice for unknown users", func() {
			records, err := history.ListScans("nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})
	})
})
