package marker_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/watchdog-mux/watchdog-mux/internal/marker"
)

// The actual test suite.
var _ = t.Describe("Marker", func() {
	var (
		sut  *marker.Marker
		path string
	)

	BeforeEach(func() {
		path = filepath.Join(t.MustTempDir("marker"), "watchdog-mux.active")
		sut = marker.New(path)
	})

	It("should not exist initially", func() {
		// Given
		// When
		exists, err := sut.Exists()

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
		Expect(sut.Check()).To(Succeed())
		Expect(sut.Path()).To(Equal(path))
	})

	It("should create the marker as a directory", func() {
		// Given
		// When
		err := sut.Ensure()

		// Then
		Expect(err).NotTo(HaveOccurred())
		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("should tolerate an existing marker on Ensure", func() {
		// Given
		Expect(sut.Ensure()).To(Succeed())

		// When
		err := sut.Ensure()

		// Then
		Expect(err).NotTo(HaveOccurred())
	})

	It("should refuse to start with a stale marker", func() {
		// Given
		Expect(sut.Ensure()).To(Succeed())

		// When
		err := sut.Check()

		// Then
		Expect(err).To(MatchError(marker.ErrPresent))
	})

	It("should remove the marker and tolerate a missing one", func() {
		// Given
		Expect(sut.Ensure()).To(Succeed())

		// When
		err := sut.Remove()

		// Then
		Expect(err).NotTo(HaveOccurred())
		exists, err := sut.Exists()
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
		Expect(sut.Remove()).To(Succeed())
	})

	It("should fail to create the marker below a missing directory", func() {
		// Given
		sut = marker.New(filepath.Join(path, "missing", "active"))

		// When
		err := sut.Ensure()

		// Then
		Expect(err).To(HaveOccurred())
	})
})
