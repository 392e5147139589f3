package listener_test

import (
	"context"
	"net"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/watchdog-mux/watchdog-mux/internal/listener"
)

// The actual test suite.
var _ = t.Describe("Listener", func() {
	var (
		ctx  = context.Background()
		path string
	)

	BeforeEach(func() {
		path = filepath.Join(t.MustTempDir("listener"), "mux.sock")
	})

	t.Describe("Listen", func() {
		It("should succeed", func() {
			// Given
			// When
			l, err := listener.Listen(path)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(l).NotTo(BeNil())
			defer l.Close()
			_, err = os.Stat(path)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should replace a stale socket file", func() {
			// Given
			Expect(os.WriteFile(path, nil, 0o600)).To(Succeed())

			// When
			l, err := listener.Listen(path)

			// Then
			Expect(err).NotTo(HaveOccurred())
			defer l.Close()
			conn, err := net.Dial("unix", path)
			Expect(err).NotTo(HaveOccurred())
			conn.Close()
		})

		It("should fail to bind below a file", func() {
			// Given
			Expect(os.WriteFile(path, nil, 0o600)).To(Succeed())

			// When
			l, err := listener.Listen(filepath.Join(path, "sub", "mux.sock"))

			// Then
			Expect(err).To(HaveOccurred())
			Expect(l).To(BeNil())
		})
	})

	t.Describe("Resolve", func() {
		It("should create the socket without activated descriptors", func() {
			// Given
			// When
			sut, err := listener.Resolve(ctx, path, func() []*os.File { return nil })

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(sut.Created()).To(BeTrue())
			Expect(sut.Path()).To(Equal(path))

			Expect(sut.Close()).To(Succeed())
			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("should use a single activated descriptor and keep its path", func() {
			// Given
			activatedPath := filepath.Join(filepath.Dir(path), "activated.sock")
			l, err := net.Listen("unix", activatedPath)
			Expect(err).NotTo(HaveOccurred())
			l.(*net.UnixListener).SetUnlinkOnClose(false)
			file, err := l.(*net.UnixListener).File()
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Close()).To(Succeed())

			// When
			sut, err := listener.Resolve(ctx, path, func() []*os.File { return []*os.File{file} })

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(sut.Created()).To(BeFalse())
			Expect(sut.Path()).To(Equal(activatedPath))
			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())

			conn, err := net.Dial("unix", activatedPath)
			Expect(err).NotTo(HaveOccurred())
			conn.Close()

			Expect(sut.Close()).To(Succeed())
			_, err = os.Stat(activatedPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should fail with more than one activated descriptor", func() {
			// Given
			r, w, err := os.Pipe()
			Expect(err).NotTo(HaveOccurred())

			// When
			sut, err := listener.Resolve(ctx, path, func() []*os.File { return []*os.File{r, w} })

			// Then
			Expect(err).To(MatchError(listener.ErrTooManyListeners))
			Expect(sut).To(BeNil())
			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
