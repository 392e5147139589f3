package signals_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/watchdog-mux/watchdog-mux/internal/signals"
)

// The actual test suite.
var _ = t.Describe("Channel", func() {
	var sut *signals.Channel

	BeforeEach(func() {
		sut = signals.Notify()
	})

	AfterEach(func() {
		sut.Stop()
	})

	It("should deliver a hang-up as a reload", func() {
		// Given
		Expect(unix.Kill(os.Getpid(), unix.SIGHUP)).To(Succeed())

		// When
		var sig os.Signal
		Eventually(sut.C(), 5*time.Second).Should(Receive(&sig))

		// Then
		Expect(sig).To(Equal(signals.Hup))
		Expect(signals.IsReload(sig)).To(BeTrue())
	})

	It("should not classify termination signals as reload", func() {
		// Given
		// When
		// Then
		Expect(signals.IsReload(signals.Term)).To(BeFalse())
		Expect(signals.IsReload(signals.Interrupt)).To(BeFalse())
	})
})
