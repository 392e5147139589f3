package watchdog_test

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"golang.org/x/sys/unix"

	"github.com/watchdog-mux/watchdog-mux/internal/watchdog"
	watchdogmock "github.com/watchdog-mux/watchdog-mux/test/mocks/watchdog"
)

// The actual test suite.
var _ = t.Describe("Notifier", func() {
	const validTimeout = 4 * time.Second

	var (
		errTest     = errors.New("test")
		ctx         = context.Background()
		now         = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
		sut         *watchdog.Notifier
		systemdMock *watchdogmock.MockSystemd
	)

	BeforeEach(func() {
		sut = watchdog.NewNotifier()
		mockCtrl := gomock.NewController(GinkgoT())
		systemdMock = watchdogmock.NewMockSystemd(mockCtrl)
		sut.SetSystemd(systemdMock)
	})

	It("should ping at half of the service watchdog timeout", func() {
		// Given
		gomock.InOrder(
			systemdMock.EXPECT().WatchdogEnabled().Return(validTimeout, nil),
			systemdMock.EXPECT().Notify(false, daemon.SdNotifyWatchdog).Return(true, nil),
			systemdMock.EXPECT().Notify(false, daemon.SdNotifyWatchdog).Return(true, nil),
		)

		// When
		err := sut.Start(ctx)
		sut.Ping(ctx, now)
		sut.Ping(ctx, now.Add(time.Second))
		sut.Ping(ctx, now.Add(2*time.Second))

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(sut.Interval()).To(Equal(validTimeout / 2))
		Expect(sut.Notifications()).To(BeEquivalentTo(2))
	})

	It("should retry a failed ping on the next call", func() {
		// Given
		gomock.InOrder(
			systemdMock.EXPECT().WatchdogEnabled().Return(validTimeout, nil),
			systemdMock.EXPECT().Notify(false, daemon.SdNotifyWatchdog).Return(false, errTest),
			systemdMock.EXPECT().Notify(false, daemon.SdNotifyWatchdog).Return(true, nil),
		)

		// When
		err := sut.Start(ctx)
		sut.Ping(ctx, now)
		sut.Ping(ctx, now.Add(time.Millisecond))

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(sut.Notifications()).To(BeEquivalentTo(1))
	})

	It("should not ping with disabled systemd watchdog", func() {
		// Given
		gomock.InOrder(
			systemdMock.EXPECT().WatchdogEnabled().Return(time.Duration(0), nil),
		)

		// When
		err := sut.Start(ctx)
		sut.Ping(ctx, now)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(sut.Interval()).To(BeZero())
		Expect(sut.Notifications()).To(BeZero())
	})

	It("should fail if WatchdogEnabled fails", func() {
		// Given
		gomock.InOrder(
			systemdMock.EXPECT().WatchdogEnabled().Return(time.Duration(0), errTest),
		)

		// When
		err := sut.Start(ctx)

		// Then
		Expect(err).To(HaveOccurred())
	})

	It("should fail with too low interval", func() {
		// Given
		gomock.InOrder(
			systemdMock.EXPECT().WatchdogEnabled().Return(time.Millisecond, nil),
		)

		// When
		err := sut.Start(ctx)

		// Then
		Expect(err).To(HaveOccurred())
	})

	It("should unset the notify socket with the stopping notification", func() {
		// Given
		gomock.InOrder(
			systemdMock.EXPECT().Notify(true, daemon.SdNotifyStopping).Return(true, nil),
		)

		// When
		sut.Stopping(ctx)

		// Then
		Expect(sut.Notifications()).To(BeEquivalentTo(1))
	})

	It("should send lifecycle notifications", func() {
		// Given
		gomock.InOrder(
			systemdMock.EXPECT().Notify(false, daemon.SdNotifyReady).Return(true, nil),
			systemdMock.EXPECT().Notify(false, "STATUS=1 active clients").Return(true, nil),
			systemdMock.EXPECT().Notify(true, daemon.SdNotifyStopping).Return(false, nil),
		)

		// When
		sut.Ready(ctx)
		sut.Status(ctx, "1 active clients")
		sut.Stopping(ctx)

		// Then
		Expect(sut.Notifications()).To(BeEquivalentTo(2))
	})
})

var _ = t.Describe("Device", func() {
	It("should fail to open a missing device", func() {
		// Given
		path := filepath.Join(t.MustTempDir("watchdog"), "watchdog")

		// When
		dev, err := watchdog.Open(path, false)

		// Then
		Expect(err).To(HaveOccurred())
		Expect(dev).To(BeNil())
	})

	It("should detect magic close support from the driver options", func() {
		// Given
		withMagicClose := &watchdog.Identity{Options: unix.WDIOF_MAGICCLOSE | unix.WDIOF_SETTIMEOUT}
		withoutMagicClose := &watchdog.Identity{Options: unix.WDIOF_KEEPALIVEPING}

		// When
		// Then
		Expect(withMagicClose.SupportsMagicClose()).To(BeTrue())
		Expect(withoutMagicClose.SupportsMagicClose()).To(BeFalse())
	})

	It("should format the driver identity", func() {
		// Given
		identity := &watchdog.Identity{Name: "Software Watchdog", FirmwareVersion: 0}

		// When
		res := identity.String()

		// Then
		Expect(res).To(Equal("Watchdog driver 'Software Watchdog', version 0"))
	})
})
