package metrics_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/watchdog-mux/watchdog-mux/pkg/config"
	"github.com/watchdog-mux/watchdog-mux/server"
	"github.com/watchdog-mux/watchdog-mux/server/metrics"
)

type staticSource struct {
	snapshot server.Snapshot
}

func (s *staticSource) Snapshot() server.Snapshot {
	return s.snapshot
}

// The actual test suite.
var _ = t.Describe("Metrics", func() {
	var (
		source *staticSource
		cfg    *config.MetricsConfig
	)

	BeforeEach(func() {
		source = &staticSource{snapshot: server.Snapshot{
			State:          server.StateServing,
			UpdatesEnabled: true,
			ActiveClients:  2,
			Capacity:       100,
			Keepalives:     42,
			Accepted:       3,
		}}
		cfg = &config.MetricsConfig{EnableMetrics: true, MetricsHost: "127.0.0.1", MetricsPort: 0}
	})

	It("should fail without source", func() {
		// Given
		// When
		sut, err := metrics.New(cfg, nil)

		// Then
		Expect(err).To(HaveOccurred())
		Expect(sut).To(BeNil())
	})

	It("should read the current snapshot on every scrape", func() {
		// Given
		sut, err := metrics.New(cfg, source)
		Expect(err).NotTo(HaveOccurred())

		// When
		source.snapshot.UpdatesEnabled = false
		source.snapshot.State = server.StateDraining

		// Then
		Expect(testutil.GatherAndCompare(sut.Registry(), strings.NewReader(`
# HELP watchdog_mux_updates_enabled Whether the hardware watchdog is still refreshed (1) or left to expire (0)
# TYPE watchdog_mux_updates_enabled gauge
watchdog_mux_updates_enabled 0
# HELP watchdog_mux_state Loop state: 0 init, 1 serving, 2 draining, 3 terminated
# TYPE watchdog_mux_state gauge
watchdog_mux_state 2
# HELP watchdog_mux_active_clients Number of outstanding client leases
# TYPE watchdog_mux_active_clients gauge
watchdog_mux_active_clients 2
# HELP watchdog_mux_keepalives_total Successful hardware watchdog refreshes
# TYPE watchdog_mux_keepalives_total counter
watchdog_mux_keepalives_total 42
`),
			"watchdog_mux_updates_enabled",
			"watchdog_mux_state",
			"watchdog_mux_active_clients",
			"watchdog_mux_keepalives_total",
		)).To(Succeed())
	})

	It("should register every collector", func() {
		// Given
		sut, err := metrics.New(cfg, source)
		Expect(err).NotTo(HaveOccurred())

		// When
		count, err := testutil.GatherAndCount(sut.Registry())

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(11))
	})

	It("should serve the metrics endpoint", func() {
		// Given
		sut, err := metrics.New(cfg, source)
		Expect(err).NotTo(HaveOccurred())
		srv := httptest.NewServer(sut.Handler())
		defer srv.Close()

		// When
		resp, err := http.Get(srv.URL + "/metrics")

		// Then
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("watchdog_mux_clients_accepted_total 3"))
	})

	It("should start and stop the HTTP endpoint", func() {
		// Given
		sut, err := metrics.New(cfg, source)
		Expect(err).NotTo(HaveOccurred())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// When
		addr, err := sut.Start(ctx)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() error {
			resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
			if err != nil {
				return err
			}
			return resp.Body.Close()
		}).Should(Succeed())
	})

	It("should fail to start without config", func() {
		// Given
		sut, err := metrics.New(nil, source)
		Expect(err).NotTo(HaveOccurred())

		// When
		addr, err := sut.Start(context.Background())

		// Then
		Expect(err).To(HaveOccurred())
		Expect(addr).To(BeNil())
	})
})
