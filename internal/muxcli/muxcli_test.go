package muxcli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/urfave/cli/v2"

	"github.com/watchdog-mux/watchdog-mux/internal/muxcli"
	"github.com/watchdog-mux/watchdog-mux/internal/version"
	"github.com/watchdog-mux/watchdog-mux/pkg/config"
)

func newApp(out *bytes.Buffer) *cli.App {
	app := cli.NewApp()
	app.Name = "watchdog-mux"
	app.Writer = out
	app.ErrWriter = out
	app.Flags, app.Metadata = muxcli.GetFlagsAndMetadata()
	app.Commands = append(muxcli.DefaultCommands,
		muxcli.ConfigCommand,
		muxcli.VersionCommand,
	)
	return app
}

// The actual test suite
var _ = t.Describe("CLI", func() {
	var (
		out    *bytes.Buffer
		app    *cli.App
		merged *config.Config
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		app = newApp(out)
		merged = nil
		app.Action = func(c *cli.Context) (err error) {
			merged, err = muxcli.GetAndMergeConfigFromContext(c)
			return err
		}
	})

	t.Describe("GetAndMergeConfigFromContext", func() {
		It("should keep defaults without flags", func() {
			// Given
			// When
			err := app.Run([]string{"watchdog-mux", "--config", ""})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(merged).To(Equal(config.DefaultConfig()))
		})

		It("should override values set on the command line", func() {
			// Given
			// When
			err := app.Run([]string{
				"watchdog-mux", "--config", "",
				"--max-clients", "5",
				"--client-timeout", "30",
				"--watchdog-timeout", "20",
				"--listen", "/tmp/mux.sock",
				"--load-softdog=false",
				"--enable-metrics",
			})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(merged.MaxClients).To(Equal(5))
			Expect(merged.ClientTimeout).To(Equal(30))
			Expect(merged.Timeout).To(Equal(20))
			Expect(merged.Listen).To(Equal("/tmp/mux.sock"))
			Expect(merged.LoadSoftdog).To(BeFalse())
			Expect(merged.EnableMetrics).To(BeTrue())
		})

		It("should prefer flags over the config file", func() {
			// Given
			path := filepath.Join(t.MustTempDir("muxcli"), "watchdog-mux.conf")
			Expect(os.WriteFile(path, []byte(`
[watchdog_mux.api]
max_clients = 7
poll_interval = 2
`), 0o644)).To(Succeed())

			// When
			err := app.Run([]string{"watchdog-mux", "--config", path, "--max-clients", "3"})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(merged.MaxClients).To(Equal(3))
			Expect(merged.PollInterval).To(Equal(2))
		})

		It("should fail if the requested config file is missing", func() {
			// Given
			// When
			err := app.Run([]string{"watchdog-mux", "--config", "/proc/invalid/watchdog-mux.conf"})

			// Then
			Expect(err).To(HaveOccurred())
		})
	})

	t.Describe("config command", func() {
		It("should print the default configuration", func() {
			// Given
			// When
			err := app.Run([]string{"watchdog-mux", "config", "--default"})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring("[watchdog_mux.api]"))
			Expect(out.String()).To(ContainSubstring("max_clients = 100"))
		})

		It("should write the merged configuration to a file", func() {
			// Given
			path := filepath.Join(t.MustTempDir("muxcli"), "out.conf")
			app.Before = func(c *cli.Context) error {
				_, err := muxcli.GetAndMergeConfigFromContext(c)
				return err
			}

			// When
			err := app.Run([]string{
				"watchdog-mux", "--config", "", "--max-clients", "9",
				"config", "--output", path,
			})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).NotTo(ContainSubstring("[watchdog_mux.api]"))
			written := config.DefaultConfig()
			Expect(written.UpdateFromFile(path)).To(Succeed())
			Expect(written.MaxClients).To(Equal(9))
		})

		It("should fail to write into a missing directory", func() {
			// Given
			// When
			err := app.Run([]string{"watchdog-mux", "config", "--default", "-o", "/proc/invalid/out.conf"})

			// Then
			Expect(err).To(HaveOccurred())
		})
	})

	t.Describe("version command", func() {
		It("should print JSON", func() {
			// Given
			// When
			err := app.Run([]string{"watchdog-mux", "version", "--json"})

			// Then
			Expect(err).NotTo(HaveOccurred())
			info := version.Info{}
			Expect(json.Unmarshal(out.Bytes(), &info)).To(Succeed())
			Expect(info.Version).To(HavePrefix(version.Version))
		})
	})

	t.Describe("completion command", func() {
		It("should generate bash completion", func() {
			// Given
			// When
			err := app.Run([]string{"watchdog-mux", "complete", "bash"})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring("--max-clients"))
			Expect(out.String()).To(ContainSubstring("complete -F _watchdog_mux_bash_autocomplete watchdog-mux"))
		})

		It("should fail for unknown shells", func() {
			// Given
			// When
			err := app.Run([]string{"watchdog-mux", "complete", "tcsh"})

			// Then
			Expect(err).To(HaveOccurred())
		})
	})
})

// The actual test suite for zsh completion quoting.
var _ = t.Describe("completion generation", func() {
	DescribeTable("should quote and escape strings correctly", func(name, usage, expected string) {
		// When
		result := muxcli.ZshQuoteCmd(name, usage)

		// Then
		Expect(result).To(Equal(expected))
	},
		Entry(
			"should use single quotes by default",
			"foo", "description of foo",
			"'foo:description of foo'",
		),
		Entry(
			"should use double quotes for strings containing single quotes",
			"bar", "bar's description",
			"\"bar:bar's description\"",
		),
		Entry(
			"should escape $'s within double quotes",
			"barfoo", "barfoo's usage $needs $escaped $dollars",
			"\"barfoo:barfoo's usage \\$needs \\$escaped \\$dollars\"",
		),
	)
})
