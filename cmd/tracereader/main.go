// Tracereader inspects, dumps, archives and synthesizes digitizer capture files.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/digitrace"
	"github.com/arloliu/digitrace/config"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tracereader",
		Short: "Inspect and decode digitizer capture files",
		Long: `Tracereader decodes digitizer capture files: a header describing the
acquisition followed by fixed-size event records with one sample trace per
enabled channel. Captures may be plain or zstd/s2/lz4 compressed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newInfoCmd(a),
		newDumpCmd(a),
		newPackCmd(a),
		newSynthCmd(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), level, cfg.Log.Format)

	return nil
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// readerOptions maps the reader section of the configuration to open options.
func (a *app) readerOptions() []digitrace.Option {
	opts := []digitrace.Option{
		digitrace.WithChunkSize(a.cfg.Reader.ChunkSize),
		digitrace.WithBufferSize(a.cfg.BufferSize()),
		digitrace.WithLogger(a.logger),
	}
	if a.cfg.Reader.SavedOnly {
		opts = append(opts, digitrace.WithSavedOnly())
	}
	if a.cfg.Reader.RawSamples {
		opts = append(opts, digitrace.WithRawSamples())
	}

	return opts
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
