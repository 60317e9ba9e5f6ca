package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/digitrace/compress"
	"github.com/arloliu/digitrace/format"
	"github.com/arloliu/digitrace/internal/synth"
)

func newSynthCmd(a *app) *cobra.Command {
	var (
		channels    int
		samples     int
		events      int
		seed        uint64
		compression string
	)

	cmd := &cobra.Command{
		Use:   "synth DST",
		Short: "Write a synthetic capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if channels < 1 || samples < 1 || events < 0 {
				return fmt.Errorf("need channels >= 1, samples >= 1, events >= 0")
			}

			ct, err := format.ParseCompressionType(compression)
			if err != nil {
				return err
			}
			codec, err := compress.GetCodec(ct)
			if err != nil {
				return err
			}

			b := synth.NewBuilder(synth.Header(channels, samples))
			b.AddSynthetic(events, seed)

			if err := writeCompressed(args[0], codec, b); err != nil {
				return err
			}

			a.logger.Info("synthetic capture written",
				slog.String("dst", args[0]),
				slog.Int("channels", channels),
				slog.Int("samples", samples),
				slog.Int("events", b.Events()),
				slog.Int("bytes", b.Len()))

			return nil
		},
	}

	cmd.Flags().IntVar(&channels, "channels", 2, "number of channels")
	cmd.Flags().IntVar(&samples, "samples", 1024, "samples per trace")
	cmd.Flags().IntVar(&events, "events", 100, "number of events")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&compression, "compression", "none", "output compression (none, zstd, s2, lz4)")

	return cmd
}

func writeCompressed(path string, codec compress.Codec, b *synth.Builder) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	w, err := codec.NewWriter(out)
	if err != nil {
		_ = out.Close()
		return err
	}

	if _, err := b.WriteTo(w); err != nil {
		_ = w.Close()
		_ = out.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := w.Close(); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
