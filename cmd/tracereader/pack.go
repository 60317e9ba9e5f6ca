package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/digitrace/compress"
	"github.com/arloliu/digitrace/format"
	"github.com/arloliu/digitrace/internal/hash"
	"github.com/arloliu/digitrace/section"
	"github.com/arloliu/digitrace/source"
)

func newPackCmd(a *app) *cobra.Command {
	var compression string

	cmd := &cobra.Command{
		Use:   "pack SRC DST",
		Short: "Recompress a capture file",
		Long: `Pack validates the header of SRC and writes the capture to DST with the
selected compression. SRC may itself be compressed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("compression") {
				a.cfg.Archive.Compression = compression
			}
			ct, err := a.cfg.Compression()
			if err != nil {
				return err
			}

			stats, err := pack(args[0], args[1], ct, a.cfg.BufferSize())
			if err != nil {
				return err
			}

			a.logger.Info("capture packed",
				slog.String("src", args[0]),
				slog.String("dst", args[1]),
				slog.String("compression", ct.String()),
				slog.Int64("bytes", stats.bytes),
				slog.Int64("events", stats.events))
			if stats.tail != 0 {
				a.logger.Warn("capture ends with a partial record", slog.Int64("bytes", stats.tail))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&compression, "compression", "zstd", "output compression (none, zstd, s2, lz4); default from config")

	return cmd
}

type packStats struct {
	bytes  int64 // uncompressed bytes written
	events int64 // whole records after the header
	tail   int64 // bytes of a trailing partial record
}

// pack copies src to dst re-encoding only the compression. The header is
// decoded for validation and re-serialized; its fingerprint must survive.
func pack(src, dst string, ct format.CompressionType, bufferSize int) (packStats, error) {
	var stats packStats

	codec, err := compress.GetCodec(ct)
	if err != nil {
		return stats, err
	}

	in, err := source.OpenFile(src, source.WithBufferSize(bufferSize))
	if err != nil {
		return stats, err
	}
	defer in.Close()

	header, err := section.DecodeHeader(in)
	if err != nil {
		return stats, fmt.Errorf("decode header of %s: %w", src, err)
	}

	head := header.Bytes()
	if hash.Sum(head) != header.Fingerprint {
		return stats, fmt.Errorf("header of %s does not re-encode to its original bytes", src)
	}

	out, err := os.Create(dst)
	if err != nil {
		return stats, err
	}

	w, err := codec.NewWriter(out)
	if err != nil {
		_ = out.Close()
		return stats, err
	}

	n, err := w.Write(head)
	stats.bytes += int64(n)
	if err == nil {
		var copied int64
		copied, err = io.Copy(w, in)
		stats.bytes += copied
		stats.events = copied / header.RecordSize()
		stats.tail = copied % header.RecordSize()
	}

	if err != nil {
		return stats, errors.Join(fmt.Errorf("write %s: %w", dst, err), w.Close(), out.Close())
	}
	if err := w.Close(); err != nil {
		_ = out.Close()
		return stats, fmt.Errorf("finish %s stream: %w", ct, err)
	}

	return stats, out.Close()
}
