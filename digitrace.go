// Package digitrace decodes binary capture files written by digitizers:
// a fixed-layout header describing the acquisition (channels, calibration,
// sample geometry, trigger setup) followed by fixed-size event records, each
// carrying per-event timing plus one int16 sample trace per enabled channel.
//
// # Basic Usage
//
// Streaming every event in bounded batches:
//
//	f, err := digitrace.Open("run17.trace", digitrace.WithChunkSize(500))
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	for batch, err := range f.Batches() {
//	    if err != nil {
//	        return err
//	    }
//	    for _, ev := range batch {
//	        for ch, volts := range ev.All() {
//	            fmt.Println(ev.Index, ch, len(volts))
//	        }
//	    }
//	}
//
// Random access on plain (uncompressed) captures:
//
//	n, _ := f.CountEvents()
//	last, _ := f.EventAt(n - 1)
//
// # Package Structure
//
// This package wraps the lower level packages for the common cases:
// section decodes the header and event prefixes, event decodes records and
// streams batches, source provides the byte cursor and file opening with
// transparent zstd/s2/lz4 decompression.
package digitrace

import (
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/event"
	"github.com/arloliu/digitrace/format"
	"github.com/arloliu/digitrace/internal/options"
	"github.com/arloliu/digitrace/section"
	"github.com/arloliu/digitrace/source"
)

type config struct {
	fileOpts  []source.FileOption
	eventOpts []event.Option
	logger    *slog.Logger
}

// Option configures Open and NewReader.
type Option = options.Option[*config]

// WithChunkSize sets the number of events per batch; zero means whole file.
func WithChunkSize(size int) Option {
	return options.NoError(func(c *config) {
		c.eventOpts = append(c.eventOpts, event.WithChunkSize(size))
	})
}

// WithSavedOnly drops traces whose per-record saved flag is false.
func WithSavedOnly() Option {
	return options.NoError(func(c *config) {
		c.eventOpts = append(c.eventOpts, event.WithSavedOnly())
	})
}

// WithRawSamples keeps the raw int16 samples on every trace.
func WithRawSamples() Option {
	return options.NoError(func(c *config) {
		c.eventOpts = append(c.eventOpts, event.WithRawSamples())
	})
}

// WithBufferSize sets the read-ahead buffer of the file cursor, in bytes.
func WithBufferSize(size int) Option {
	return options.NoError(func(c *config) {
		c.fileOpts = append(c.fileOpts, source.WithBufferSize(size))
	})
}

// WithCompression forces the capture compression instead of detecting it.
func WithCompression(ct format.CompressionType) Option {
	return options.NoError(func(c *config) {
		c.fileOpts = append(c.fileOpts, source.WithCompression(ct))
	})
}

// WithLogger sets the logger for the file and its readers.
func WithLogger(logger *slog.Logger) Option {
	return options.New(func(c *config) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		c.logger = logger
		c.eventOpts = append(c.eventOpts, event.WithLogger(logger))

		return nil
	})
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{logger: slog.New(slog.DiscardHandler)}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewReader returns a ChunkedReader over a capture held by r. The header is
// decoded on the first pull.
func NewReader(r io.Reader, opts ...Option) (*event.ChunkedReader, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return event.NewChunkedReader(source.NewCursor(r, 0), nil, cfg.eventOpts...)
}

// File is an open capture with its decoded header.
//
// Note: File is NOT thread-safe. Readers returned by Reader share the
// file's cursor; only the most recent one may be used.
type File struct {
	src     *source.File
	header  *section.FileHeader
	cfg     *config
	decoder *event.Decoder
	reader  *event.ChunkedReader
}

// Open opens the capture at path and decodes its header.
//
// Parameters:
//   - path: capture file, plain or zstd/s2/lz4 compressed
//   - opts: reader, source and logging options
//
// Returns:
//   - *File: open capture positioned at event record 0
//   - error: I/O errors, errs.ErrTruncatedHeader, errs.ErrMalformedHeader,
//     or errs.ErrInvalidConfig
func Open(path string, opts ...Option) (*File, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	src, err := source.OpenFile(path, cfg.fileOpts...)
	if err != nil {
		return nil, err
	}

	header, err := section.DecodeHeader(src)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("decode header of %s: %w", path, err)
	}

	decoder, err := event.NewDecoder(header, cfg.eventOpts...)
	if err != nil {
		_ = src.Close()
		return nil, err
	}

	cfg.logger.Info("capture opened",
		slog.String("path", src.Name()),
		slog.String("compression", src.Compression().String()),
		slog.String("program_version", header.ProgramVersion),
		slog.Uint64("channels", uint64(header.ChannelCount)),
		slog.Uint64("enabled", uint64(header.EnabledChannelCount)),
		slog.Uint64("samples", uint64(header.SampleCount)),
		slog.String("fingerprint", fmt.Sprintf("%016x", header.Fingerprint)))

	return &File{
		src:     src,
		header:  header,
		cfg:     cfg,
		decoder: decoder,
	}, nil
}

// Header returns the decoded capture header.
func (f *File) Header() *section.FileHeader {
	return f.header
}

// Name returns the path the capture was opened from.
func (f *File) Name() string {
	return f.src.Name()
}

// Compression returns the compression the capture is stored with.
func (f *File) Compression() format.CompressionType {
	return f.src.Compression()
}

// Seekable reports whether EventAt, CountEvents and repeated Reader calls
// are available. Compressed captures are sequential only.
func (f *File) Seekable() bool {
	return f.src.Seekable()
}

// RecordSize returns the on-disk size of one event record.
func (f *File) RecordSize() int64 {
	return f.header.RecordSize()
}

// Reader returns a ChunkedReader positioned at event record 0.
//
// Seekable captures rewind on every call. A sequential capture can only be
// read once; later calls fail with errs.ErrNotSeekable.
func (f *File) Reader() (*event.ChunkedReader, error) {
	if f.src.Offset() != f.header.HeaderEnd {
		if err := f.src.SeekTo(f.header.HeaderEnd); err != nil {
			return nil, fmt.Errorf("rewind to first event: %w", err)
		}
	}

	if f.reader != nil {
		_ = f.reader.Close()
	}

	r, err := event.NewChunkedReader(f.src, f.header, f.cfg.eventOpts...)
	if err != nil {
		return nil, err
	}
	f.reader = r

	return r, nil
}

// Batches iterates over all event batches from record 0.
func (f *File) Batches() iter.Seq2[event.Batch, error] {
	return func(yield func(event.Batch, error) bool) {
		r, err := f.Reader()
		if err != nil {
			yield(nil, err)
			return
		}

		for batch, err := range r.All() {
			if !yield(batch, err) {
				return
			}
		}
	}
}

// CountEvents returns the number of event records, derived from the file
// size. It fails with errs.ErrUnalignedPayload when the bytes after the
// header are not a whole number of records.
func (f *File) CountEvents() (int, error) {
	size, err := f.src.Size()
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}

	payload := size - f.header.HeaderEnd
	rec := f.header.RecordSize()
	if payload%rec != 0 {
		return 0, fmt.Errorf("%w: %d bytes after header, record size %d", errs.ErrUnalignedPayload, payload, rec)
	}

	return int(payload / rec), nil
}

// EventAt decodes event record i (zero based) by seeking to it directly.
// It moves the shared cursor: a Reader obtained earlier must not be used
// afterwards.
func (f *File) EventAt(i int) (event.Event, error) {
	if !f.src.Seekable() {
		return event.Event{}, errs.ErrNotSeekable
	}

	n, err := f.CountEvents()
	if err != nil {
		return event.Event{}, err
	}
	if i < 0 || i >= n {
		return event.Event{}, fmt.Errorf("%w: %d not in [0, %d)", errs.ErrEventIndexOutOfRange, i, n)
	}

	if err := f.src.SeekTo(f.header.HeaderEnd + int64(i)*f.header.RecordSize()); err != nil {
		return event.Event{}, err
	}

	return f.decoder.Decode(f.src)
}

// Close releases pooled buffers and closes the underlying file.
func (f *File) Close() error {
	if f.reader != nil {
		_ = f.reader.Close()
	}
	f.decoder.Close()

	return f.src.Close()
}
