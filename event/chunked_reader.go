package event

import (
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/internal/options"
	"github.com/arloliu/digitrace/section"
	"github.com/arloliu/digitrace/source"
)

// maxBatchPrealloc bounds the up-front batch capacity so a large chunk size
// does not allocate before events exist.
const maxBatchPrealloc = 1024

// ChunkedReader streams the events of a capture in batches of a bounded size.
//
// It is a pull iterator: every call to Next decodes at most one batch. Once
// the stream is exhausted or has failed it never restarts.
//
// Note: ChunkedReader is NOT thread-safe.
type ChunkedReader struct {
	r       source.Reader
	header  *section.FileHeader
	decoder *Decoder
	cfg     *config
	logger  *slog.Logger

	state State
	cause error
	stats Stats
}

// NewChunkedReader creates a reader over r.
//
// When header is nil the reader starts in StateAwaitingHeader and decodes the
// header from r on the first pull; r must then be positioned at offset 0.
// Otherwise r must be positioned at the first event record, as left by
// section.DecodeHeader.
//
// Parameters:
//   - r: byte source
//   - header: already decoded header, or nil
//   - opts: WithChunkSize, WithSavedOnly, WithRawSamples, WithLogger
//
// Returns:
//   - *ChunkedReader: reader in StateAwaitingHeader or StateStreaming
//   - error: errs.ErrInvalidConfig (and errs.ErrInvalidChunkSize) on bad options
func NewChunkedReader(r source.Reader, header *section.FileHeader, opts ...Option) (*ChunkedReader, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil source", errs.ErrInvalidConfig)
	}

	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	c := &ChunkedReader{
		r:      r,
		cfg:    cfg,
		logger: cfg.logger,
		state:  StateAwaitingHeader,
	}

	if header != nil {
		c.start(header)
	}

	return c, nil
}

func (c *ChunkedReader) start(header *section.FileHeader) {
	c.header = header
	c.decoder = newDecoder(header, c.cfg)
	c.state = StateStreaming
}

// Header returns the capture header, or nil while awaiting it.
func (c *ChunkedReader) Header() *section.FileHeader {
	return c.header
}

// State returns the current lifecycle state.
func (c *ChunkedReader) State() State {
	return c.state
}

// Stats returns the counters accumulated so far.
func (c *ChunkedReader) Stats() Stats {
	return c.stats
}

// Err returns the error that moved the reader to StateFailed, or nil.
func (c *ChunkedReader) Err() error {
	return c.cause
}

// ChunkSize returns the configured batch size; zero means whole file.
func (c *ChunkedReader) ChunkSize() int {
	return c.cfg.chunkSize
}

// Next decodes and returns the next batch.
//
// Returns:
//   - Batch: a non-empty, freshly allocated batch
//   - error: io.EOF once the stream is exhausted; the decode error that ended
//     the stream; errs.ErrStreamFailed (wrapping that error) on later calls
func (c *ChunkedReader) Next() (Batch, error) {
	switch c.state {
	case StateExhausted:
		return nil, io.EOF
	case StateFailed:
		return nil, fmt.Errorf("%w: %w", errs.ErrStreamFailed, c.cause)
	case StateAwaitingHeader:
		header, err := section.DecodeHeader(c.r)
		if err != nil {
			return nil, c.fail(err)
		}
		c.logger.Debug("capture header decoded",
			slog.Uint64("channels", uint64(header.ChannelCount)),
			slog.Uint64("enabled", uint64(header.EnabledChannelCount)),
			slog.Uint64("samples", uint64(header.SampleCount)),
			slog.Int64("record_size", header.RecordSize()))
		c.start(header)
	}

	start := c.r.Offset()
	batch := make(Batch, 0, c.prealloc())

	for c.cfg.chunkSize == 0 || len(batch) < c.cfg.chunkSize {
		ev, err := c.decoder.Decode(c.r)
		if err == io.EOF {
			c.exhaust()
			break
		}
		if err != nil {
			c.stats.Bytes += c.r.Offset() - start
			return nil, c.fail(err)
		}

		batch = append(batch, ev)
	}

	c.stats.Bytes += c.r.Offset() - start

	if len(batch) == 0 {
		return nil, io.EOF
	}

	c.stats.Events += len(batch)
	c.stats.Batches++
	c.logger.Debug("batch decoded",
		slog.Int("batch", c.stats.Batches),
		slog.Int("events", len(batch)),
		slog.Uint64("first_index", uint64(batch[0].Index)))

	return batch, nil
}

// All returns an iterator over the remaining batches. Iteration ends after
// the last batch; a decode error is yielded once, as the final pair.
func (c *ChunkedReader) All() iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		for {
			batch, err := c.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// Events returns an iterator over the remaining events, batch by batch.
func (c *ChunkedReader) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for batch, err := range c.All() {
			if err != nil {
				yield(Event{}, err)
				return
			}
			for _, ev := range batch {
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}

// Close releases the decoder's scratch buffer. A reader that has not reached
// a terminal state is marked exhausted. Close does not close the source.
func (c *ChunkedReader) Close() error {
	if !c.state.Terminal() {
		c.state = StateExhausted
	}
	c.release()

	return nil
}

func (c *ChunkedReader) prealloc() int {
	if c.cfg.chunkSize > 0 {
		return min(c.cfg.chunkSize, maxBatchPrealloc)
	}

	return 64
}

func (c *ChunkedReader) exhaust() {
	c.state = StateExhausted
	c.release()
	c.logger.Debug("capture exhausted", slog.Int64("offset", c.r.Offset()))
}

func (c *ChunkedReader) fail(err error) error {
	c.state = StateFailed
	c.cause = err
	c.release()
	c.logger.Warn("capture stream failed",
		slog.Int64("offset", c.r.Offset()),
		slog.Int("events", c.stats.Events),
		slog.Any("error", err))

	return err
}

func (c *ChunkedReader) release() {
	if c.decoder != nil {
		c.decoder.Close()
	}
}
