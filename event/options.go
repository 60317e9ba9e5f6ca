package event

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/internal/options"
)

// config is shared by NewDecoder and NewChunkedReader; options that do not
// apply to a constructor are ignored by it.
type config struct {
	chunkSize int
	savedOnly bool
	keepRaw   bool
	logger    *slog.Logger
}

func defaultConfig() *config {
	return &config{
		logger: slog.New(slog.DiscardHandler),
	}
}

// Option configures a Decoder or ChunkedReader.
type Option = options.Option[*config]

// WithChunkSize sets the maximum number of events per batch.
// Zero (the default) delivers the whole capture as a single batch.
func WithChunkSize(size int) Option {
	return options.New(func(c *config) error {
		if size < 0 {
			return fmt.Errorf("%w: %d", errs.ErrInvalidChunkSize, size)
		}
		c.chunkSize = size

		return nil
	})
}

// WithSavedOnly drops traces whose per-record saved flag is false. The
// samples are still consumed, so the record layout is unaffected.
func WithSavedOnly() Option {
	return options.NoError(func(c *config) {
		c.savedOnly = true
	})
}

// WithRawSamples keeps the on-disk int16 samples on every Trace.
func WithRawSamples() Option {
	return options.NoError(func(c *config) {
		c.keepRaw = true
	})
}

// WithLogger sets the logger used for stream lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return options.New(func(c *config) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		c.logger = logger

		return nil
	})
}
