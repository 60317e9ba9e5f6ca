package event

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/source"
)

func drain(t *testing.T, r *ChunkedReader) []Batch {
	t.Helper()

	var out []Batch
	for batch, err := range r.All() {
		require.NoError(t, err)
		out = append(out, batch)
	}

	return out
}

func TestChunkedReader_BatchCounts(t *testing.T) {
	for _, events := range []int{0, 1, 5, 10, 11} {
		data := capture(t, twoChannelHeader(), events)

		for _, chunk := range []int{0, 1, 3, 5, 10} {
			t.Run(fmt.Sprintf("K=%d/k=%d", events, chunk), func(t *testing.T) {
				h, cur := openAtEvents(t, data)
				r, err := NewChunkedReader(cur, h, WithChunkSize(chunk))
				require.NoError(t, err)

				batches := drain(t, r)

				want := 0
				switch {
				case events == 0:
				case chunk == 0:
					want = 1
				default:
					want = (events + chunk - 1) / chunk
				}
				require.Len(t, batches, want)

				next := uint32(0)
				for i, b := range batches {
					require.NotEmpty(t, b)
					if chunk > 0 && i < len(batches)-1 {
						require.Len(t, b, chunk)
					}
					if chunk > 0 {
						require.LessOrEqual(t, len(b), chunk)
					}
					for _, ev := range b {
						require.Equal(t, next, ev.Index)
						next++
					}
				}
				require.Equal(t, uint32(events), next)

				require.Equal(t, StateExhausted, r.State())
				st := r.Stats()
				require.Equal(t, events, st.Events)
				require.Equal(t, want, st.Batches)
				require.Equal(t, int64(events)*h.RecordSize(), st.Bytes)
			})
		}
	}
}

func TestChunkedReader_NoRestartAfterExhaustion(t *testing.T) {
	data := capture(t, twoChannelHeader(), 3)
	h, cur := openAtEvents(t, data)

	r, err := NewChunkedReader(cur, h, WithChunkSize(3))
	require.NoError(t, err)
	require.Equal(t, StateStreaming, r.State())

	b, err := r.Next()
	require.NoError(t, err)
	require.Len(t, b, 3)

	// Exactly divisible: the next pull finds the boundary and ends the
	// stream without an empty batch.
	for range 3 {
		b, err = r.Next()
		require.Equal(t, io.EOF, err)
		require.Nil(t, b)
		require.Equal(t, StateExhausted, r.State())
	}

	require.Empty(t, drain(t, r))
}

func TestChunkedReader_FailureDiscardsPartialBatch(t *testing.T) {
	h := twoChannelHeader()
	data := capture(t, h, 4)
	// Cut into the middle of the last record's samples.
	data = data[:len(data)-3]

	t.Run("WholeFile", func(t *testing.T) {
		hdr, cur := openAtEvents(t, data)
		r, err := NewChunkedReader(cur, hdr)
		require.NoError(t, err)

		b, err := r.Next()
		require.Nil(t, b)
		require.ErrorIs(t, err, errs.ErrTruncatedEvent)
		require.NotErrorIs(t, err, errs.ErrStreamFailed)
		require.Equal(t, StateFailed, r.State())
		require.ErrorIs(t, r.Err(), errs.ErrTruncatedEvent)

		for range 2 {
			b, err = r.Next()
			require.Nil(t, b)
			require.ErrorIs(t, err, errs.ErrStreamFailed)
			require.ErrorIs(t, err, errs.ErrTruncatedEvent)
		}
		require.Equal(t, 0, r.Stats().Events)
	})

	t.Run("Chunked", func(t *testing.T) {
		hdr, cur := openAtEvents(t, data)
		r, err := NewChunkedReader(cur, hdr, WithChunkSize(3))
		require.NoError(t, err)

		b, err := r.Next()
		require.NoError(t, err)
		require.Len(t, b, 3)

		b, err = r.Next()
		require.Nil(t, b)
		require.ErrorIs(t, err, errs.ErrTruncatedEvent)

		_, err = r.Next()
		require.ErrorIs(t, err, errs.ErrStreamFailed)
		require.Equal(t, 3, r.Stats().Events)
		require.Equal(t, 1, r.Stats().Batches)
	})

	t.Run("IteratorYieldsErrorOnce", func(t *testing.T) {
		hdr, cur := openAtEvents(t, data)
		r, err := NewChunkedReader(cur, hdr, WithChunkSize(2))
		require.NoError(t, err)

		var batches, failures int
		for b, err := range r.All() {
			if err != nil {
				failures++
				require.ErrorIs(t, err, errs.ErrTruncatedEvent)
				continue
			}
			batches++
			require.Len(t, b, 2)
		}
		require.Equal(t, 1, batches)
		require.Equal(t, 1, failures)
	})
}

func TestChunkedReader_AwaitingHeader(t *testing.T) {
	data := capture(t, maskedHeader(6), 4)

	t.Run("DecodesOnFirstPull", func(t *testing.T) {
		r, err := NewChunkedReader(source.NewCursor(bytes.NewReader(data), 0), nil, WithChunkSize(3))
		require.NoError(t, err)
		require.Equal(t, StateAwaitingHeader, r.State())
		require.Nil(t, r.Header())

		b, err := r.Next()
		require.NoError(t, err)
		require.Len(t, b, 3)
		require.Equal(t, StateStreaming, r.State())
		require.NotNil(t, r.Header())
		require.Equal(t, []int{0, 2}, b[0].Channels())

		b, err = r.Next()
		require.NoError(t, err)
		require.Len(t, b, 1)
	})

	t.Run("HeaderFailure", func(t *testing.T) {
		r, err := NewChunkedReader(source.NewCursor(bytes.NewReader(data[:10]), 0), nil)
		require.NoError(t, err)

		_, err = r.Next()
		require.ErrorIs(t, err, errs.ErrTruncatedHeader)
		require.Equal(t, StateFailed, r.State())

		_, err = r.Next()
		require.ErrorIs(t, err, errs.ErrStreamFailed)
		require.ErrorIs(t, err, errs.ErrTruncatedHeader)
	})
}

func TestChunkedReader_Options(t *testing.T) {
	data := capture(t, maskedHeader(4), 2)

	t.Run("NegativeChunkSize", func(t *testing.T) {
		h, cur := openAtEvents(t, data)
		_, err := NewChunkedReader(cur, h, WithChunkSize(-1))
		require.ErrorIs(t, err, errs.ErrInvalidChunkSize)
		require.ErrorIs(t, err, errs.ErrInvalidConfig)
	})

	t.Run("NilSource", func(t *testing.T) {
		_, err := NewChunkedReader(nil, nil)
		require.ErrorIs(t, err, errs.ErrInvalidConfig)
	})

	t.Run("NilLogger", func(t *testing.T) {
		h, cur := openAtEvents(t, data)
		_, err := NewChunkedReader(cur, h, WithLogger(nil))
		require.ErrorIs(t, err, errs.ErrInvalidConfig)
	})

	t.Run("RawAndSavedOnly", func(t *testing.T) {
		h, cur := openAtEvents(t, data)
		r, err := NewChunkedReader(cur, h, WithRawSamples(), WithSavedOnly(), WithChunkSize(5))
		require.NoError(t, err)
		require.Equal(t, 5, r.ChunkSize())

		b, err := r.Next()
		require.NoError(t, err)
		require.Len(t, b, 2)
		for _, ev := range b {
			require.Len(t, ev.Traces, 2)
			require.NotNil(t, ev.Traces[0].Raw)
		}
	})

	t.Run("Logger", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

		r, err := NewChunkedReader(source.NewCursor(bytes.NewReader(data), 0), nil, WithLogger(logger))
		require.NoError(t, err)
		drain(t, r)

		require.Contains(t, logs.String(), "capture header decoded")
		require.Contains(t, logs.String(), "batch decoded")
		require.Contains(t, logs.String(), "capture exhausted")
	})
}

func TestChunkedReader_EventsIterator(t *testing.T) {
	data := capture(t, twoChannelHeader(), 7)
	h, cur := openAtEvents(t, data)

	r, err := NewChunkedReader(cur, h, WithChunkSize(2))
	require.NoError(t, err)

	var seen []uint32
	for ev, err := range r.Events() {
		require.NoError(t, err)
		seen = append(seen, ev.Index)
		if len(seen) == 5 {
			break
		}
	}
	require.Equal(t, []uint32{0, 1, 2, 3, 4}, seen)
	// Stopping early leaves the rest of the current batch undelivered.
	require.Equal(t, 3, r.Stats().Batches)
	require.Equal(t, StateStreaming, r.State())

	require.NoError(t, r.Close())
	require.Equal(t, StateExhausted, r.State())
	_, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "AwaitingHeader", StateAwaitingHeader.String())
	require.Equal(t, "Streaming", StateStreaming.String())
	require.Equal(t, "Exhausted", StateExhausted.String())
	require.Equal(t, "Failed", StateFailed.String())
	require.Equal(t, "Unknown", State(42).String())
	require.True(t, StateFailed.Terminal())
	require.False(t, StateStreaming.Terminal())
}
