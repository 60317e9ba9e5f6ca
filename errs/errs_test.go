package errs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeError_Unwrap(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := error(&DecodeError{
			Kind:    ErrTruncatedHeader,
			Section: "header",
			Field:   "run_description",
			Offset:  12,
			Err:     io.ErrUnexpectedEOF,
		})

		require.ErrorIs(t, err, ErrTruncatedHeader)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.NotErrorIs(t, err, ErrMalformedHeader)
		require.Contains(t, err.Error(), `"run_description"`)
		require.Contains(t, err.Error(), "offset 12")
	})

	t.Run("without cause", func(t *testing.T) {
		err := error(&DecodeError{Kind: ErrMalformedHeader, Section: "header", Field: "channel_count"})

		require.ErrorIs(t, err, ErrMalformedHeader)
		require.Equal(t, `malformed capture header: header field "channel_count" at offset 0`, err.Error())
	})

	t.Run("errors.As", func(t *testing.T) {
		var wrapped error = &DecodeError{Kind: ErrTruncatedEvent, Section: "event", Field: "samples[0]", Offset: 99}
		wrapped = errors.Join(wrapped)

		var de *DecodeError
		require.True(t, errors.As(wrapped, &de))
		require.Equal(t, int64(99), de.Offset)
	})
}
