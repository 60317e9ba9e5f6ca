//go:build !gozstd

package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/arloliu/digitrace/format"
	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd stream decoders; a decoder is Reset onto each new
// capture instead of being rebuilt.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			// only reachable with invalid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

// ZstdCodec reads and writes Zstandard streams using klauspost/compress.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

func (c ZstdCodec) Type() format.CompressionType { return format.CompressionZstd }

// NewReader returns a reader decompressing the Zstandard stream r.
// Closing it returns the decoder to the pool.
func (c ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	if err := decoder.Reset(r); err != nil {
		zstdDecoderPool.Put(decoder)
		return nil, fmt.Errorf("zstd reset: %w", err)
	}

	return &zstdReadCloser{decoder: decoder}, nil
}

// NewWriter returns a writer producing a Zstandard stream with frame checksums.
func (c ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderConcurrency(1),
	)
}

type zstdReadCloser struct {
	decoder *zstd.Decoder
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	if z.decoder == nil {
		return 0, io.ErrClosedPipe
	}

	return z.decoder.Read(p)
}

func (z *zstdReadCloser) Close() error {
	if z.decoder == nil {
		return nil
	}

	// drop the reference to the source before pooling
	_ = z.decoder.Reset(nil)
	zstdDecoderPool.Put(z.decoder)
	z.decoder = nil

	return nil
}
