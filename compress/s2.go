package compress

import (
	"io"

	"github.com/arloliu/digitrace/format"
	"github.com/klauspost/compress/s2"
)

// S2Codec reads and writes S2 framed streams. Snappy framed streams are
// readable as well.
type S2Codec struct{}

var _ Codec = (*S2Codec)(nil)

// NewS2Codec creates a new S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

func (c S2Codec) Type() format.CompressionType { return format.CompressionS2 }

// NewReader returns a reader decompressing the S2 stream r.
func (c S2Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}

// NewWriter returns a writer producing an S2 stream. Writes are compressed
// synchronously so the caller's buffers can be reused immediately.
func (c S2Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(w, s2.WriterConcurrency(1)), nil
}
