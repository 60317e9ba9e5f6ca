//go:build gozstd

package compress

import (
	"io"

	"github.com/arloliu/digitrace/format"
	"github.com/valyala/gozstd"
)

// ZstdCodec reads and writes Zstandard streams through the cgo libzstd binding.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

func (c ZstdCodec) Type() format.CompressionType { return format.CompressionZstd }

// NewReader returns a reader decompressing the Zstandard stream r.
func (c ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return &gozstdReadCloser{zr: gozstd.NewReader(r)}, nil
}

// NewWriter returns a writer producing a Zstandard stream at level 3.
func (c ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return &gozstdWriteCloser{zw: gozstd.NewWriterLevel(w, 3)}, nil
}

type gozstdReadCloser struct {
	zr *gozstd.Reader
}

func (g *gozstdReadCloser) Read(p []byte) (int, error) {
	if g.zr == nil {
		return 0, io.ErrClosedPipe
	}

	return g.zr.Read(p)
}

func (g *gozstdReadCloser) Close() error {
	if g.zr != nil {
		g.zr.Release()
		g.zr = nil
	}

	return nil
}

type gozstdWriteCloser struct {
	zw *gozstd.Writer
}

func (g *gozstdWriteCloser) Write(p []byte) (int, error) {
	return g.zw.Write(p)
}

func (g *gozstdWriteCloser) Close() error {
	err := g.zw.Close()
	g.zw.Release()

	return err
}
