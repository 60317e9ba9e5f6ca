// Package compress wraps capture files in streaming compression formats.
//
// Digitizer runs produce large captures that are usually archived compressed.
// A Codec turns a compressed stream back into the plain capture byte stream
// (NewReader) or produces a compressed archive from a plain one (NewWriter).
// Decoders never see compressed bytes: the source package layers a codec
// reader underneath its cursor.
//
// Supported formats:
//   - None: passthrough
//   - Zstd: Zstandard frames (klauspost/compress, or valyala/gozstd with -tags gozstd)
//   - S2: S2/Snappy framed streams (klauspost/compress/s2)
//   - LZ4: LZ4 frames (pierrec/lz4/v4)
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/format"
)

// Decompressor opens a decompressing view over a compressed stream.
type Decompressor interface {
	// NewReader returns a reader producing the decompressed bytes of r.
	// The caller must Close the returned reader; closing it does not close r.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Compressor opens a compressing writer over a destination stream.
type Compressor interface {
	// NewWriter returns a writer compressing into w. Close flushes the final
	// frame but does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

// Codec combines both directions for one compression format.
type Codec interface {
	Compressor
	Decompressor
	Type() format.CompressionType
}

// Magic prefixes of the supported stream formats.
var (
	zstdMagic   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic    = []byte{0x04, 0x22, 0x4D, 0x18}
	s2Magic     = []byte{0xFF, 0x06, 0x00, 0x00, 'S', '2', 's', 'T', 'w', 'O'}
	snappyMagic = []byte{0xFF, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
)

// MagicSize is the number of leading bytes Detect needs to recognize every format.
const MagicSize = 10

// Detect identifies the compression format from the first bytes of a stream.
//
// Anything unrecognized is reported as CompressionNone: a plain capture starts
// with a small little-endian string length, which never collides with the
// magic numbers above.
func Detect(prefix []byte) format.CompressionType {
	switch {
	case bytes.HasPrefix(prefix, zstdMagic):
		return format.CompressionZstd
	case bytes.HasPrefix(prefix, lz4Magic):
		return format.CompressionLZ4
	case bytes.HasPrefix(prefix, s2Magic), bytes.HasPrefix(prefix, snappyMagic):
		return format.CompressionS2
	default:
		return format.CompressionNone
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCodec(),
	format.CompressionZstd: NewZstdCodec(),
	format.CompressionS2:   NewS2Codec(),
	format.CompressionLZ4:  NewLZ4Codec(),
}

// GetCodec retrieves the built-in Codec for the compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedCompression, compressionType)
}

// nopWriteCloser adapts writers whose Close has nothing to flush.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
