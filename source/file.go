package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/arloliu/digitrace/compress"
	"github.com/arloliu/digitrace/format"
	"github.com/arloliu/digitrace/internal/options"
)

// fileConfig holds the OpenFile settings.
type fileConfig struct {
	bufferSize  int
	compression format.CompressionType // zero means auto-detect
}

// FileOption configures OpenFile.
type FileOption = options.Option[*fileConfig]

// WithBufferSize sets the cursor read-ahead buffer size in bytes.
func WithBufferSize(size int) FileOption {
	return options.New(func(c *fileConfig) error {
		if size < 0 {
			return fmt.Errorf("buffer size must not be negative: %d", size)
		}
		c.bufferSize = size

		return nil
	})
}

// WithCompression forces the compression type instead of sniffing magic bytes.
func WithCompression(ct format.CompressionType) FileOption {
	return options.New(func(c *fileConfig) error {
		if _, err := compress.GetCodec(ct); err != nil {
			return err
		}
		c.compression = ct

		return nil
	})
}

// File is a capture file opened for decoding.
//
// Plain captures are seekable; compressed captures are read through a
// streaming decompressor and only support sequential decoding.
type File struct {
	*Cursor
	file        *os.File
	decomp      io.ReadCloser
	compression format.CompressionType
}

// OpenFile opens the capture at path. Compressed captures (zstd, s2, lz4) are
// detected from their magic bytes and decompressed transparently.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	cfg := &fileConfig{bufferSize: DefaultBufferSize}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	ct := cfg.compression
	if ct == 0 {
		ct, err = sniff(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("detect compression of %s: %w", path, err)
		}
	}

	if ct == format.CompressionNone {
		return &File{
			Cursor:      NewCursor(f, cfg.bufferSize),
			file:        f,
			compression: ct,
		}, nil
	}

	codec, err := compress.GetCodec(ct)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	decomp, err := codec.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s stream: %w", ct, err)
	}

	return &File{
		Cursor:      NewCursor(struct{ io.Reader }{decomp}, cfg.bufferSize),
		file:        f,
		decomp:      decomp,
		compression: ct,
	}, nil
}

// sniff reads the magic prefix and rewinds the file.
func sniff(f *os.File) (format.CompressionType, error) {
	prefix := make([]byte, compress.MagicSize)

	n, err := io.ReadFull(f, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	return compress.Detect(prefix[:n]), nil
}

// Compression returns the compression the file was opened with.
func (f *File) Compression() format.CompressionType {
	return f.compression
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.file.Name()
}

// Close releases the decompressor (if any) and the underlying file.
func (f *File) Close() error {
	var errDecomp error
	if f.decomp != nil {
		errDecomp = f.decomp.Close()
	}

	return errors.Join(errDecomp, f.file.Close())
}
