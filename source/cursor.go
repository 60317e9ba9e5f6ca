// Package source provides the byte cursor the capture decoders read from.
//
// A Cursor tracks the absolute byte offset of everything consumed through it,
// which is how the decoders tell a clean end of stream (nothing left at a
// record boundary) from a truncated record. Seekable sources additionally
// support random access to event records.
package source

import (
	"bufio"
	"fmt"
	"io"

	"github.com/arloliu/digitrace/errs"
)

// DefaultBufferSize is the read-ahead buffer used when none is configured.
const DefaultBufferSize = 64 * 1024

// Reader is the capability the decoders need: sequential reads plus the
// current absolute offset.
type Reader interface {
	io.Reader
	Offset() int64
}

// Cursor is a buffered Reader over an io.Reader.
//
// Note: Cursor is NOT thread-safe; it is owned by a single decoder at a time.
type Cursor struct {
	br     *bufio.Reader
	src    io.Reader
	seeker io.Seeker
	offset int64
}

var _ Reader = (*Cursor)(nil)

// NewCursor wraps r with a read-ahead buffer of bufferSize bytes
// (DefaultBufferSize when bufferSize <= 0). The offset starts at 0.
//
// If r implements io.Seeker, the cursor supports SeekTo and Size.
func NewCursor(r io.Reader, bufferSize int) *Cursor {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	c := &Cursor{
		br:  bufio.NewReaderSize(r, bufferSize),
		src: r,
	}

	if s, ok := r.(io.Seeker); ok {
		c.seeker = s
	}

	return c
}

// Read implements io.Reader and advances the offset by the bytes returned.
func (c *Cursor) Read(p []byte) (int, error) {
	n, err := c.br.Read(p)
	c.offset += int64(n)

	return n, err
}

// Offset returns the absolute offset of the next byte to be read.
func (c *Cursor) Offset() int64 {
	return c.offset
}

// Seekable reports whether SeekTo and Size are available.
func (c *Cursor) Seekable() bool {
	return c.seeker != nil
}

// SeekTo moves the cursor to the absolute offset off, discarding any
// buffered read-ahead.
func (c *Cursor) SeekTo(off int64) error {
	if c.seeker == nil {
		return errs.ErrNotSeekable
	}

	if off < 0 {
		return fmt.Errorf("seek to negative offset %d", off)
	}

	if _, err := c.seeker.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", off, err)
	}

	c.br.Reset(c.src)
	c.offset = off

	return nil
}

// Size returns the total length of a seekable source without moving the cursor.
func (c *Cursor) Size() (int64, error) {
	if c.seeker == nil {
		return 0, errs.ErrNotSeekable
	}

	cur, err := c.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	end, err := c.seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}

	if _, err := c.seeker.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}

	return end, nil
}
