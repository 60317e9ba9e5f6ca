package section

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/arloliu/digitrace/endian"
	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/source"
)

// field names a wire field. Vector elements carry their index; the display
// name is only built when an error is reported.
type field struct {
	name  string
	index int // -1 for scalar fields
}

func scalar(name string) field {
	return field{name: name, index: -1}
}

func element(name string, i int) field {
	return field{name: name, index: i}
}

func (f field) String() string {
	if f.index < 0 {
		return f.name
	}

	return f.name + "[" + strconv.Itoa(f.index) + "]"
}

// fieldReader reads little-endian wire fields and turns short reads into
// DecodeErrors of the configured kind.
type fieldReader struct {
	r       source.Reader
	engine  endian.EndianEngine
	section string
	short   error // sentinel used for short reads
	scratch [Float64Size]byte
}

func newFieldReader(r source.Reader, section string, short error) *fieldReader {
	return &fieldReader{
		r:       r,
		engine:  endian.GetLittleEndianEngine(),
		section: section,
		short:   short,
	}
}

// fail builds the error for a failed read of f that started at off.
func (fr *fieldReader) fail(f field, off int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &errs.DecodeError{Kind: fr.short, Section: fr.section, Field: f.String(), Offset: off, Err: io.ErrUnexpectedEOF}
	}

	return fmt.Errorf("read %s field %q at offset %d: %w", fr.section, f, off, err)
}

func (fr *fieldReader) malformed(f field, off int64, format string, args ...any) error {
	return &errs.DecodeError{
		Kind:    errs.ErrMalformedHeader,
		Section: fr.section,
		Field:   f.String(),
		Offset:  off,
		Err:     fmt.Errorf(format, args...),
	}
}

func (fr *fieldReader) read(f field, n int) ([]byte, int64, error) {
	off := fr.r.Offset()
	if _, err := io.ReadFull(fr.r, fr.scratch[:n]); err != nil {
		return nil, off, fr.fail(f, off, err)
	}

	return fr.scratch[:n], off, nil
}

func (fr *fieldReader) readInt32(f field) (int32, int64, error) {
	b, off, err := fr.read(f, Int32Size)
	if err != nil {
		return 0, off, err
	}

	return endian.Int32(fr.engine, b), off, nil
}

func (fr *fieldReader) readFloat64(f field) (float64, error) {
	b, _, err := fr.read(f, Float64Size)
	if err != nil {
		return 0, err
	}

	return endian.Float64(fr.engine, b), nil
}

// strictBool rejects bytes other than 0 and 1.
func (fr *fieldReader) strictBool(f field) (bool, error) {
	b, off, err := fr.read(f, BoolSize)
	if err != nil {
		return false, err
	}

	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fr.malformed(f, off, "boolean byte 0x%02x", b[0])
	}
}

// looseBool treats any non-zero byte as true.
func (fr *fieldReader) looseBool(f field) (bool, error) {
	b, _, err := fr.read(f, BoolSize)
	if err != nil {
		return false, err
	}

	return b[0] != 0, nil
}

// vectorCap bounds the up-front allocation for count-prefixed vectors so a
// corrupt count cannot allocate more than the file can back.
func vectorCap(n int) int {
	return min(n, 1024)
}

func (fr *fieldReader) boolVector(name string, n int, strict bool) ([]bool, error) {
	out := make([]bool, 0, vectorCap(n))
	for i := range n {
		var (
			v   bool
			err error
		)
		if strict {
			v, err = fr.strictBool(element(name, i))
		} else {
			v, err = fr.looseBool(element(name, i))
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func (fr *fieldReader) float64Vector(name string, n int) ([]float64, error) {
	out := make([]float64, 0, vectorCap(n))
	for i := range n {
		v, err := fr.readFloat64(element(name, i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

// readString reads an int32 length followed by that many bytes, each byte
// taken as one 8-bit codepoint.
func (fr *fieldReader) readString(name string) (string, error) {
	lenField := scalar(name + "_len")
	length, off, err := fr.readInt32(lenField)
	if err != nil {
		return "", err
	}

	if length < 0 {
		return "", fr.malformed(lenField, off, "negative length %d", length)
	}

	var buf bytes.Buffer
	bodyOff := fr.r.Offset()
	// CopyN grows the buffer with the data actually present
	if _, err := io.CopyN(&buf, fr.r, int64(length)); err != nil {
		return "", fr.fail(scalar(name), bodyOff, err)
	}

	return latin1String(buf.Bytes()), nil
}

func latin1String(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}

	return string(runes)
}

// appendLatin1 is the inverse of latin1String; runes above 0xFF become '?'.
func appendLatin1(b []byte, s string) []byte {
	for _, r := range s {
		if r > 0xFF {
			r = '?'
		}
		b = append(b, byte(r))
	}

	return b
}

// latin1Len returns the encoded length of s.
func latin1Len(s string) int {
	n := 0
	for range s {
		n++
	}

	return n
}
