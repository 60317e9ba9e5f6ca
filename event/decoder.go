package event

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/digitrace/endian"
	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/internal/options"
	"github.com/arloliu/digitrace/internal/pool"
	"github.com/arloliu/digitrace/section"
	"github.com/arloliu/digitrace/source"
)

// Decoder decodes event records laid out by a FileHeader.
//
// The header is shared read-only; a Decoder owns a pooled scratch buffer and
// is NOT safe for concurrent use. Call Close to return the buffer.
type Decoder struct {
	header   *section.FileHeader
	channels []int
	engine   endian.EndianEngine
	buf      *pool.ByteBuffer

	savedOnly bool
	keepRaw   bool
}

// NewDecoder creates a decoder for records described by header.
//
// Parameters:
//   - header: decoded capture header, must not be nil
//   - opts: WithSavedOnly and WithRawSamples apply; other options are ignored
//
// Returns:
//   - *Decoder: ready decoder
//   - error: errs.ErrInvalidConfig if header is nil or an option is rejected
func NewDecoder(header *section.FileHeader, opts ...Option) (*Decoder, error) {
	if header == nil {
		return nil, fmt.Errorf("%w: nil header", errs.ErrInvalidConfig)
	}

	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return newDecoder(header, cfg), nil
}

func newDecoder(header *section.FileHeader, cfg *config) *Decoder {
	return &Decoder{
		header:    header,
		channels:  header.EnabledChannels(),
		engine:    endian.GetLittleEndianEngine(),
		savedOnly: cfg.savedOnly,
		keepRaw:   cfg.keepRaw,
	}
}

// Header returns the header the decoder was built with.
func (d *Decoder) Header() *section.FileHeader {
	return d.header
}

// RecordSize returns the fixed on-disk size of one event record.
func (d *Decoder) RecordSize() int64 {
	return d.header.RecordSize()
}

// Decode reads exactly one event record from r.
//
// It returns io.EOF, unwrapped, when r is exhausted at the record boundary,
// and an error matching errs.ErrTruncatedEvent when the record is cut short.
// On any error the cursor position is unspecified and r must be abandoned.
func (d *Decoder) Decode(r source.Reader) (Event, error) {
	prefix, err := section.ReadEventPrefix(r, int(d.header.ChannelCount))
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		Index:           prefix.Index,
		RunTime:         prefix.RunTime,
		TriggerTime:     prefix.TriggerTime,
		SavedTraceCount: prefix.SavedTraceCount,
		Saved:           prefix.Saved,
		Traces:          make([]Trace, 0, len(d.channels)),
	}

	if d.buf == nil {
		d.buf = pool.GetRecordBuffer()
	}
	samples := int(d.header.SampleCount)

	for _, ch := range d.channels {
		off := r.Offset()
		raw, err := d.readTrace(r)
		if err != nil {
			return Event{}, traceError(ch, off, err)
		}

		// Bytes are always consumed; the saved flag only filters the output.
		if d.savedOnly && !prefix.Saved[ch] {
			continue
		}

		ev.Traces = append(ev.Traces, d.trace(ch, raw, samples))
	}

	return ev, nil
}

// readTrace reads one trace into the scratch buffer. Traces larger than the
// buffer grow it progressively, so a corrupt sample count cannot force a huge
// allocation ahead of the bytes actually present.
func (d *Decoder) readTrace(r source.Reader) ([]byte, error) {
	n := d.header.TraceBytes()
	if n <= d.buf.Cap() {
		raw := d.buf.Resize(n)
		_, err := io.ReadFull(r, raw)

		return raw, err
	}

	d.buf.Reset()
	if _, err := io.CopyN(d.buf, r, int64(n)); err != nil {
		return nil, err
	}

	return d.buf.Bytes(), nil
}

func (d *Decoder) trace(ch int, raw []byte, samples int) Trace {
	ints := make([]int16, samples)
	endian.DecodeInt16s(d.engine, raw, ints)

	scale := d.header.VoltsScale[ch]
	offset := d.header.ChanOffsetVolts[ch]

	volts := make([]float64, samples)
	for i, v := range ints {
		volts[i] = scale*float64(v) - offset
	}

	t := Trace{Channel: ch, Volts: volts}
	if d.keepRaw {
		t.Raw = ints
	}

	return t
}

func traceError(ch int, off int64, err error) error {
	field := fmt.Sprintf("trace[%d]", ch)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &errs.DecodeError{
			Kind:    errs.ErrTruncatedEvent,
			Section: section.SectionEvent,
			Field:   field,
			Offset:  off,
			Err:     io.ErrUnexpectedEOF,
		}
	}

	return fmt.Errorf("read %s at offset %d: %w", field, off, err)
}

// Close returns the scratch buffer to the pool. The decoder may still be
// used afterwards; it takes a new buffer on demand.
func (d *Decoder) Close() {
	if d.buf != nil {
		pool.PutRecordBuffer(d.buf)
		d.buf = nil
	}
}
