package section

import (
	"errors"
	"io"

	"github.com/arloliu/digitrace/endian"
	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/source"
)

// EventPrefix is the metadata block at the start of every event record,
// ahead of the sample traces.
type EventPrefix struct {
	// Index is the on-disk event counter.
	Index uint32
	// RunTime is the time since run start, in seconds.
	RunTime float64
	// SavedTraceCount is informational; it never bounds decoding.
	SavedTraceCount int32
	// Saved holds the per-record saved flag of every channel.
	Saved []bool
	// TriggerTime is the time from the first sample to the trigger crossing, in seconds.
	TriggerTime float64
}

// EventPrefixSize returns the encoded prefix size for channelCount channels.
func EventPrefixSize(channelCount int) int {
	return EventPrefixFixedSize + channelCount*BoolSize
}

// ReadEventPrefix reads one event prefix for a capture with channelCount
// channels.
//
// It returns io.EOF, unwrapped, only when r holds no bytes at all at the
// record boundary. Any other short read is errs.ErrTruncatedEvent. Saved
// flags treat every non-zero byte as true.
func ReadEventPrefix(r source.Reader, channelCount int) (EventPrefix, error) {
	fr := newFieldReader(r, SectionEvent, errs.ErrTruncatedEvent)

	var p EventPrefix

	off := r.Offset()
	n, err := io.ReadFull(r, fr.scratch[:Int32Size])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return p, io.EOF
		}

		return p, fr.fail(scalar("event_index"), off, err)
	}
	p.Index = fr.engine.Uint32(fr.scratch[:Int32Size])

	if p.RunTime, err = fr.readFloat64(scalar("run_time_seconds")); err != nil {
		return p, err
	}
	if p.SavedTraceCount, _, err = fr.readInt32(scalar("saved_trace_count")); err != nil {
		return p, err
	}
	if p.Saved, err = fr.boolVector("saved_channel", channelCount, false); err != nil {
		return p, err
	}
	if p.TriggerTime, err = fr.readFloat64(scalar("trigger_time_seconds")); err != nil {
		return p, err
	}

	return p, nil
}

// AppendTo appends the encoded prefix for channelCount channels to b.
func (p EventPrefix) AppendTo(b []byte, channelCount int) []byte {
	engine := endian.GetLittleEndianEngine()

	b = engine.AppendUint32(b, p.Index)
	b = endian.AppendFloat64(engine, b, p.RunTime)
	b = endian.AppendInt32(engine, b, p.SavedTraceCount)
	b = appendBools(b, p.Saved, channelCount)
	b = endian.AppendFloat64(engine, b, p.TriggerTime)

	return b
}

// Bytes encodes the prefix for channelCount channels.
func (p EventPrefix) Bytes(channelCount int) []byte {
	return p.AppendTo(make([]byte, 0, EventPrefixSize(channelCount)), channelCount)
}
