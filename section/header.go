package section

import (
	"fmt"
	"io"
	"math"

	"github.com/arloliu/digitrace/endian"
	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/format"
	"github.com/arloliu/digitrace/internal/hash"
	"github.com/arloliu/digitrace/source"
)

// FileHeader is the acquisition configuration stored at the start of a
// capture. It is decoded once and must be treated as read-only afterwards:
// event decoders share it by pointer.
type FileHeader struct {
	ProgramVersion string
	RunDescription string
	// Resolution is the digitizer resolution in bits. Informational only.
	Resolution int32

	ChannelCount        uint32
	ChannelEnabled      []bool
	EnabledChannelCount uint32

	// VoltsScale converts a raw sample of channel i into volts.
	VoltsScale []float64
	// ChanOffsetVolts is subtracted from the scaled sample of channel i.
	ChanOffsetVolts []float64

	// SampleInterval is the time between two samples, in seconds.
	SampleInterval float64
	// SampleCount is the number of samples in every trace of the file.
	SampleCount uint32

	TriggerEnabled    []bool
	ExtTriggerEnabled bool
	TriggerLevel      []float64
	ExtTriggerLevel   float64
	TriggerSlope      []format.TriggerSlope
	ExtTriggerSlope   format.TriggerSlope

	// HeaderEnd is the offset of event record 0. Set by DecodeHeader.
	HeaderEnd int64
	// Fingerprint is the xxHash64 of the header bytes. Set by DecodeHeader.
	Fingerprint uint64
}

// tee feeds every byte read through r into w without disturbing Offset.
type tee struct {
	source.Reader
	w io.Writer
}

func (t tee) Read(p []byte) (int, error) {
	n, err := t.Reader.Read(p)
	if n > 0 {
		_, _ = t.w.Write(p[:n])
	}

	return n, err
}

// DecodeHeader reads the capture header from r, which must be positioned at
// offset 0. On success r is positioned at the first event record.
//
// Returns:
//   - errs.ErrTruncatedHeader when a field runs past the end of r
//   - errs.ErrMalformedHeader when a field holds an impossible value
func DecodeHeader(r source.Reader) (*FileHeader, error) {
	if off := r.Offset(); off != 0 {
		return nil, fmt.Errorf("header must be decoded from offset 0, cursor is at %d", off)
	}

	digest := hash.NewDigest()
	fr := newFieldReader(tee{Reader: r, w: digest}, SectionHeader, errs.ErrTruncatedHeader)

	h := &FileHeader{}
	if err := h.decode(fr); err != nil {
		return nil, err
	}

	h.HeaderEnd = r.Offset()
	h.Fingerprint = digest.Sum64()

	return h, nil
}

func (h *FileHeader) decode(fr *fieldReader) error {
	var err error

	if h.ProgramVersion, err = fr.readString("program_version"); err != nil {
		return err
	}
	if h.RunDescription, err = fr.readString("run_description"); err != nil {
		return err
	}
	if h.Resolution, _, err = fr.readInt32(scalar("resolution")); err != nil {
		return err
	}

	count, off, err := fr.readInt32(scalar("channel_count"))
	if err != nil {
		return err
	}
	if count < 1 {
		return fr.malformed(scalar("channel_count"), off, "channel count %d, need at least 1", count)
	}
	n := int(count)
	h.ChannelCount = uint32(count)

	if h.ChannelEnabled, err = fr.boolVector("channel_enabled", n, true); err != nil {
		return err
	}
	h.EnabledChannelCount = 0
	for _, enabled := range h.ChannelEnabled {
		if enabled {
			h.EnabledChannelCount++
		}
	}

	if h.VoltsScale, err = fr.float64Vector("volts_scale", n); err != nil {
		return err
	}
	if h.ChanOffsetVolts, err = fr.float64Vector("chan_offset_volts", n); err != nil {
		return err
	}

	intervalOff := fr.r.Offset()
	if h.SampleInterval, err = fr.readFloat64(scalar("sample_interval_seconds")); err != nil {
		return err
	}
	if math.IsNaN(h.SampleInterval) || h.SampleInterval <= 0 {
		return fr.malformed(scalar("sample_interval_seconds"), intervalOff, "sample interval %g, need > 0", h.SampleInterval)
	}

	samples, off, err := fr.readInt32(scalar("sample_count"))
	if err != nil {
		return err
	}
	if samples < 1 {
		return fr.malformed(scalar("sample_count"), off, "sample count %d, need at least 1", samples)
	}
	h.SampleCount = uint32(samples)

	if h.TriggerEnabled, err = fr.boolVector("trigger_enabled", n, true); err != nil {
		return err
	}
	if h.ExtTriggerEnabled, err = fr.strictBool(scalar("ext_trigger_enabled")); err != nil {
		return err
	}
	if h.TriggerLevel, err = fr.float64Vector("trigger_level", n); err != nil {
		return err
	}
	if h.ExtTriggerLevel, err = fr.readFloat64(scalar("ext_trigger_level")); err != nil {
		return err
	}

	h.TriggerSlope = make([]format.TriggerSlope, 0, vectorCap(n))
	for i := range n {
		slope, err := readSlope(fr, element("trigger_slope", i))
		if err != nil {
			return err
		}
		h.TriggerSlope = append(h.TriggerSlope, slope)
	}

	h.ExtTriggerSlope, err = readSlope(fr, scalar("ext_trigger_slope"))

	return err
}

// readSlope keeps the raw value: trigger settings are informational, and
// values outside the known slopes report "Unknown" instead of failing.
func readSlope(fr *fieldReader, f field) (format.TriggerSlope, error) {
	v, _, err := fr.readInt32(f)
	if err != nil {
		return 0, err
	}

	return format.TriggerSlope(v), nil
}

// EnabledChannels returns the indices of the globally enabled channels in
// ascending order.
func (h *FileHeader) EnabledChannels() []int {
	out := make([]int, 0, h.EnabledChannelCount)
	for i, enabled := range h.ChannelEnabled {
		if enabled {
			out = append(out, i)
		}
	}

	return out
}

// TraceBytes returns the on-disk size of one channel trace.
func (h *FileHeader) TraceBytes() int {
	return int(h.SampleCount) * Int16Size
}

// RecordSize returns the on-disk size of one event record: the prefix plus
// one trace per enabled channel.
func (h *FileHeader) RecordSize() int64 {
	return int64(EventPrefixSize(int(h.ChannelCount))) + int64(h.EnabledChannelCount)*int64(h.TraceBytes())
}

// TraceDuration returns the time span covered by one trace, in seconds.
func (h *FileHeader) TraceDuration() float64 {
	return float64(h.SampleCount) * h.SampleInterval
}

// Size returns the encoded header size implied by the field values.
func (h *FileHeader) Size() int {
	n := int(h.ChannelCount)

	return Int32Size + latin1Len(h.ProgramVersion) +
		Int32Size + latin1Len(h.RunDescription) +
		Int32Size + // resolution
		Int32Size + // channel_count
		n*BoolSize + // channel_enabled
		n*Float64Size*2 + // volts_scale, chan_offset_volts
		Float64Size + // sample_interval_seconds
		Int32Size + // sample_count
		(n+1)*BoolSize + // trigger_enabled, ext_trigger_enabled
		(n+1)*Float64Size + // trigger_level, ext_trigger_level
		(n+1)*Int32Size // trigger_slope, ext_trigger_slope
}

// Bytes serializes the header in wire order. Per-channel slices shorter than
// ChannelCount are padded with zero values.
//
// HeaderEnd and Fingerprint are derived values and are not encoded.
func (h *FileHeader) Bytes() []byte {
	engine := endian.GetLittleEndianEngine()
	n := int(h.ChannelCount)
	b := make([]byte, 0, h.Size())

	b = endian.AppendInt32(engine, b, int32(latin1Len(h.ProgramVersion))) //nolint:gosec
	b = appendLatin1(b, h.ProgramVersion)
	b = endian.AppendInt32(engine, b, int32(latin1Len(h.RunDescription))) //nolint:gosec
	b = appendLatin1(b, h.RunDescription)
	b = endian.AppendInt32(engine, b, h.Resolution)
	b = endian.AppendInt32(engine, b, int32(h.ChannelCount)) //nolint:gosec

	b = appendBools(b, h.ChannelEnabled, n)
	b = appendFloats(engine, b, h.VoltsScale, n)
	b = appendFloats(engine, b, h.ChanOffsetVolts, n)
	b = endian.AppendFloat64(engine, b, h.SampleInterval)
	b = endian.AppendInt32(engine, b, int32(h.SampleCount)) //nolint:gosec

	b = appendBools(b, h.TriggerEnabled, n)
	b = appendBools(b, []bool{h.ExtTriggerEnabled}, 1)
	b = appendFloats(engine, b, h.TriggerLevel, n)
	b = endian.AppendFloat64(engine, b, h.ExtTriggerLevel)
	for i := range n {
		var slope format.TriggerSlope
		if i < len(h.TriggerSlope) {
			slope = h.TriggerSlope[i]
		}
		b = endian.AppendInt32(engine, b, int32(slope))
	}
	b = endian.AppendInt32(engine, b, int32(h.ExtTriggerSlope))

	return b
}

func appendBools(b []byte, v []bool, n int) []byte {
	for i := range n {
		if i < len(v) && v[i] {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}

	return b
}

func appendFloats(engine endian.EndianEngine, b []byte, v []float64, n int) []byte {
	for i := range n {
		var f float64
		if i < len(v) {
			f = v[i]
		}
		b = endian.AppendFloat64(engine, b, f)
	}

	return b
}
