// Package synth builds capture files in memory. It backs the decoder tests
// and the tracereader synth command.
package synth

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/arloliu/digitrace/endian"
	"github.com/arloliu/digitrace/format"
	"github.com/arloliu/digitrace/section"
)

// Header returns a plausible header with channels channels, all enabled,
// and samples samples per trace at 2ns sampling.
func Header(channels, samples int) *section.FileHeader {
	h := &section.FileHeader{
		ProgramVersion:      "digitrace-synth 1.0",
		RunDescription:      "synthetic run",
		Resolution:          14,
		ChannelCount:        uint32(channels),
		ChannelEnabled:      make([]bool, channels),
		EnabledChannelCount: uint32(channels),
		VoltsScale:          make([]float64, channels),
		ChanOffsetVolts:     make([]float64, channels),
		SampleInterval:      2e-9,
		SampleCount:         uint32(samples),
		TriggerEnabled:      make([]bool, channels),
		TriggerLevel:        make([]float64, channels),
		TriggerSlope:        make([]format.TriggerSlope, channels),
		ExtTriggerLevel:     0.5,
		ExtTriggerSlope:     format.SlopeRising,
	}

	for i := range channels {
		h.ChannelEnabled[i] = true
		h.VoltsScale[i] = 1.0 / 8192
		h.ChanOffsetVolts[i] = 0.01 * float64(i)
		h.TriggerLevel[i] = -0.05
		h.TriggerSlope[i] = format.SlopeFalling
	}
	if channels > 0 {
		h.TriggerEnabled[0] = true
	}

	return h
}

// Builder accumulates a capture: the header followed by event records.
//
// Note: Builder is NOT thread-safe.
type Builder struct {
	header   *section.FileHeader
	channels []int
	engine   endian.EndianEngine
	buf      bytes.Buffer
	events   int
}

// NewBuilder starts a capture with header. The header's EnabledChannelCount
// must match its ChannelEnabled mask.
func NewBuilder(header *section.FileHeader) *Builder {
	b := &Builder{
		header:   header,
		channels: header.EnabledChannels(),
		engine:   endian.GetLittleEndianEngine(),
	}
	b.buf.Write(header.Bytes())

	return b
}

// Header returns the header the capture was started with.
func (b *Builder) Header() *section.FileHeader {
	return b.header
}

// HeaderSize returns the encoded size of the header.
func (b *Builder) HeaderSize() int {
	return b.header.Size()
}

// AddEvent appends one record. traces holds one slice per enabled channel in
// ascending channel order, each SampleCount samples long. A nil
// prefix.Saved marks every enabled channel as saved.
func (b *Builder) AddEvent(prefix section.EventPrefix, traces [][]int16) error {
	if len(traces) != len(b.channels) {
		return fmt.Errorf("got %d traces, header enables %d channels", len(traces), len(b.channels))
	}
	for i, tr := range traces {
		if len(tr) != int(b.header.SampleCount) {
			return fmt.Errorf("trace of channel %d has %d samples, want %d", b.channels[i], len(tr), b.header.SampleCount)
		}
	}

	if prefix.Saved == nil {
		prefix.Saved = append([]bool(nil), b.header.ChannelEnabled...)
	}

	rec := prefix.Bytes(int(b.header.ChannelCount))
	for _, tr := range traces {
		for _, v := range tr {
			rec = endian.AppendInt16(b.engine, rec, v)
		}
	}
	b.buf.Write(rec)
	b.events++

	return nil
}

// AddSynthetic appends n generated events. Traces are a flat baseline with
// small noise and one negative pulse per channel; the result is fully
// determined by seed and the event position.
func (b *Builder) AddSynthetic(n int, seed uint64) {
	samples := int(b.header.SampleCount)

	for range n {
		idx := b.events
		rng := rand.New(rand.NewPCG(seed, uint64(idx)))

		traces := make([][]int16, len(b.channels))
		for i := range traces {
			traces[i] = pulse(rng, samples)
		}

		prefix := section.EventPrefix{
			Index:           uint32(idx),
			RunTime:         float64(idx) * 1e-3,
			SavedTraceCount: int32(len(b.channels)),
			TriggerTime:     float64(samples/4) * b.header.SampleInterval,
		}
		// Traces were generated for exactly the enabled channels.
		_ = b.AddEvent(prefix, traces)
	}
}

func pulse(rng *rand.Rand, samples int) []int16 {
	out := make([]int16, samples)
	center := samples / 4
	if samples > 8 {
		center += rng.IntN(samples / 2)
	}
	amp := 2000 + rng.Float64()*6000
	width := 3.0 + rng.Float64()*5

	for s := range out {
		d := float64(s-center) / width
		v := -amp*math.Exp(-d*d/2) + rng.NormFloat64()*20
		out[s] = int16(max(math.MinInt16, min(math.MaxInt16, math.Round(v))))
	}

	return out
}

// Events returns the number of records added.
func (b *Builder) Events() int {
	return b.events
}

// Len returns the capture size in bytes.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Bytes returns the capture built so far. The slice aliases the builder's
// storage until the next Add call.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// WriteTo writes the capture to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(b.buf.Bytes()).WriteTo(w)
}
