package event

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/digitrace/format"
	"github.com/arloliu/digitrace/internal/synth"
	"github.com/arloliu/digitrace/section"
	"github.com/arloliu/digitrace/source"
)

// twoChannelHeader: both channels enabled, 4 samples per trace.
func twoChannelHeader() *section.FileHeader {
	return &section.FileHeader{
		ProgramVersion:      "scope 2.1",
		RunDescription:      "two channels",
		Resolution:          12,
		ChannelCount:        2,
		ChannelEnabled:      []bool{true, true},
		EnabledChannelCount: 2,
		VoltsScale:          []float64{0.5, 2},
		ChanOffsetVolts:     []float64{1, -1},
		SampleInterval:      4e-9,
		SampleCount:         4,
		TriggerEnabled:      []bool{true, false},
		TriggerLevel:        []float64{0.25, 0},
		TriggerSlope:        []format.TriggerSlope{format.SlopeRising, format.SlopeAbove},
		ExtTriggerSlope:     format.SlopeFalling,
	}
}

// maskedHeader: channels 0 and 2 enabled, channel 1 disabled.
func maskedHeader(samples int) *section.FileHeader {
	h := synth.Header(3, samples)
	h.ChannelEnabled = []bool{true, false, true}
	h.EnabledChannelCount = 2
	h.VoltsScale = []float64{1, 10, 0.25}
	h.ChanOffsetVolts = []float64{0, 5, 0.5}

	return h
}

// ramp returns n samples starting at base.
func ramp(base int16, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = base + int16(i)
	}

	return out
}

// capture builds a file with events events whose traces are ramps derived
// from the event and channel position.
func capture(t *testing.T, h *section.FileHeader, events int) []byte {
	t.Helper()

	b := synth.NewBuilder(h)
	enabled := h.EnabledChannels()
	for i := range events {
		traces := make([][]int16, len(enabled))
		for j, ch := range enabled {
			traces[j] = ramp(int16(i*100+ch*10), int(h.SampleCount))
		}
		err := b.AddEvent(section.EventPrefix{
			Index:       uint32(i),
			RunTime:     float64(i) * 0.5,
			TriggerTime: 1e-8,
		}, traces)
		require.NoError(t, err)
	}

	return bytes.Clone(b.Bytes())
}

// openAtEvents decodes the header of data and returns the cursor positioned
// at event record 0.
func openAtEvents(t *testing.T, data []byte) (*section.FileHeader, *source.Cursor) {
	t.Helper()

	cur := source.NewCursor(bytes.NewReader(data), 0)
	h, err := section.DecodeHeader(cur)
	require.NoError(t, err)

	return h, cur
}
