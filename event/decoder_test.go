package event

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/internal/synth"
	"github.com/arloliu/digitrace/section"
	"github.com/arloliu/digitrace/source"
)

func TestDecoder_TwoChannelEndToEnd(t *testing.T) {
	b := synth.NewBuilder(twoChannelHeader())
	require.NoError(t, b.AddEvent(section.EventPrefix{
		Index:           7,
		RunTime:         1.5,
		SavedTraceCount: 2,
		Saved:           []bool{true, true},
		TriggerTime:     2e-9,
	}, [][]int16{{0, 1, -2, 100}, {-1, 3, 0, 32767}}))

	h, cur := openAtEvents(t, b.Bytes())
	dec, err := NewDecoder(h)
	require.NoError(t, err)
	defer dec.Close()

	ev, err := dec.Decode(cur)
	require.NoError(t, err)
	require.Equal(t, uint32(7), ev.Index)
	require.Equal(t, 1.5, ev.RunTime)
	require.Equal(t, 2e-9, ev.TriggerTime)
	require.Equal(t, int32(2), ev.SavedTraceCount)
	require.Equal(t, []bool{true, true}, ev.Saved)

	require.Len(t, ev.Traces, 2)
	require.Equal(t, 0, ev.Traces[0].Channel)
	require.Equal(t, []float64{-1, -0.5, -2, 49}, ev.Traces[0].Volts)
	require.Equal(t, 1, ev.Traces[1].Channel)
	require.Equal(t, []float64{-1, 7, 1, 65535}, ev.Traces[1].Volts)
	require.Nil(t, ev.Traces[0].Raw)

	_, err = dec.Decode(cur)
	require.Equal(t, io.EOF, err)
	require.Equal(t, int64(len(b.Bytes())), cur.Offset())
}

func TestChunkedReader_MillivoltScenario(t *testing.T) {
	h := twoChannelHeader()
	h.VoltsScale = []float64{0.001, 0.001}
	h.ChanOffsetVolts = []float64{0, 0}

	b := synth.NewBuilder(h)
	require.NoError(t, b.AddEvent(section.EventPrefix{}, [][]int16{{100, 200, 300, 400}, {0, 0, 0, 0}}))

	r, err := NewChunkedReader(source.NewCursor(bytes.NewReader(b.Bytes()), 0), nil)
	require.NoError(t, err)

	batch, err := r.Next()
	require.NoError(t, err)
	require.Len(t, batch, 1)

	ch0, ok := batch[0].Trace(0)
	require.True(t, ok)
	require.InDeltaSlice(t, []float64{0.1, 0.2, 0.3, 0.4}, ch0.Volts, 1e-12)

	ch1, ok := batch[0].Trace(1)
	require.True(t, ok)
	require.Equal(t, []float64{0, 0, 0, 0}, ch1.Volts)

	_, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestDecoder_Calibration(t *testing.T) {
	h := maskedHeader(8)
	data := capture(t, h, 1)
	hdr, cur := openAtEvents(t, data)

	dec, err := NewDecoder(hdr, WithRawSamples())
	require.NoError(t, err)

	ev, err := dec.Decode(cur)
	require.NoError(t, err)

	for _, tr := range ev.Traces {
		require.Len(t, tr.Raw, 8)
		a, b := hdr.VoltsScale[tr.Channel], hdr.ChanOffsetVolts[tr.Channel]
		for s, r := range tr.Raw {
			require.Equal(t, a*float64(r)-b, tr.Volts[s], "channel %d sample %d", tr.Channel, s)
		}
	}
}

func TestDecoder_EnabledMask(t *testing.T) {
	h := maskedHeader(5)
	data := capture(t, h, 2)
	hdr, cur := openAtEvents(t, data)

	dec, err := NewDecoder(hdr, WithRawSamples())
	require.NoError(t, err)
	require.Equal(t, int64(section.EventPrefixSize(3)+2*5*2), dec.RecordSize())

	for i := range 2 {
		ev, err := dec.Decode(cur)
		require.NoError(t, err)
		require.Equal(t, []int{0, 2}, ev.Channels())
		require.Equal(t, uint32(i), ev.Index)

		_, ok := ev.Trace(1)
		require.False(t, ok)

		tr, ok := ev.Trace(2)
		require.True(t, ok)
		require.Equal(t, ramp(int16(i*100+20), 5), tr.Raw)
	}

	_, err = dec.Decode(cur)
	require.Equal(t, io.EOF, err)
}

func TestDecoder_EnabledMaskIgnoresSavedFlags(t *testing.T) {
	h := maskedHeader(4)
	b := synth.NewBuilder(h)
	traces := [][]int16{ramp(0, 4), ramp(20, 4)}
	require.NoError(t, b.AddEvent(section.EventPrefix{Index: 0, Saved: []bool{true, true, true}}, traces))
	require.NoError(t, b.AddEvent(section.EventPrefix{Index: 1, Saved: []bool{false, true, false}}, traces))
	require.NoError(t, b.AddEvent(section.EventPrefix{Index: 2, Saved: []bool{true, true, true}}, traces))

	for _, opts := range [][]Option{nil, {WithSavedOnly()}} {
		hdr, cur := openAtEvents(t, b.Bytes())
		dec, err := NewDecoder(hdr, opts...)
		require.NoError(t, err)

		for i := range 3 {
			ev, err := dec.Decode(cur)
			require.NoError(t, err)
			require.Equal(t, uint32(i), ev.Index)
			require.True(t, ev.IsSaved(1))

			_, ok := ev.Trace(1)
			require.False(t, ok, "disabled channel 1 decoded in event %d", i)
			require.LessOrEqual(t, len(ev.Traces), int(hdr.EnabledChannelCount))
		}

		_, err = dec.Decode(cur)
		require.Equal(t, io.EOF, err)
		require.Equal(t, int64(len(b.Bytes())), cur.Offset())
	}
}

func TestDecoder_SavedFlags(t *testing.T) {
	h := synth.Header(3, 4)
	b := synth.NewBuilder(h)
	traces := [][]int16{ramp(0, 4), ramp(10, 4), ramp(20, 4)}
	require.NoError(t, b.AddEvent(section.EventPrefix{Index: 0, Saved: []bool{true, false, true}}, traces))
	require.NoError(t, b.AddEvent(section.EventPrefix{Index: 1, Saved: []bool{false, false, false}}, traces))
	require.NoError(t, b.AddEvent(section.EventPrefix{Index: 2}, traces))

	t.Run("Advisory", func(t *testing.T) {
		hdr, cur := openAtEvents(t, b.Bytes())
		dec, err := NewDecoder(hdr)
		require.NoError(t, err)

		for i := range 3 {
			ev, err := dec.Decode(cur)
			require.NoError(t, err)
			require.Equal(t, uint32(i), ev.Index)
			require.Equal(t, []int{0, 1, 2}, ev.Channels())
		}
	})

	t.Run("SavedOnly", func(t *testing.T) {
		hdr, cur := openAtEvents(t, b.Bytes())
		dec, err := NewDecoder(hdr, WithSavedOnly())
		require.NoError(t, err)

		ev, err := dec.Decode(cur)
		require.NoError(t, err)
		require.Equal(t, []int{0, 2}, ev.Channels())
		require.True(t, ev.IsSaved(2))
		require.False(t, ev.IsSaved(1))

		ev, err = dec.Decode(cur)
		require.NoError(t, err)
		require.Empty(t, ev.Traces)

		// The filtered records were still fully consumed.
		ev, err = dec.Decode(cur)
		require.NoError(t, err)
		require.Equal(t, uint32(2), ev.Index)
		require.Equal(t, []int{0, 1, 2}, ev.Channels())
	})
}

func TestDecoder_Truncation(t *testing.T) {
	h := twoChannelHeader()
	data := capture(t, h, 1)
	headerEnd := h.Size()

	t.Run("AtBoundary", func(t *testing.T) {
		hdr, cur := openAtEvents(t, data[:headerEnd])
		dec, err := NewDecoder(hdr)
		require.NoError(t, err)

		_, err = dec.Decode(cur)
		require.Equal(t, io.EOF, err)
	})

	for cut := headerEnd + 1; cut < len(data); cut++ {
		hdr, cur := openAtEvents(t, data[:cut])
		dec, err := NewDecoder(hdr)
		require.NoError(t, err)

		_, err = dec.Decode(cur)
		require.ErrorIs(t, err, errs.ErrTruncatedEvent, "cut at %d", cut)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut at %d", cut)
		require.NotEqual(t, io.EOF, err)

		var de *errs.DecodeError
		require.True(t, errors.As(err, &de))
		require.Equal(t, section.SectionEvent, de.Section)
	}

	t.Run("MidSampleField", func(t *testing.T) {
		cut := headerEnd + section.EventPrefixSize(2) + 3
		hdr, cur := openAtEvents(t, data[:cut])
		dec, err := NewDecoder(hdr)
		require.NoError(t, err)

		_, err = dec.Decode(cur)
		var de *errs.DecodeError
		require.True(t, errors.As(err, &de))
		require.Equal(t, "trace[0]", de.Field)
		require.Equal(t, int64(headerEnd+section.EventPrefixSize(2)), de.Offset)
	})
}

func TestDecoder_LargeTraceGrowsBuffer(t *testing.T) {
	// 2 x 12k samples exceed the default scratch buffer.
	h := synth.Header(2, 12*1024)
	b := synth.NewBuilder(h)
	b.AddSynthetic(2, 3)

	hdr, cur := openAtEvents(t, b.Bytes())
	dec, err := NewDecoder(hdr, WithRawSamples())
	require.NoError(t, err)
	defer dec.Close()

	for range 2 {
		ev, err := dec.Decode(cur)
		require.NoError(t, err)
		require.Len(t, ev.Traces, 2)
		require.Len(t, ev.Traces[1].Volts, 12*1024)
	}

	_, err = dec.Decode(cur)
	require.Equal(t, io.EOF, err)
}

func TestDecoder_HugeSampleCountTruncates(t *testing.T) {
	h := synth.Header(1, 4)
	h.SampleCount = 1 << 30
	data := append(h.Bytes(), section.EventPrefix{}.Bytes(1)...)
	data = append(data, 1, 2, 3, 4)

	hdr, cur := openAtEvents(t, data)
	dec, err := NewDecoder(hdr)
	require.NoError(t, err)

	_, err = dec.Decode(cur)
	require.ErrorIs(t, err, errs.ErrTruncatedEvent)
}

func TestDecoder_ReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	h := synth.Header(1, 4)
	data := h.Bytes()

	cur := source.NewCursor(io.MultiReader(bytes.NewReader(data), errReader{boom}), 0)
	hdr, err := section.DecodeHeader(cur)
	require.NoError(t, err)

	dec, err := NewDecoder(hdr)
	require.NoError(t, err)

	_, err = dec.Decode(cur)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, errs.ErrTruncatedEvent)
}

func TestNewDecoder_NilHeader(t *testing.T) {
	_, err := NewDecoder(nil)
	require.ErrorIs(t, err, errs.ErrInvalidConfig)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
