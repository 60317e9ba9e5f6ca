package event

import (
	"iter"
	"slices"
)

// Trace is one channel's samples for one event.
type Trace struct {
	// Channel is the channel index in the capture header.
	Channel int
	// Volts holds the calibrated samples.
	Volts []float64
	// Raw holds the on-disk samples; nil unless WithRawSamples is set.
	Raw []int16
}

// Event is one decoded record.
type Event struct {
	Index           uint32
	RunTime         float64 // seconds since run start
	TriggerTime     float64 // seconds from first sample to trigger crossing
	SavedTraceCount int32
	Saved           []bool // per-record saved flag, one per header channel
	Traces          []Trace
}

// Batch is a group of consecutively decoded events.
type Batch []Event

// Trace returns the trace of channel, if the event carries one.
func (e Event) Trace(channel int) (Trace, bool) {
	i := slices.IndexFunc(e.Traces, func(t Trace) bool { return t.Channel == channel })
	if i < 0 {
		return Trace{}, false
	}

	return e.Traces[i], true
}

// IsSaved reports the record's saved flag for channel.
func (e Event) IsSaved(channel int) bool {
	return channel >= 0 && channel < len(e.Saved) && e.Saved[channel]
}

// Channels returns the channel indices carried by the event, ascending.
func (e Event) Channels() []int {
	out := make([]int, len(e.Traces))
	for i, t := range e.Traces {
		out[i] = t.Channel
	}

	return out
}

// All iterates over (channel, volts) pairs in channel order.
func (e Event) All() iter.Seq2[int, []float64] {
	return func(yield func(int, []float64) bool) {
		for _, t := range e.Traces {
			if !yield(t.Channel, t.Volts) {
				return
			}
		}
	}
}

// Len returns the number of events in the batch.
func (b Batch) Len() int {
	return len(b)
}

// Events iterates over the batch.
func (b Batch) Events() iter.Seq[Event] {
	return slices.Values(b)
}
