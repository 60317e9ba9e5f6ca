package event

// State is the lifecycle position of a ChunkedReader.
type State uint8

const (
	// StateAwaitingHeader: the header is decoded on the first pull.
	StateAwaitingHeader State = iota
	// StateStreaming: records are being decoded.
	StateStreaming
	// StateExhausted: the stream ended cleanly. Terminal.
	StateExhausted
	// StateFailed: a decode error ended the stream. Terminal.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingHeader:
		return "AwaitingHeader"
	case StateStreaming:
		return "Streaming"
	case StateExhausted:
		return "Exhausted"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further batches can be produced.
func (s State) Terminal() bool {
	return s == StateExhausted || s == StateFailed
}

// Stats summarizes what a ChunkedReader has produced so far.
type Stats struct {
	// Events is the number of events delivered in batches.
	Events int
	// Batches is the number of batches delivered.
	Batches int
	// Bytes is the number of record bytes consumed after the header,
	// including those of a discarded partial batch.
	Bytes int64
}
