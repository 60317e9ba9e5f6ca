package section

// Wire sizes of the primitive field types.
const (
	BoolSize    = 1
	Int16Size   = 2
	Int32Size   = 4
	Float64Size = 8
)

// Section names reported in decode errors.
const (
	SectionHeader = "header"
	SectionEvent  = "event"
)

// EventPrefixFixedSize is the size of the channel-independent part of an
// event prefix: index, run time, saved trace count and trigger time.
const EventPrefixFixedSize = Int32Size + Float64Size + Int32Size + Float64Size
