// Package section defines the on-disk layout of digitizer capture files and
// decodes their fixed-structure parts: the file header and the metadata
// prefix of every event record.
//
// # Overview
//
// A capture is a header followed by event records of one fixed size:
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Header (variable, decoded once)                         │
//	│  - program_version, run_description (int32 len + bytes) │
//	│  - resolution, channel_count N                          │
//	│  - channel_enabled[N], volts_scale[N], offsets[N]       │
//	│  - sample_interval_seconds, sample_count S              │
//	│  - trigger enabled/level/slope [N] + external trigger   │
//	├─────────────────────────────────────────────────────────┤
//	│ Event record 0                                          │
//	│  - prefix: index, run_time, saved_trace_count,          │
//	│            saved_channel[N], trigger_time               │
//	│  - S int16 samples per enabled channel, ascending       │
//	├─────────────────────────────────────────────────────────┤
//	│ Event record 1 ...                                      │
//	└─────────────────────────────────────────────────────────┘
//
// All integers and floats are little-endian; booleans are one byte;
// strings are 8-bit codepoints (Latin-1).
//
// # Validation
//
// DecodeHeader is strict about what drives decoding: boolean bytes other than
// 0 and 1, a channel count or sample count below 1, a negative string length
// and a non-positive sample interval are errs.ErrMalformedHeader. Trigger
// slopes are informational and kept as read, even outside 0..4. Event
// prefixes are lenient: any non-zero saved byte is true.
//
// Short reads are reported as errs.ErrTruncatedHeader or
// errs.ErrTruncatedEvent inside an *errs.DecodeError naming the field and
// byte offset.
package section
