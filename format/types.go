package format

import (
	"fmt"
	"strings"
)

type (
	TriggerSlope    int32
	CompressionType uint8
)

const (
	SlopeAbove           TriggerSlope = 0 // SlopeAbove triggers while the signal is above the level.
	SlopeBelow           TriggerSlope = 1 // SlopeBelow triggers while the signal is below the level.
	SlopeRising          TriggerSlope = 2 // SlopeRising triggers on a rising crossing.
	SlopeFalling         TriggerSlope = 3 // SlopeFalling triggers on a falling crossing.
	SlopeRisingOrFalling TriggerSlope = 4 // SlopeRisingOrFalling triggers on either crossing.

	CompressionNone CompressionType = 0x1 // CompressionNone represents a plain capture file.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents a Zstandard stream.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents an S2 stream.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents an LZ4 frame stream.
)

// IsValid reports whether s is one of the five slopes the digitizer writes.
func (s TriggerSlope) IsValid() bool {
	return s >= SlopeAbove && s <= SlopeRisingOrFalling
}

func (s TriggerSlope) String() string {
	switch s {
	case SlopeAbove:
		return "Above"
	case SlopeBelow:
		return "Below"
	case SlopeRising:
		return "Rising"
	case SlopeFalling:
		return "Falling"
	case SlopeRisingOrFalling:
		return "RisingOrFalling"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Extension returns the file name suffix conventionally used for the compression type.
func (c CompressionType) Extension() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionS2:
		return ".s2"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseCompressionType parses a case-insensitive compression name
// ("none", "zstd", "s2", "lz4").
func ParseCompressionType(name string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}
