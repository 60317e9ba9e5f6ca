// Package endian provides byte order utilities for decoding digitizer captures.
//
// It extends encoding/binary by combining ByteOrder and AppendByteOrder into a
// single EndianEngine interface, and adds the signed and floating point
// accessors the capture format is built from (int16 samples, int32 counts,
// float64 calibration constants).
//
// Capture files are always little-endian:
//
//	engine := endian.GetLittleEndianEngine()
//	count := endian.Int32(engine, buf[0:4])
//
// All functions in this package are safe for concurrent use.
package endian

import (
	"encoding/binary"
	"math"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// binary.LittleEndian and binary.BigEndian both satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// Int16 decodes a two's complement int16 from the first 2 bytes of b.
func Int16(engine EndianEngine, b []byte) int16 {
	return int16(engine.Uint16(b)) //nolint:gosec
}

// Int32 decodes a two's complement int32 from the first 4 bytes of b.
func Int32(engine EndianEngine, b []byte) int32 {
	return int32(engine.Uint32(b)) //nolint:gosec
}

// Float64 decodes an IEEE 754 float64 from the first 8 bytes of b.
func Float64(engine EndianEngine, b []byte) float64 {
	return math.Float64frombits(engine.Uint64(b))
}

// AppendInt16 appends v to b using the engine's byte order.
func AppendInt16(engine EndianEngine, b []byte, v int16) []byte {
	return engine.AppendUint16(b, uint16(v)) //nolint:gosec
}

// AppendInt32 appends v to b using the engine's byte order.
func AppendInt32(engine EndianEngine, b []byte, v int32) []byte {
	return engine.AppendUint32(b, uint32(v)) //nolint:gosec
}

// AppendFloat64 appends the IEEE 754 bits of v to b using the engine's byte order.
func AppendFloat64(engine EndianEngine, b []byte, v float64) []byte {
	return engine.AppendUint64(b, math.Float64bits(v))
}

// DecodeInt16s decodes len(dst) consecutive int16 values from src.
//
// Panics if src holds fewer than 2*len(dst) bytes.
func DecodeInt16s(engine EndianEngine, src []byte, dst []int16) {
	if len(dst) == 0 {
		return
	}

	_ = src[2*len(dst)-1] // bounds check hint
	for i := range dst {
		dst[i] = int16(engine.Uint16(src[2*i:])) //nolint:gosec
	}
}
