// Package convert renders raw serial bytes as human readable text.
//
// Numeric modes decode non-overlapping little-endian chunks of Mode.Width
// bytes. Trailing bytes that do not fill a chunk are not rendered; callers
// learn how many bytes were used from Transform's return value.
package convert

import (
	"encoding/binary"
	"math"
	"strconv"
)

// Counts tallies delimiters seen in Raw mode.
type Counts struct {
	Words  uint64 // ' '
	Commas uint64 // ','
	Lines  uint64 // '\n'
}

// Count scans src once and tallies spaces, commas and newlines.
func Count(src []byte) Counts {
	var c Counts
	for _, b := range src {
		switch b {
		case ' ':
			c.Words++
		case ',':
			c.Commas++
		case '\n':
			c.Lines++
		}
	}
	return c
}

// Transform renders src according to mode. It returns the display bytes,
// the number of input bytes consumed and, in Raw mode, the delimiter counts.
//
// In Raw mode the returned slice is src itself. Every other mode returns a
// freshly allocated slice.
func Transform(mode Mode, src []byte) (out []byte, used int, counts Counts) {
	if len(src) == 0 {
		return nil, 0, Counts{}
	}
	switch mode {
	case Raw:
		return src, len(src), Count(src)
	case Hex:
		out = make([]byte, 0, len(src)*2)
		for _, b := range src {
			out = strconv.AppendUint(out, uint64(b), 16)
		}
		return out, len(src), Counts{}
	case Binary:
		out = make([]byte, 0, len(src)*8)
		for _, b := range src {
			out = strconv.AppendUint(out, uint64(b), 2)
		}
		return out, len(src), Counts{}
	}

	w := mode.Width()
	used = len(src) - len(src)%w
	out = make([]byte, 0, used*3)
	for i := 0; i < used; i += w {
		chunk := src[i : i+w]
		switch mode {
		case Int32:
			out = strconv.AppendInt(out, int64(int32(binary.LittleEndian.Uint32(chunk))), 10)
		case UInt32:
			out = strconv.AppendUint(out, uint64(binary.LittleEndian.Uint32(chunk)), 10)
		case Int16:
			out = strconv.AppendInt(out, int64(int16(binary.LittleEndian.Uint16(chunk))), 10)
		case UInt16:
			out = strconv.AppendUint(out, uint64(binary.LittleEndian.Uint16(chunk)), 10)
		case Float32:
			out = appendFloat32(out, math.Float32frombits(binary.LittleEndian.Uint32(chunk)))
		}
	}
	return out, used, Counts{}
}

func appendFloat32(dst []byte, f float32) []byte {
	switch {
	case math.IsInf(float64(f), 1):
		return append(dst, "inf"...)
	case math.IsInf(float64(f), -1):
		return append(dst, "-inf"...)
	}
	return strconv.AppendFloat(dst, float64(f), 'f', -1, 32)
}
