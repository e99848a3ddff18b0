package convert

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned when a conversion token is not recognised.
var ErrUnknownMode = errors.New("convert: unknown mode")

// Mode selects the byte-to-text conversion applied to every chunk read.
type Mode int

const (
	Raw Mode = iota
	Hex
	Binary
	Int32
	UInt32
	Int16
	UInt16
	Float32
)

var modeNames = [...]string{
	Raw:     "raw",
	Hex:     "hex",
	Binary:  "bin",
	Int32:   "int",
	UInt32:  "uint",
	Int16:   "shr",
	UInt16:  "ushr",
	Float32: "flt",
}

var modeTokens = map[string]Mode{
	"":        Raw,
	"non":     Raw,
	"none":    Raw,
	"raw":     Raw,
	"ascii":   Raw,
	"hex":     Hex,
	"bin":     Binary,
	"binary":  Binary,
	"int":     Int32,
	"int32":   Int32,
	"i32":     Int32,
	"uint":    UInt32,
	"uint32":  UInt32,
	"u32":     UInt32,
	"shr":     Int16,
	"short":   Int16,
	"int16":   Int16,
	"i16":     Int16,
	"ushr":    UInt16,
	"ushort":  UInt16,
	"uint16":  UInt16,
	"u16":     UInt16,
	"flt":     Float32,
	"float":   Float32,
	"float32": Float32,
	"f32":     Float32,
}

// ParseMode parses a case-insensitive conversion token such as "hex" or "USHR".
func ParseMode(s string) (Mode, error) {
	m, ok := modeTokens[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Raw, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Width is the number of input bytes consumed per rendered value.
func (m Mode) Width() int {
	switch m {
	case Int32, UInt32, Float32:
		return 4
	case Int16, UInt16:
		return 2
	default:
		return 1
	}
}

// UnmarshalText lets envconfig decode a Mode from the environment.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Set implements pflag.Value.
func (m *Mode) Set(s string) error {
	return m.UnmarshalText([]byte(s))
}

// Type implements pflag.Value.
func (m *Mode) Type() string {
	return "mode"
}
