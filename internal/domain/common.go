package domain

import (
	"fmt"
	"strings"
)

// Side represents the side of an execution (BUY or SELL).
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide converts a raw side string (case-insensitive) into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown trade side %q", s)
	}
}

// Valid reports whether the side is one of the known values.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Direction returns the position direction a trade of this side opens.
func (s Side) Direction() Direction {
	if s == Sell {
		return Short
	}
	return Long
}

// Direction is the direction of an open lot or position.
type Direction int

const (
	Long Direction = iota + 1
	Short
)

// Sign returns +1 for long and -1 for short.
func (d Direction) Sign() int64 {
	if d == Short {
		return -1
	}
	return 1
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Short {
		return Long
	}
	return Short
}

// String returns the string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the direction as LONG/SHORT in JSON payloads.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses LONG/SHORT.
func (d *Direction) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "LONG":
		*d = Long
	case "SHORT":
		*d = Short
	default:
		return fmt.Errorf("unknown direction %q", string(b))
	}
	return nil
}

// NormalizeSymbol trims and upper-cases a ticker so grouping is case-insensitive.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
