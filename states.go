package rainbird

import (
	"fmt"
	"strings"
)

// States holds the station flags decoded from one page of controller state.
// Each hex digit of the source mask expands to four flags, most significant
// bit first, so station 0 is the top bit of the first digit. A States value
// never changes once built; a refresh replaces it wholesale.
type States struct {
	mask string
	bits []bool
}

// ParseStates expands a hex digit string into station flags.
func ParseStates(mask string) (States, error) {
	bits := make([]bool, 0, len(mask)*4)
	for i, r := range mask {
		d := hexDigit(r)
		if d < 0 {
			return States{}, fmt.Errorf("state mask %q: bad hex digit at %d", mask, i)
		}
		for shift := 3; shift >= 0; shift-- {
			bits = append(bits, d>>shift&1 == 1)
		}
	}
	return States{mask: strings.ToUpper(mask), bits: bits}, nil
}

func hexDigit(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}

// allOff is the reset value cached state falls back to when a refresh fails.
var allOff = mustStates("00")

func mustStates(mask string) States {
	st, err := ParseStates(mask)
	if err != nil {
		panic(err)
	}
	return st
}

// Active reports whether the station at the zero-based index is flagged.
// Indexes beyond the decoded mask are refused rather than read as inactive.
func (s States) Active(station int) (bool, error) {
	if station < 0 || station >= len(s.bits) {
		return false, fmt.Errorf("station %d of %d: %w", station, len(s.bits), ErrStationOutOfRange)
	}
	return s.bits[station], nil
}

// AnyActive reports whether at least one station is flagged.
func (s States) AnyActive() bool {
	for _, b := range s.bits {
		if b {
			return true
		}
	}
	return false
}

// Count returns how many stations the mask covers.
func (s States) Count() int { return len(s.bits) }

// ActiveList returns the zero-based indexes of all flagged stations.
func (s States) ActiveList() []int {
	var active []int
	for i, b := range s.bits {
		if b {
			active = append(active, i)
		}
	}
	return active
}

func (s States) String() string { return s.mask }
