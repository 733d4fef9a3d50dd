// Package rotation implements the hidden attack-style rotation of a hostile actor as
// a value-typed state machine. Every operation takes a State and returns the next State;
// nothing here retains references across ticks.
package rotation

import (
	"fmt"
	"math/bits"
	"strings"
)

// Style is an attack style tag.
type Style int

const (
	// StyleNone marks the absence of a style (no guard, no classified attack).
	StyleNone Style = iota
	Melee
	Ranged
	Magic
	// AreaEffect is the special area attack. It is never a member of a StyleSet.
	AreaEffect
)

var styleNames = map[Style]string{
	StyleNone:  "none",
	Melee:      "melee",
	Ranged:     "ranged",
	Magic:      "magic",
	AreaEffect: "area",
}

// String returns the lower-case style name.
func (s Style) String() string {
	if n, ok := styleNames[s]; ok {
		return n
	}
	return "unknown"
}

// Regular reports whether s is one of the rotating styles (melee, ranged, magic).
func (s Style) Regular() bool {
	return s == Melee || s == Ranged || s == Magic
}

// ParseStyle converts a style name to a Style. The empty string parses as StyleNone.
//
// Postcondition: Returns a declared Style or a non-nil error.
func ParseStyle(name string) (Style, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return StyleNone, nil
	}
	for s, sn := range styleNames {
		if sn == n {
			return s, nil
		}
	}
	return StyleNone, fmt.Errorf("unknown attack style %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(text []byte) error {
	v, err := ParseStyle(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// StyleSet is a set of regular styles.
type StyleSet uint8

// AllStyles holds every regular style.
const AllStyles = StyleSet(1<<Melee | 1<<Ranged | 1<<Magic)

// SetOf builds a set from regular styles; other styles are ignored.
func SetOf(styles ...Style) StyleSet {
	var s StyleSet
	for _, st := range styles {
		if st.Regular() {
			s |= 1 << st
		}
	}
	return s
}

// Has reports whether st is a member.
func (s StyleSet) Has(st Style) bool {
	return st.Regular() && s&(1<<st) != 0
}

// Without returns s minus the given styles.
func (s StyleSet) Without(styles ...Style) StyleSet {
	return s &^ SetOf(styles...)
}

// Only returns the intersection of s with {st}.
func (s StyleSet) Only(st Style) StyleSet {
	return s & SetOf(st)
}

// Len returns the number of members.
func (s StyleSet) Len() int {
	return bits.OnesCount8(uint8(s & AllStyles))
}

// Empty reports whether the set has no members.
func (s StyleSet) Empty() bool {
	return s&AllStyles == 0
}

// Styles returns the members in declaration order.
func (s StyleSet) Styles() []Style {
	out := make([]Style, 0, 3)
	for _, st := range []Style{Melee, Ranged, Magic} {
		if s.Has(st) {
			out = append(out, st)
		}
	}
	return out
}

// String renders the set as "{melee,magic}".
func (s StyleSet) String() string {
	names := make([]string, 0, 3)
	for _, st := range s.Styles() {
		names = append(names, st.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}
