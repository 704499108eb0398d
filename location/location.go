package location

import (
	"errors"
	"fmt"
	"strings"
)

// MaxJunctions bounds the length of an interior path.
const MaxJunctions = 8

// maxParents bounds the number of parent steps.
const maxParents = 255

// Location errors
var (
	ErrInvalidLocation = errors.New("invalid location")
	ErrTooLong         = errors.New("location too long")
	ErrNotInterior     = errors.New("location has parents")
)

// Junctions is an interior path, outermost junction first.
type Junctions []Junction

// Len returns the number of junctions.
func (js Junctions) Len() int {
	return len(js)
}

// IsHere reports whether the path is empty.
func (js Junctions) IsHere() bool {
	return len(js) == 0
}

// Clone returns an independent copy.
func (js Junctions) Clone() Junctions {
	if len(js) == 0 {
		return Junctions{}
	}
	out := make(Junctions, len(js))
	copy(out, js)
	return out
}

// Equal reports whether both paths hold the same junctions in order.
func (js Junctions) Equal(other Junctions) bool {
	if len(js) != len(other) {
		return false
	}
	for i := range js {
		if js[i] != other[i] {
			return false
		}
	}
	return true
}

// First returns the outermost junction.
func (js Junctions) First() (Junction, bool) {
	if len(js) == 0 {
		return Junction{}, false
	}
	return js[0], true
}

// Last returns the innermost junction.
func (js Junctions) Last() (Junction, bool) {
	if len(js) == 0 {
		return Junction{}, false
	}
	return js[len(js)-1], true
}

// SplitFirst removes the outermost junction, returning the remaining path and
// the removed junction if there was one.
func (js Junctions) SplitFirst() (Junctions, Junction, bool) {
	if len(js) == 0 {
		return Junctions{}, Junction{}, false
	}
	return js[1:].Clone(), js[0], true
}

// SplitLast removes the innermost junction.
func (js Junctions) SplitLast() (Junctions, Junction, bool) {
	if len(js) == 0 {
		return Junctions{}, Junction{}, false
	}
	return js[:len(js)-1].Clone(), js[len(js)-1], true
}

// Pushed returns a copy with j appended as the innermost junction.
func (js Junctions) Pushed(j Junction) (Junctions, error) {
	if len(js) >= MaxJunctions {
		return nil, ErrTooLong
	}
	out := make(Junctions, 0, len(js)+1)
	out = append(out, js...)
	return append(out, j), nil
}

// PushedFront returns a copy with j inserted as the outermost junction.
func (js Junctions) PushedFront(j Junction) (Junctions, error) {
	if len(js) >= MaxJunctions {
		return nil, ErrTooLong
	}
	out := make(Junctions, 0, len(js)+1)
	out = append(out, j)
	return append(out, js...), nil
}

// GlobalConsensus returns the network anchoring the path, if its outermost
// junction is an anchor.
func (js Junctions) GlobalConsensus() (NetworkID, bool) {
	first, ok := js.First()
	if !ok {
		return "", false
	}
	return first.IsGlobalConsensus()
}

// AsLocation lifts the path into a Location with no parents.
func (js Junctions) AsLocation() Location {
	return Location{Interior: js.Clone()}
}

// RelativeTo returns the location of the universal path js as seen from the
// universal location viewer: go up to the common prefix, then down.
func (js Junctions) RelativeTo(viewer Junctions) Location {
	common := 0
	for common < len(js) && common < len(viewer) && js[common] == viewer[common] {
		common++
	}
	return Location{
		Parents:  uint8(len(viewer) - common),
		Interior: js[common:].Clone(),
	}
}

// String renders the path in text form.
func (js Junctions) String() string {
	return js.AsLocation().String()
}

// Location is a relative position: Parents steps up, then down Interior.
type Location struct {
	Parents  uint8
	Interior Junctions
}

// Here is the location of the current context.
func Here() Location {
	return Location{Interior: Junctions{}}
}

// Parent is the location one level up.
func Parent() Location {
	return Location{Parents: 1, Interior: Junctions{}}
}

// New builds a location from a parent count and interior junctions.
func New(parents uint8, interior ...Junction) Location {
	return Location{Parents: parents, Interior: Junctions(interior).Clone()}
}

// Clone returns an independent copy.
func (l Location) Clone() Location {
	return Location{Parents: l.Parents, Interior: l.Interior.Clone()}
}

// Equal compares two locations by value.
func (l Location) Equal(other Location) bool {
	return l.Parents == other.Parents && l.Interior.Equal(other.Interior)
}

// IsHere reports whether l refers to the current context.
func (l Location) IsHere() bool {
	return l.Parents == 0 && l.Interior.IsHere()
}

// AsInterior returns the interior path when there are no parent steps.
func (l Location) AsInterior() (Junctions, error) {
	if l.Parents != 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotInterior, l)
	}
	return l.Interior.Clone(), nil
}

// FirstInterior returns the first non-parent junction.
func (l Location) FirstInterior() (Junction, bool) {
	return l.Interior.First()
}

// Validate checks every junction and the length bounds.
func (l Location) Validate() error {
	if len(l.Interior) > MaxJunctions {
		return ErrTooLong
	}
	for _, j := range l.Interior {
		if err := j.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AppendedWith returns l followed by suffix. Each parent step of suffix
// cancels one trailing junction of l; parents left over after l's interior is
// exhausted are added to l's parents. Neither input is modified.
func (l Location) AppendedWith(suffix Location) (Location, error) {
	return suffix.PrependedWith(l)
}

// PrependedWith returns prefix followed by l.
func (l Location) PrependedWith(prefix Location) (Location, error) {
	prependInterior := max(len(prefix.Interior)-int(l.Parents), 0)
	if len(l.Interior)+prependInterior > MaxJunctions {
		return Location{}, ErrTooLong
	}
	suffixParents := max(int(l.Parents)-len(prefix.Interior), 0)
	if int(prefix.Parents)+suffixParents > maxParents {
		return Location{}, ErrTooLong
	}

	cancelled := min(int(l.Parents), len(prefix.Interior))
	kept := prefix.Interior[:len(prefix.Interior)-cancelled]

	interior := make(Junctions, 0, len(kept)+len(l.Interior))
	interior = append(interior, kept...)
	interior = append(interior, l.Interior...)

	return Location{
		Parents:  uint8(int(prefix.Parents) + suffixParents),
		Interior: interior,
	}, nil
}

// String renders the location as "../../A(1)/B(2)"; Here is ".".
func (l Location) String() string {
	if l.IsHere() {
		return "."
	}
	parts := make([]string, 0, int(l.Parents)+len(l.Interior))
	for i := 0; i < int(l.Parents); i++ {
		parts = append(parts, "..")
	}
	for _, j := range l.Interior {
		parts = append(parts, j.String())
	}
	return strings.Join(parts, "/")
}

// MarshalText implements encoding.TextMarshaler.
func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Location) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Parse reads the text form produced by Location.String. Parent steps must
// precede every junction.
func Parse(s string) (Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return Here(), nil
	}

	loc := Here()
	for _, part := range strings.Split(strings.Trim(s, "/"), "/") {
		if part == ".." {
			if len(loc.Interior) > 0 {
				return Location{}, fmt.Errorf("%w: parent after junction in %q", ErrInvalidLocation, s)
			}
			if loc.Parents == maxParents {
				return Location{}, ErrTooLong
			}
			loc.Parents++
			continue
		}
		j, err := ParseJunction(part)
		if err != nil {
			return Location{}, err
		}
		if loc.Interior, err = loc.Interior.Pushed(j); err != nil {
			return Location{}, err
		}
	}
	return loc, nil
}

// ParseJunctions reads an interior path; parent steps are rejected.
func ParseJunctions(s string) (Junctions, error) {
	loc, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return loc.AsInterior()
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level tables.
func MustParse(s string) Location {
	loc, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return loc
}
