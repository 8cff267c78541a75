package version

import (
	"strconv"
	"strings"

	"github.com/matzehuels/refbump/pkg/errors"
)

// Kind distinguishes floating ranges from explicit intervals.
type Kind int

const (
	KindFloat Kind = iota
	KindInterval
)

// Interval is an explicit range with optional bounds. A nil bound is
// unbounded.
type Interval struct {
	Min          *Version
	MinInclusive bool
	Max          *Version
	MaxInclusive bool
}

// Bounds is the normalised view of either range kind.
type Bounds struct {
	Min              *Version
	MinInclusive     bool
	Max              *Version
	MaxInclusive     bool
	AdmitsPrerelease bool
	// LabelStem restricts admitted prereleases to labels starting with it.
	// Empty admits any label.
	LabelStem string
}

// Range is either a float anchored at a current version or an interval.
type Range struct {
	kind     Kind
	floor    Version
	tier     FloatTier
	interval Interval
}

// NewFloat returns a range floating from floor at the given tier.
func NewFloat(floor Version, tier FloatTier) Range {
	return Range{kind: KindFloat, floor: floor, tier: tier}
}

// NewInterval returns a range over iv.
func NewInterval(iv Interval) Range {
	return Range{kind: KindInterval, interval: iv}
}

// Kind returns the variant of r.
func (r Range) Kind() Kind { return r.kind }

// Bounds converts r into its normalised form.
func (r Range) Bounds() Bounds {
	if r.kind == KindInterval {
		iv := r.interval
		return Bounds{
			Min:              iv.Min,
			MinInclusive:     iv.MinInclusive,
			Max:              iv.Max,
			MaxInclusive:     iv.MaxInclusive,
			AdmitsPrerelease: (iv.Min != nil && iv.Min.IsPrerelease()) || (iv.Max != nil && iv.Max.IsPrerelease()),
		}
	}

	floor := r.floor
	b := Bounds{Min: &floor, MinInclusive: true}
	if r.tier.IncludesPrerelease() {
		b.AdmitsPrerelease = true
		if r.tier != FloatAbsoluteLatest && floor.IsPrerelease() {
			b.LabelStem = labelStem(floor.Prerelease())
		}
	}

	switch r.tier {
	case FloatNone:
		b.Max, b.MaxInclusive = &floor, true
		if floor.IsPrerelease() {
			b.AdmitsPrerelease = true
			b.LabelStem = labelStem(floor.Prerelease())
		}
	case FloatMinor, FloatPrereleaseMinor:
		upper := stemAt(floor.Major()+1, 0, 0)
		b.Max = &upper
	case FloatPatch, FloatPrereleasePatch:
		upper := stemAt(floor.Major(), floor.Minor()+1, 0)
		b.Max = &upper
	}
	return b
}

// Satisfies reports whether v lies within r.
func (r Range) Satisfies(v Version) bool {
	if v.IsZero() {
		return false
	}
	b := r.Bounds()
	if b.Min != nil {
		c := v.Compare(*b.Min)
		if c < 0 || (c == 0 && !b.MinInclusive) {
			return false
		}
	}
	if b.Max != nil {
		c := v.Compare(*b.Max)
		if c > 0 || (c == 0 && !b.MaxInclusive) {
			return false
		}
	}
	if v.IsPrerelease() {
		if !b.AdmitsPrerelease {
			return false
		}
		if b.LabelStem != "" && !strings.HasPrefix(strings.ToLower(v.Prerelease()), b.LabelStem) {
			return false
		}
	}
	return true
}

// String renders r in NuGet notation.
func (r Range) String() string {
	if r.kind == KindInterval {
		iv := r.interval
		if iv.Min != nil && iv.Max != nil && iv.MinInclusive && iv.MaxInclusive && iv.Min.Equal(*iv.Max) {
			return "[" + iv.Min.String() + "]"
		}
		var sb strings.Builder
		if iv.MinInclusive {
			sb.WriteByte('[')
		} else {
			sb.WriteByte('(')
		}
		if iv.Min != nil {
			sb.WriteString(iv.Min.String())
		}
		sb.WriteString(", ")
		if iv.Max != nil {
			sb.WriteString(iv.Max.String())
		}
		if iv.MaxInclusive {
			sb.WriteByte(']')
		} else {
			sb.WriteByte(')')
		}
		return sb.String()
	}

	f := r.floor
	var base string
	switch r.tier {
	case FloatNone:
		return "[" + f.String() + "]"
	case FloatAbsoluteLatest:
		return "*-*"
	case FloatMajor, FloatPrereleaseMajor:
		base = "*"
	case FloatMinor, FloatPrereleaseMinor:
		base = strconv.FormatUint(f.Major(), 10) + ".*"
	case FloatPatch, FloatPrereleasePatch:
		base = strconv.FormatUint(f.Major(), 10) + "." + strconv.FormatUint(f.Minor(), 10) + ".*"
	}
	if r.tier.IncludesPrerelease() {
		b := r.Bounds()
		base += "-" + b.LabelStem + "*"
	}
	return base
}

// ParseInterval parses NuGet interval notation: "1.0" (minimum inclusive),
// "[1.0]" (exact), "(,1.0]", "(1.0,)", "[1.0,2.0)" and so on.
func ParseInterval(expr string) (Range, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return Range{}, errors.New(errors.ErrCodeInvalidRange, "empty range")
	}

	first, last := s[0], s[len(s)-1]
	if first != '[' && first != '(' {
		v, err := Parse(s)
		if err != nil {
			return Range{}, errors.Wrap(errors.ErrCodeInvalidRange, err, "invalid range %q", expr)
		}
		return NewInterval(Interval{Min: &v, MinInclusive: true}), nil
	}
	if last != ']' && last != ')' {
		return Range{}, errors.New(errors.ErrCodeInvalidRange, "invalid range %q: unterminated", expr)
	}

	parts := strings.Split(s[1:len(s)-1], ",")
	iv := Interval{MinInclusive: first == '[', MaxInclusive: last == ']'}

	switch len(parts) {
	case 1:
		if first != '[' || last != ']' {
			return Range{}, errors.New(errors.ErrCodeInvalidRange, "invalid range %q: exact versions use [x]", expr)
		}
		v, err := Parse(parts[0])
		if err != nil {
			return Range{}, errors.Wrap(errors.ErrCodeInvalidRange, err, "invalid range %q", expr)
		}
		iv.Min, iv.Max = &v, &v
		return NewInterval(iv), nil
	case 2:
	default:
		return Range{}, errors.New(errors.ErrCodeInvalidRange, "invalid range %q: too many bounds", expr)
	}

	lo, hi := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if lo == "" && hi == "" {
		return Range{}, errors.New(errors.ErrCodeInvalidRange, "invalid range %q: no bounds", expr)
	}
	if lo != "" {
		v, err := Parse(lo)
		if err != nil {
			return Range{}, errors.Wrap(errors.ErrCodeInvalidRange, err, "invalid range %q", expr)
		}
		iv.Min = &v
	}
	if hi != "" {
		v, err := Parse(hi)
		if err != nil {
			return Range{}, errors.Wrap(errors.ErrCodeInvalidRange, err, "invalid range %q", expr)
		}
		iv.Max = &v
	}
	if iv.Min == nil {
		iv.MinInclusive = false
	}
	if iv.Max == nil {
		iv.MaxInclusive = false
	}
	if iv.Min != nil && iv.Max != nil {
		c := iv.Min.Compare(*iv.Max)
		if c > 0 || (c == 0 && !(iv.MinInclusive && iv.MaxInclusive)) {
			return Range{}, errors.New(errors.ErrCodeInvalidRange, "invalid range %q: empty interval", expr)
		}
	}
	return NewInterval(iv), nil
}
