package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/refbump/pkg/errors"
)

// Version is a parsed package version. The declared text is kept so that
// writing a version back reproduces the registry's spelling.
type Version struct {
	v *semver.Version
}

// Parse parses a NuGet version. Wildcards, ranges and four-part versions
// are rejected, which leaves such dependencies untouched.
func Parse(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Version{}, errors.New(errors.ErrCodeInvalidVersion, "empty version")
	}
	if strings.ContainsAny(s, "*[](),") || strings.HasPrefix(s, "$(") {
		return Version{}, errors.New(errors.ErrCodeInvalidVersion, "not a concrete version: %s", s)
	}
	if strings.HasPrefix(s, "v") || strings.HasPrefix(s, "V") {
		return Version{}, errors.New(errors.ErrCodeInvalidVersion, "invalid version: %s", s)
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, errors.Wrap(errors.ErrCodeInvalidVersion, err, "invalid version: %s", s)
	}
	return Version{v: v}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v holds no version.
func (v Version) IsZero() bool { return v.v == nil }

// String returns the version as originally written.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.v.Major() }

// Minor returns the minor component.
func (v Version) Minor() uint64 { return v.v.Minor() }

// Patch returns the patch component.
func (v Version) Patch() uint64 { return v.v.Patch() }

// Prerelease returns the prerelease label without the leading dash.
func (v Version) Prerelease() string { return v.v.Prerelease() }

// IsPrerelease reports whether v carries a prerelease label.
func (v Version) IsPrerelease() bool { return v.v != nil && v.v.Prerelease() != "" }

// Compare orders versions by precedence. Prerelease labels compare
// case-insensitively and build metadata is ignored.
func (v Version) Compare(o Version) int {
	a, b := v.v, o.v
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if a.Prerelease() != "" && b.Prerelease() != "" {
		a = lowerPrerelease(a)
		b = lowerPrerelease(b)
	}
	return a.Compare(b)
}

// Equal reports whether v and o have the same precedence.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// LessThan reports whether v sorts before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// GreaterThan reports whether v sorts after o.
func (v Version) GreaterThan(o Version) bool { return v.Compare(o) > 0 }

func lowerPrerelease(v *semver.Version) *semver.Version {
	lv, err := v.SetPrerelease(strings.ToLower(v.Prerelease()))
	if err != nil {
		return v
	}
	return &lv
}

// labelStem returns the leading alphabetic part of a prerelease label:
// "beta.2" and "beta2" both yield "beta".
func labelStem(prerelease string) string {
	first, _, _ := strings.Cut(prerelease, ".")
	first = strings.TrimRight(first, "0123456789")
	first = strings.TrimRight(first, "-_")
	return strings.ToLower(first)
}

// stemAt builds the lowest version with the given components, used as an
// exclusive upper bound that also shuts out prereleases of the next line.
func stemAt(major, minor, patch uint64) Version {
	v := semver.New(major, minor, patch, "0", "")
	return Version{v: v}
}
