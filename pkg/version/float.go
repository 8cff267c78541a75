package version

import (
	"strings"

	"github.com/matzehuels/refbump/pkg/errors"
)

// FloatTier says which version components may move when floating from a
// current version.
type FloatTier int

const (
	FloatNone FloatTier = iota
	FloatPatch
	FloatMinor
	FloatMajor
	FloatPrereleasePatch
	FloatPrereleaseMinor
	FloatPrereleaseMajor
	FloatAbsoluteLatest
)

var tierNames = map[FloatTier]string{
	FloatNone:            "none",
	FloatPatch:           "patch",
	FloatMinor:           "minor",
	FloatMajor:           "major",
	FloatPrereleasePatch: "prerelease-patch",
	FloatPrereleaseMinor: "prerelease-minor",
	FloatPrereleaseMajor: "prerelease-major",
	FloatAbsoluteLatest:  "absolute-latest",
}

func (t FloatTier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return "unknown"
}

// IncludesPrerelease reports whether the tier admits prerelease versions.
func (t FloatTier) IncludesPrerelease() bool {
	return t >= FloatPrereleasePatch
}

// Lock pins version components during automatic updates.
type Lock int

const (
	LockNone Lock = iota
	LockMajor
	LockMinor
)

func (l Lock) String() string {
	switch l {
	case LockMajor:
		return "major"
	case LockMinor:
		return "minor"
	}
	return "none"
}

// ParseLock parses "none", "major" or "minor". Empty means none.
func ParseLock(s string) (Lock, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LockNone, nil
	case "major":
		return LockMajor, nil
	case "minor":
		return LockMinor, nil
	}
	return LockNone, errors.New(errors.ErrCodeInvalidInput, "invalid lock %q: use none, major or minor", s)
}

// DeriveFloatTier maps the prerelease switch and lock setting to a tier.
// Locking the major lets minor and patch move, locking the minor lets only
// the patch move.
func DeriveFloatTier(includePrerelease bool, lock Lock) FloatTier {
	switch {
	case !includePrerelease && lock == LockMajor:
		return FloatMinor
	case !includePrerelease && lock == LockMinor:
		return FloatPatch
	case !includePrerelease:
		return FloatMajor
	case lock == LockMajor:
		return FloatPrereleaseMinor
	case lock == LockMinor:
		return FloatPrereleasePatch
	default:
		return FloatAbsoluteLatest
	}
}
