package version

import (
	"slices"

	"github.com/matzehuels/refbump/pkg/framework"
)

// Candidate is a version offered by a package registry.
type Candidate struct {
	Version string `json:"version"`
	Listed  bool   `json:"listed"`
	// Frameworks lists the asset groups the version ships. Empty means the
	// version is not framework-specific.
	Frameworks []string `json:"frameworks,omitempty"`
}

// FilterCompatible keeps listed candidates that every requested framework
// can consume.
func FilterCompatible(candidates []Candidate, frameworks []string) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Listed {
			continue
		}
		if !framework.SupportsAll(frameworks, c.Frameworks) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ParseCandidates parses candidate versions, dropping any that are not
// concrete versions.
func ParseCandidates(candidates []Candidate) []Version {
	out := make([]Version, 0, len(candidates))
	for _, c := range candidates {
		v, err := Parse(c.Version)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FindBestMatch returns the highest version in versions that r admits.
func FindBestMatch(r Range, versions []Version) (Version, bool) {
	var best Version
	for _, v := range versions {
		if !r.Satisfies(v) {
			continue
		}
		if best.IsZero() || v.GreaterThan(best) {
			best = v
		}
	}
	return best, !best.IsZero()
}

// IsImprovement reports whether an automatic update should move current to
// candidate: the candidate must be inside the float and strictly newer.
func IsImprovement(current, candidate Version, r Range) bool {
	if current.IsZero() || candidate.IsZero() {
		return false
	}
	return r.Satisfies(candidate) && candidate.GreaterThan(current)
}

// AcceptsInstructed reports whether an instructed update should move
// current to best. Instructed ranges may move a version down, but a
// dependency already inside the requested range is left alone.
func AcceptsInstructed(current, best Version, r Range) bool {
	if current.IsZero() || best.IsZero() {
		return false
	}
	if best.Equal(current) {
		return false
	}
	return !r.Satisfies(current)
}

// Sort orders versions ascending in place.
func Sort(versions []Version) {
	slices.SortFunc(versions, func(a, b Version) int { return a.Compare(b) })
}
