package framework

import "strings"

// Compatible reports whether a package asset group built for pkg can be
// consumed by a project targeting project.
func Compatible(project, pkg Framework) bool {
	if pkg.IsAny() {
		return true
	}
	if !project.Known() || !pkg.Known() {
		return strings.EqualFold(project.Raw, pkg.Raw)
	}
	if project.IsAny() {
		return false
	}
	if pkg.Platform != "" && platformName(pkg.Platform) != platformName(project.Platform) {
		return false
	}

	if project.Identifier == pkg.Identifier {
		return pkg.Version.Compare(project.Version) <= 0
	}
	if pkg.Identifier == NetStandard {
		supported, ok := standardSupport(project)
		return ok && pkg.Version.Compare(supported) <= 0
	}
	return false
}

// standardSupport returns the highest .NET Standard version a framework
// implements.
func standardSupport(f Framework) (Version, bool) {
	switch f.Identifier {
	case NetCoreApp:
		switch {
		case f.Version.Major >= 3 || (f.Version.Major == 2 && f.Version.Minor >= 1):
			return Version{Major: 2, Minor: 1}, true
		case f.Version.Major == 2:
			return Version{Major: 2}, true
		default:
			return Version{Major: 1, Minor: 6}, true
		}
	case NetFramework:
		v := f.Version
		switch {
		case v.Compare(Version{Major: 4, Minor: 6, Build: 1}) >= 0:
			return Version{Major: 2}, true
		case v.Compare(Version{Major: 4, Minor: 6}) >= 0:
			return Version{Major: 1, Minor: 3}, true
		case v.Compare(Version{Major: 4, Minor: 5, Build: 1}) >= 0:
			return Version{Major: 1, Minor: 2}, true
		case v.Compare(Version{Major: 4, Minor: 5}) >= 0:
			return Version{Major: 1, Minor: 1}, true
		}
	}
	return Version{}, false
}

func platformName(p string) string {
	i := 0
	for i < len(p) && !isDigit(p[i]) {
		i++
	}
	return strings.ToLower(p[:i])
}

// Nearest picks the group from candidates that best matches project: the
// same family at the highest compatible version, then .NET Standard, then
// the agnostic group. Platform-specific groups beat neutral ones.
func Nearest(project Framework, candidates []Framework) (Framework, bool) {
	var (
		best      Framework
		bestScore = -1
	)
	for _, c := range candidates {
		if !Compatible(project, c) {
			continue
		}
		score := rank(project, c)
		if score > bestScore || (score == bestScore && c.Version.Compare(best.Version) > 0) {
			best, bestScore = c, score
		}
	}
	return best, bestScore >= 0
}

func rank(project, c Framework) int {
	score := 0
	switch {
	case c.IsAny():
		score = 1
	case c.Identifier == NetStandard && project.Identifier != NetStandard:
		score = 2
	default:
		score = 4
	}
	if c.Platform != "" {
		score++
	}
	return score
}

// SupportsAll reports whether every requested framework can consume at
// least one of the given asset groups. No groups means the package carries
// no framework restrictions.
func SupportsAll(requested, groups []string) bool {
	if len(groups) == 0 {
		return true
	}
	parsed := make([]Framework, len(groups))
	for i, g := range groups {
		parsed[i] = Parse(g)
	}
	for _, r := range requested {
		project := Parse(r)
		if _, ok := Nearest(project, parsed); !ok {
			return false
		}
	}
	return true
}
