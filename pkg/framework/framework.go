package framework

import (
	"strconv"
	"strings"
)

// Framework families recognised by the compatibility rules.
const (
	NetCoreApp   = ".NETCoreApp"
	NetFramework = ".NETFramework"
	NetStandard  = ".NETStandard"
	Any          = "Any"
)

// Version is a framework version such as 4.7.2 or 8.0.
type Version struct {
	Major, Minor, Build int
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	default:
		return cmpInt(v.Build, o.Build)
	}
}

func (v Version) String() string {
	s := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
	if v.Build > 0 {
		s += "." + strconv.Itoa(v.Build)
	}
	return s
}

// Framework is a parsed target framework moniker. Monikers that cannot be
// parsed keep an empty Identifier and only compare equal to their raw text.
type Framework struct {
	Identifier string
	Version    Version
	Platform   string
	Raw        string
}

// Known reports whether the moniker was recognised.
func (f Framework) Known() bool { return f.Identifier != "" }

// IsAny reports whether f is the framework-agnostic group.
func (f Framework) IsAny() bool { return f.Identifier == Any }

func (f Framework) String() string {
	switch f.Identifier {
	case "":
		return f.Raw
	case Any:
		return "any"
	case NetFramework:
		return "net" + strings.ReplaceAll(f.Version.String(), ".", "")
	case NetStandard:
		return "netstandard" + f.Version.String()
	}
	s := "net" + f.Version.String()
	if f.Version.Major < 5 {
		s = "netcoreapp" + f.Version.String()
	}
	if f.Platform != "" {
		s += "-" + f.Platform
	}
	return s
}

// Parse parses a short moniker (net8.0, netstandard2.0, net472), a registry
// group name (.NETStandard2.0) or a long form (.NETFramework,Version=v4.7.2).
// Empty and "any" map to the agnostic group.
func Parse(s string) Framework {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)
	f := Framework{Raw: raw}

	if lower == "" || lower == "any" || lower == "agnostic" {
		f.Identifier = Any
		return f
	}

	if strings.HasPrefix(lower, ".") {
		return parseLong(f, lower)
	}

	name, platform, _ := strings.Cut(lower, "-")
	switch {
	case strings.HasPrefix(name, "netcoreapp"):
		if v, ok := parseDotted(strings.TrimPrefix(name, "netcoreapp")); ok {
			f.Identifier, f.Version = NetCoreApp, v
		}
	case strings.HasPrefix(name, "netstandard"):
		if v, ok := parseDotted(strings.TrimPrefix(name, "netstandard")); ok {
			f.Identifier, f.Version = NetStandard, v
		}
	case strings.HasPrefix(name, "net"):
		rest := strings.TrimPrefix(name, "net")
		if strings.Contains(rest, ".") {
			if v, ok := parseDotted(rest); ok && v.Major >= 5 {
				f.Identifier, f.Version = NetCoreApp, v
			} else if ok {
				f.Identifier, f.Version = NetFramework, v
			}
		} else if v, ok := parseCompact(rest); ok && v.Major >= 5 {
			f.Identifier, f.Version = NetCoreApp, v
		} else if ok {
			f.Identifier, f.Version = NetFramework, v
		}
	}
	if f.Identifier == NetCoreApp && platform != "" {
		f.Platform = platform
	} else if platform != "" {
		f.Identifier = ""
	}
	return f
}

func parseLong(f Framework, lower string) Framework {
	name, rest, hasComma := strings.Cut(lower, ",")
	var digits string
	if hasComma {
		for _, part := range strings.Split(rest, ",") {
			k, v, _ := strings.Cut(strings.TrimSpace(part), "=")
			if strings.TrimSpace(k) == "version" {
				digits = strings.TrimPrefix(strings.TrimSpace(v), "v")
			}
		}
	} else {
		i := len(name)
		for i > 0 && (isDigit(name[i-1]) || name[i-1] == '.') {
			i--
		}
		name, digits = name[:i], name[i:]
	}

	var id string
	switch name {
	case ".netcoreapp":
		id = NetCoreApp
	case ".netframework":
		id = NetFramework
	case ".netstandard":
		id = NetStandard
	default:
		return f
	}
	v, ok := parseDotted(digits)
	if !ok {
		return f
	}
	f.Identifier, f.Version = id, v
	return f
}

// parseDotted parses "4.7.2" or "2.0".
func parseDotted(s string) (Version, bool) {
	if s == "" {
		return Version{}, false
	}
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return Version{}, false
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, false
		}
		if i < 3 {
			nums[i] = n
		}
	}
	return Version{Major: nums[0], Minor: nums[1], Build: nums[2]}, true
}

// parseCompact parses the digit-per-component form used by net472.
func parseCompact(s string) (Version, bool) {
	if s == "" || len(s) > 3 {
		return Version{}, false
	}
	var nums [3]int
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return Version{}, false
		}
		nums[i] = int(s[i] - '0')
	}
	return Version{Major: nums[0], Minor: nums[1], Build: nums[2]}, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
