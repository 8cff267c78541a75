package manifest

import (
	"path"
	"strings"
)

// PropsFileName is the inherited-properties file MSBuild imports from the
// nearest ancestor directory.
const PropsFileName = "Directory.Build.props"

// ProjectExtensions lists the manifest kinds the updater rewrites.
var ProjectExtensions = []string{".csproj", ".fsproj", ".vbproj"}

// IsProject reports whether p names a project manifest.
func IsProject(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, e := range ProjectExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindProps returns the path of the props file nearest to projectPath,
// searching its directory and each ancestor up to and including rootPath.
// When none matches, a props file directly in rootPath is used; nothing
// above rootPath is considered.
// Paths use forward slashes; an empty rootPath or "/" means the repository
// root. Matching of the file name is case-insensitive.
func FindProps(paths []string, projectPath, rootPath string) (string, bool) {
	byDir := make(map[string]string)
	for _, p := range paths {
		p = clean(p)
		if !strings.EqualFold(path.Base(p), PropsFileName) {
			continue
		}
		dir := dirOf(p)
		if _, ok := byDir[strings.ToLower(dir)]; !ok {
			byDir[strings.ToLower(dir)] = p
		}
	}
	if len(byDir) == 0 {
		return "", false
	}

	root := clean(rootPath)
	for dir := dirOf(clean(projectPath)); within(dir, root); dir = dirOf(dir) {
		if p, ok := byDir[strings.ToLower(dir)]; ok {
			return p, true
		}
		if strings.EqualFold(dir, root) || dir == "" {
			break
		}
	}
	p, ok := byDir[strings.ToLower(root)]
	return p, ok
}

func clean(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	p = strings.Trim(path.Clean("/"+p), "/")
	return p
}

func dirOf(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

func within(dir, root string) bool {
	if root == "" {
		return true
	}
	d, r := strings.ToLower(dir), strings.ToLower(root)
	return d == r || strings.HasPrefix(d, r+"/")
}
