package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// nugetIDRegex matches valid NuGet package ids: dot-separated segments of
// letters, digits, underscores and dashes.
var nugetIDRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+)*$`)

// ValidateNuGetID validates a package id from a migration file or a
// --package token.
func ValidateNuGetID(id string) error {
	switch {
	case id == "":
		return New(ErrCodeInvalidPackage, "package id cannot be empty")
	case len(id) > 100:
		return New(ErrCodeInvalidPackage, "package id too long (max 100 characters): %q", id)
	case !nugetIDRegex.MatchString(id):
		return New(ErrCodeInvalidPackage, "invalid package id: %q", id)
	}
	return nil
}

// ValidatePath validates a slash-separated path relative to a repository
// root. Absolute paths, traversal and backslashes are rejected.
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	switch {
	case strings.HasPrefix(path, "/"):
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	case strings.Contains(path, ".."):
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	case strings.Contains(path, "\\"):
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}
	return nil
}

// ValidateURL checks that rawURL is an absolute http or https URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme: %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL has no host: %q", rawURL)
	}
	return nil
}

// branchNameRegex matches git ref names we are willing to create.
var branchNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/\-]*$`)

// ValidateBranchName validates a branch name used for publishing changes.
func ValidateBranchName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "branch name cannot be empty")
	}
	if strings.Contains(name, "..") || strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".lock") {
		return New(ErrCodeInvalidInput, "invalid branch name: %q", name)
	}
	if !branchNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid branch name: %q", name)
	}
	return nil
}
