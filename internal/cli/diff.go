package cli

import (
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

const defaultDiffMaxLines = 200

// renderDiff returns the unified diff of one rewritten manifest, cut after
// maxLines lines. The bool reports whether lines were dropped.
func renderDiff(path, from, to string, maxLines int) (string, bool) {
	if maxLines <= 0 {
		maxLines = defaultDiffMaxLines
	}
	diff := udiff.Unified("a/"+path, "b/"+path, normalizeNewlines(from), normalizeNewlines(to))
	lines := splitDiffLines(diff)
	if len(lines) <= maxLines {
		return ensureTrailingNewline(strings.Join(lines, "\n")), false
	}
	lines = append(lines[:maxLines:maxLines],
		fmt.Sprintf("... (truncated to %d lines; rerun with --diff-lines <n> to see more)", maxLines))
	return ensureTrailingNewline(strings.Join(lines, "\n")), true
}

// normalizeNewlines makes CRLF manifests diff line by line.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func splitDiffLines(content string) []string {
	trimmed := strings.TrimRight(content, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func ensureTrailingNewline(content string) string {
	if content == "" || strings.HasSuffix(content, "\n") {
		return content
	}
	return content + "\n"
}

// colorizeDiff styles added and removed lines for terminal output.
func colorizeDiff(diff string) string {
	lines := strings.Split(diff, "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = StyleTitle.Render(l)
		case strings.HasPrefix(l, "+"):
			lines[i] = StyleSuccess.Render(l)
		case strings.HasPrefix(l, "-"):
			lines[i] = styleRemoved.Render(l)
		case strings.HasPrefix(l, "@@"):
			lines[i] = StyleDim.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}
