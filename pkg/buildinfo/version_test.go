package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplate(t *testing.T) {
	old := Version
	Version = "v1.4.0"
	t.Cleanup(func() { Version = old })

	if got := Template(); !strings.HasPrefix(got, "{{.Name}} v1.4.0 (commit ") {
		t.Errorf("Template() = %q", got)
	}
	if got := UserAgent(); got != "refbump/v1.4.0" {
		t.Errorf("UserAgent() = %q", got)
	}
}
