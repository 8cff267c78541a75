package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	for _, level := range []log.Level{log.InfoLevel, log.DebugLevel} {
		var buf bytes.Buffer
		l := newLogger(&buf, level)
		l.Debug("resolving", "package", "Serilog")
		l.Info("updated", "project", "src/App.csproj")

		out := buf.String()
		if !strings.Contains(out, "project=src/App.csproj") {
			t.Errorf("level %s: info line missing from %q", level, out)
		}
		if got := strings.Contains(out, "package=Serilog"); got != (level == log.DebugLevel) {
			t.Errorf("level %s: debug line present = %v", level, got)
		}
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel))
	p.done("batch finished", "projects", 3)

	out := buf.String()
	for _, want := range []string{"batch finished", "projects=3", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
