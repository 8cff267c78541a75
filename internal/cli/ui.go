package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/refbump/pkg/update"
)

// stdout receives all user-facing output. Tests swap it.
var stdout io.Writer = os.Stdout

var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorBad    = lipgloss.Color("167")
	colorText   = lipgloss.Color("255")
	colorMuted  = lipgloss.Color("245")
	colorFaint  = lipgloss.Color("240")
)

// Exported styles are shared with diff and history rendering.
var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleDim     = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue   = lipgloss.NewStyle().Foreground(colorText)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorOK)
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)

	styleRemoved     = lipgloss.NewStyle().Foreground(colorBad)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleKey         = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
)

type marker struct {
	icon  string
	style lipgloss.Style
}

var (
	markOK   = marker{"✓", lipgloss.NewStyle().Foreground(colorOK)}
	markFail = marker{"✗", lipgloss.NewStyle().Foreground(colorBad)}
	markWarn = marker{"!", lipgloss.NewStyle().Foreground(colorWarn)}
	markInfo = marker{"›", lipgloss.NewStyle().Foreground(colorMuted)}
)

const iconArrow = "→"

func (m marker) println(msg string) {
	fmt.Fprintln(stdout, m.style.Render(m.icon)+" "+msg)
}

func printSuccess(format string, args ...any) { markOK.println(fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { markFail.println(fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { markInfo.println(fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	markWarn.println(StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented, dimmed line under the previous status.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

func printNewline() { fmt.Fprintln(stdout) }

// printBatch prints one status line per project, with actions underneath
// updated ones.
func printBatch(b *update.BatchResult) {
	for _, p := range b.Projects {
		switch {
		case p.Err != nil:
			printError("%s", p.Path)
			printDetail("%v", p.Err)
		case p.Result.Outcome == update.Skipped:
			printWarning("%s skipped: %s", p.Path, p.Result.Reason)
		case p.Result.Outcome == update.Updated:
			printSuccess("%s", p.Path)
			for _, a := range p.Result.Actions {
				printDetail("%s", actionLine(a))
			}
		default:
			printInfo("%s %s", p.Path, StyleDim.Render("up to date"))
		}
	}
}

func actionLine(a update.Action) string {
	if a.Kind == update.ActionRemove {
		return fmt.Sprintf("%s %s removed", a.Name, a.Previous)
	}
	return fmt.Sprintf("%s %s %s %s", a.Name, a.Previous, iconArrow, a.New)
}
