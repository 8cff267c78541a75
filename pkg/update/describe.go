package update

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Description is a commit title and pull request body rendered from a
// batch.
type Description struct {
	Title string
	Body  string
}

type detail struct {
	Project string   `json:"project"`
	Actions []Action `json:"actions"`
}

// Describe renders the action log of b as markdown. The body ends with a
// JSON block listing every action so tooling can read it back.
func Describe(b *BatchResult) Description {
	packages := map[string]bool{}
	var details []detail
	for _, p := range b.Projects {
		if p.Result == nil || len(p.Result.Actions) == 0 {
			continue
		}
		details = append(details, detail{Project: p.Path, Actions: p.Result.Actions})
		for _, a := range p.Result.Actions {
			packages[strings.ToLower(a.Name)] = true
		}
	}

	var sb strings.Builder
	title := describeTitle(b.Mode, len(packages), len(details))

	if len(details) == 0 {
		sb.WriteString("No package changes.\n")
	} else {
		sb.WriteString("| Project | Package | From | To |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, d := range details {
			for _, a := range d.Actions {
				to := a.New
				if a.Kind == ActionRemove {
					to = "_removed_"
				}
				fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", d.Project, a.Name, orDash(a.Previous), to)
			}
		}
	}

	var skipped, failed []string
	for _, p := range b.Projects {
		switch {
		case p.Err != nil:
			failed = append(failed, fmt.Sprintf("- `%s`: %v", p.Path, p.Err))
		case p.Result != nil && p.Result.Outcome == Skipped:
			skipped = append(skipped, fmt.Sprintf("- `%s`: %s", p.Path, p.Result.Reason))
		}
	}
	if len(skipped) > 0 {
		sb.WriteString("\n**Skipped**\n\n")
		sb.WriteString(strings.Join(skipped, "\n"))
		sb.WriteString("\n")
	}
	if len(failed) > 0 {
		sb.WriteString("\n**Failed**\n\n")
		sb.WriteString(strings.Join(failed, "\n"))
		sb.WriteString("\n")
	}

	if len(details) > 0 {
		data, err := json.MarshalIndent(details, "", "  ")
		if err == nil {
			sb.WriteString("\n<details>\n<summary>Details</summary>\n\n```json\n")
			sb.Write(data)
			sb.WriteString("\n```\n\n</details>\n")
		}
	}

	return Description{Title: title, Body: sb.String()}
}

func describeTitle(mode Mode, packages, projects int) string {
	verb := "Update"
	if mode == ModeMigration {
		verb = "Migrate"
	}
	return fmt.Sprintf("%s %d %s in %d %s", verb, packages, plural(packages, "package"), projects, plural(projects, "project"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
