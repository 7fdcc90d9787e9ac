package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-drift/reactbind/cmd/reactbind/internal/scenario"
)

var (
	passColor = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#7CCF84"}
	failColor = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF7A7A"}
	dimColor  = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#8A8A8A"}

	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(passColor)
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(failColor)
	dimStyle    = lipgloss.NewStyle().Foreground(dimColor)
	addStyle    = lipgloss.NewStyle().Foreground(passColor)
	removeStyle = lipgloss.NewStyle().Foreground(failColor)
	detailStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// renderReport formats a scenario report for the terminal. Contained
// errors are listed only when verbose is set.
func renderReport(r *scenario.Report, verbose bool) string {
	var b strings.Builder

	badge := passStyle.Render("PASS")
	if !r.Passed() {
		badge = failStyle.Render("FAIL")
	}
	name := r.Name
	if r.Path != "" {
		name = fmt.Sprintf("%s %s", r.Name, dimStyle.Render("("+r.Path+")"))
	}
	fmt.Fprintf(&b, "%s %s %s\n", badge, name,
		dimStyle.Render(fmt.Sprintf("%d steps, %s", r.Steps, r.Duration)))

	for _, f := range r.Failures {
		b.WriteString(detailStyle.Render(f.String()))
		b.WriteByte('\n')
		if f.Diff != "" {
			b.WriteString(detailStyle.Render(renderDiff(f.Diff)))
			b.WriteByte('\n')
		}
	}
	if verbose {
		for _, err := range r.Errors {
			b.WriteString(detailStyle.Render(dimStyle.Render("contained: " + err.Error())))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderDiff(diff string) string {
	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = dimStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = addStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removeStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
