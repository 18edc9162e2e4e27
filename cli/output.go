package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"groups/snapshot"
	"groups/solver"
)

const cardsPerRow = 3

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	badStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F44336"))
)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#444444")).
	Padding(0, 1).
	Width(26)

func printJSON(w io.Writer, v any) error {
	return snapshot.Write(w, v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func printStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		return true, printJSON(w, v)
	case "yaml":
		return true, printYAML(w, v)
	}
	return false, nil
}

func memberLine(s snapshot.Student) string {
	var marks []string
	if s.IsLeader {
		marks = append(marks, "★")
	}
	if s.NeedsHelp {
		marks = append(marks, "+")
	}
	gender := "?"
	switch solver.Gender(s.Gender) {
	case solver.Male:
		gender = "M"
	case solver.Female:
		gender = "F"
	}
	line := fmt.Sprintf("%s (%s)", s.Name, gender)
	if len(marks) > 0 {
		line += " " + strings.Join(marks, "")
	}
	return line
}

func renderCard(g snapshot.Group, byID map[int]snapshot.Student) string {
	lines := []string{headerStyle.Render(fmt.Sprintf("Group %d", g.ID))}
	for _, id := range g.Students {
		s, ok := byID[id]
		if !ok {
			s = snapshot.Student{Name: fmt.Sprintf("#%d", id)}
		}
		lines = append(lines, memberLine(s))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func renderStats(st snapshot.Stats) string {
	return strings.Join([]string{
		fmt.Sprintf("groups with a leader:   %d", st.GroupsWithLeader),
		fmt.Sprintf("preferences satisfied:  %d", st.PreferencesSatisfied),
		fmt.Sprintf("avg gender imbalance:   %.1f", st.GenderImbalance),
		fmt.Sprintf("active constraints:     %d", st.ActiveConstraints),
	}, "\n")
}

func printResult(w io.Writer, format string, cfg *snapshot.Configuration, res *snapshot.Result) error {
	if ok, err := printStructured(w, format, res); ok {
		return err
	}

	byID := make(map[int]snapshot.Student, len(cfg.Students))
	for _, s := range cfg.Students {
		byID[s.ID] = s
	}

	title := fmt.Sprintf("%d groups of up to %d", len(res.Groups), res.GroupSize)
	if cfg.Name != "" {
		title = cfg.Name + ": " + title
	}
	meta := fmt.Sprintf("found on attempt %d", res.Attempts)
	if res.Seed != nil {
		meta += fmt.Sprintf(", seed %d", *res.Seed)
	}

	var rows []string
	for start := 0; start < len(res.Groups); start += cardsPerRow {
		var cards []string
		for _, g := range res.Groups[start:min(start+cardsPerRow, len(res.Groups))] {
			cards = append(cards, renderCard(g, byID))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	out := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		mutedStyle.Render(meta),
		"",
		strings.Join(rows, "\n"),
		"",
		renderStats(res.Stats),
		mutedStyle.Render("★ leader  + needs help"),
	)
	_, err := fmt.Fprintln(w, out)
	return err
}

type validationReport struct {
	Valid      bool     `json:"valid" yaml:"valid"`
	GroupSize  int      `json:"groupSize" yaml:"groupSize"`
	Violations []string `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func printValidation(w io.Writer, format string, report validationReport, violated []solver.Constraint) error {
	if ok, err := printStructured(w, format, report); ok {
		return err
	}
	if report.Valid {
		_, err := fmt.Fprintln(w, okStyle.Render("valid"))
		return err
	}
	fmt.Fprintln(w, badStyle.Render("invalid"))
	for _, c := range violated {
		desc := c.Description
		if desc == "" {
			desc = string(c.Kind)
		}
		fmt.Fprintf(w, "  %s: %s\n", c.ID, desc)
	}
	return nil
}

func printStats(w io.Writer, format string, st snapshot.Stats) error {
	if ok, err := printStructured(w, format, st); ok {
		return err
	}
	_, err := fmt.Fprintln(w, renderStats(st))
	return err
}
