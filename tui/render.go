package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/axiomesh/ballot/core"
)

const barWidth = 24

func progressBar(percent float64) string {
	filled := int(math.Round(percent / 100 * barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return barFillStyle.Render(strings.Repeat("█", filled)) + barRestStyle.Render(strings.Repeat("░", barWidth-filled))
}

// RenderStatus renders the forum header: title, voter count and whether voting is open.
func RenderStatus(f *core.Forum) string {
	status := successStyle.Render("active")
	if !f.IsActive {
		status = errorStyle.Render("ended")
	}

	return strings.Join([]string{
		headerStyle.Render(f.Title),
		labelStyle.Render("Admin: ") + core.ShortAddress(f.Admin),
		labelStyle.Render("Total voters: ") + fmt.Sprint(f.TotalVoters),
		labelStyle.Render("Status: ") + status,
	}, "\n")
}

// RenderResults renders one line per candidate with its votes and share of the voters.
func RenderResults(f *core.Forum) string {
	width := 0
	for _, c := range f.Candidates {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}

	lines := []string{labelStyle.Render("Results:")}
	for i, c := range f.Candidates {
		lines = append(lines, fmt.Sprintf("%-*s %s %3d votes (%.1f%%)", width, c.Name, progressBar(f.Percent(i)), c.Votes, f.Percent(i)))
	}

	if !f.IsActive {
		if winner, ok := f.Winner(); ok {
			lines = append(lines, "", successStyle.Render("Winner: "+winner.Name))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderVoters lists who voted for whom and why. Empty when the forum carries no voter records.
func RenderVoters(f *core.Forum) string {
	if len(f.Voters) == 0 {
		return ""
	}

	lines := []string{labelStyle.Render("Voter reasons:")}
	for _, v := range f.Voters {
		lines = append(lines,
			fmt.Sprintf("%s chose %s", codeStyle.Render(core.ShortAddress(v.Address)), f.CandidateName(v.Choice)),
			mutedStyle.Render(fmt.Sprintf("  %q", v.Reason)),
		)
	}
	return strings.Join(lines, "\n")
}
