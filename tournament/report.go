package tournament

import (
	"arena-runner/ledger"
	"fmt"
	"github.com/charmbracelet/lipgloss"
	"strings"
)

var (
	colorTitle = lipgloss.Color("#89b4fa")
	colorText  = lipgloss.Color("#cdd6f4")
	colorMuted = lipgloss.Color("#7f849c")
	colorWin   = lipgloss.Color("#a6e3a1")
	colorError = lipgloss.Color("#f38ba8")

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// RenderStandings formats the final statistics of a finished run.
func RenderStandings(s *ledger.Standings) string {
	title := lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	text := lipgloss.NewStyle().Foreground(colorText)
	muted := lipgloss.NewStyle().Foreground(colorMuted)
	win := lipgloss.NewStyle().Foreground(colorWin).Bold(true)

	lines := []string{
		title.Render("Game Statistics"),
		text.Render(fmt.Sprintf("Total matchups made: %d", s.Matches)),
	}

	if s.Tie() {
		lines = append(lines, win.Render("Tournament resulted in a Tie"))
	} else {
		lines = append(lines, win.Render(
			fmt.Sprintf("Player with the most overall wins: %s (%d wins)", s.Leader, s.LeaderWins)))
	}

	for _, p := range s.Players {
		lines = append(lines,
			"",
			text.Render(fmt.Sprintf("Statistics for %s:", p.Name)),
			muted.Render(fmt.Sprintf(">> Matches won: %d", p.MatchWins)),
			muted.Render(fmt.Sprintf(">> Game 1 wins: %d", p.GameWins[0])),
			muted.Render(fmt.Sprintf(">> Game 2 wins: %d", p.GameWins[1])),
			muted.Render(fmt.Sprintf(">> Total points earned: %s", ledger.FormatChips(p.Chips))),
		)
	}

	return boxStyle.BorderForeground(colorTitle).Render(strings.Join(lines, "\n"))
}

// RenderCrashReport formats the reason a run was stopped.
func RenderCrashReport(e *CrashError) string {
	title := lipgloss.NewStyle().Foreground(colorError).Bold(true)
	text := lipgloss.NewStyle().Foreground(colorText)
	muted := lipgloss.NewStyle().Foreground(colorMuted)

	details := "Details: a process crashed the tournament with the error message below."
	if e.LogDir != "" {
		details += fmt.Sprintf(" Refer to the latest .log files in %s for more info.", e.LogDir)
	}

	lines := []string{
		title.Render("Crash Detected"),
		"",
		muted.Render(details),
		"",
		text.Render(e.Message),
		"",
		muted.Render("Run again with -pickup to resume the incomplete matches."),
	}

	return boxStyle.BorderForeground(colorError).Width(72).Render(strings.Join(lines, "\n"))
}
