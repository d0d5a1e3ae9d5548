package detection

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stackscan/pkg/detector"
)

var (
	titleStyle       = lipgloss.NewStyle().Background(lipgloss.Color("#7D56F4")).Foreground(lipgloss.Color("#FAFAFA")).Bold(true).Padding(0, 1, 0)
	stackStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	categoryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	barFilledStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#44C07A"))
	barEmptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	evidenceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#40BDA3"))
	consideredStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const barWidth = 20

type model struct {
	result   *detector.WorkspaceStackDetectionResult
	quitting bool
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func confidenceBar(confidence float64) string {
	filled := int(confidence*barWidth + 0.5)
	if filled > barWidth {
		filled = barWidth
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Stack Detection Results"))
	s.WriteString("\n\n")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7D56F4")).
		Padding(1, 2).
		Width(72)

	var content strings.Builder

	if !m.result.Complete {
		content.WriteString(warnStyle.Render("⚠ Partial result (scan limits reached)"))
		content.WriteString("\n\n")
	}

	if len(m.result.DetectedStacks) == 0 {
		content.WriteString(consideredStyle.Render("No stacks detected."))
		content.WriteString("\n")
	}

	for _, d := range m.result.DetectedStacks {
		content.WriteString(fmt.Sprintf("%s %s\n",
			stackStyle.Render(d.DisplayName),
			categoryStyle.Render("("+string(d.Category)+")")))
		content.WriteString(fmt.Sprintf("  %s %.0f%%\n", confidenceBar(d.Confidence), d.Confidence*100))
		for _, e := range d.Evidence {
			content.WriteString(evidenceStyle.Render("  ✓ " + e.Detail))
			content.WriteString("\n")
		}
		if len(d.ResolvedDependencies) > 0 {
			content.WriteString(categoryStyle.Render("  depends on: " + strings.Join(d.ResolvedDependencies, ", ")))
			content.WriteString("\n")
		}
		content.WriteString("\n")
	}

	if len(m.result.ConsideredStacks) > 0 {
		content.WriteString(consideredStyle.Render("Considered (below threshold or conflicting):"))
		content.WriteString("\n")
		for _, c := range m.result.ConsideredStacks {
			content.WriteString(consideredStyle.Render(fmt.Sprintf("  %s — score %.1f, %s", c.DisplayName, c.Score, c.Reason)))
			content.WriteString("\n")
		}
	}

	s.WriteString(box.Render(strings.TrimRight(content.String(), "\n")))
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("press enter or q to exit"))
	s.WriteString("\n")

	return s.String()
}

// ShowDetectionResults renders the interactive results view and blocks until
// the user dismisses it.
func ShowDetectionResults(result *detector.WorkspaceStackDetectionResult) error {
	p := tea.NewProgram(model{result: result})
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to display detection results: %w", err)
	}
	return nil
}
