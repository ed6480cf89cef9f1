package cmd

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/meridian-db/meridian/executor"
	"github.com/meridian-db/meridian/planner"
)

var (
	stepHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	stepSQLStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	stepHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			Italic(true)
)

type stepPromptModel struct {
	batch    planner.Batch
	index    int
	count    int
	decision executor.StepDecision
	chosen   bool
}

func (m *stepPromptModel) Init() tea.Cmd { return nil }

func (m *stepPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "e", "enter":
		m.decision, m.chosen = executor.StepExecute, true
		return m, tea.Quit
	case "s":
		m.decision, m.chosen = executor.StepSkip, true
		return m, tea.Quit
	case "q", "ctrl+c":
		m.decision, m.chosen = executor.StepQuit, true
		return m, tea.Quit
	}
	return m, nil
}

func (m *stepPromptModel) View() string {
	var sb strings.Builder
	sb.WriteString(stepHeaderStyle.Render(fmt.Sprintf("batch %d/%d: %s", m.index+1, m.count, m.batch.Name)))
	sb.WriteString("\n\n")
	for _, stmt := range m.batch.Statements {
		if stmt.IsSkip {
			continue
		}
		sb.WriteString(stepSQLStyle.Render(stmt.SQL))
		sb.WriteString(";\n")
	}
	sb.WriteString("\n")
	sb.WriteString(stepHintStyle.Render("[e]xecute · [s]kip · [q]uit"))
	return sb.String()
}

// promptStepDecision drives a one-shot bubbletea program asking the
// operator to execute, skip, or quit before one batch runs (§4.G's
// interactive step mode).
func promptStepDecision(batch planner.Batch, index, count int) executor.StepDecision {
	m := &stepPromptModel{batch: batch, index: index, count: count}
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return executor.StepQuit
	}
	fm, ok := final.(*stepPromptModel)
	if !ok || !fm.chosen {
		return executor.StepQuit
	}
	return fm.decision
}
