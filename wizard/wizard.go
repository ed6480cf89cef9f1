// Package wizard implements the interactive setup flow for `meridian
// init`: it prompts for one tenant's id, connection string, and schema
// name, then writes meridian.toml and a matching .env.<tenant> file.
package wizard

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// New creates a wizard ready to run.
func New() *Model {
	m := &Model{state: StateTenantID}
	m.inputs = make([]textinput.Model, 3)

	labels := []string{"Tenant id", "Connection string", "Schema name (optional)"}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = labels[i] + "> "
		ti.CharLimit = 256
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			return m.handleEnter()
		}
	case fileCreationResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateError
			return m, nil
		}
		m.result = msg.result
		m.state = StateDone
		return m, tea.Quit
	}

	if m.state <= StateSchemaName {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateTenantID:
		m.input.TenantID = m.inputs[0].Value()
		if m.input.TenantID == "" {
			return m, nil
		}
		m.advanceFocus(StateConnectionString)
	case StateConnectionString:
		m.input.ConnectionString = m.inputs[1].Value()
		if m.input.ConnectionString == "" {
			return m, nil
		}
		m.advanceFocus(StateSchemaName)
	case StateSchemaName:
		m.input.SchemaName = m.inputs[2].Value()
		m.state = StateSummary
	case StateSummary:
		m.state = StateCreating
		return m, generateFiles(m.input)
	case StateDone, StateError:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) advanceFocus(next State) {
	m.inputs[m.focusIndex].Blur()
	m.state = next
	m.focusIndex++
	m.inputs[m.focusIndex].Focus()
}

func (m *Model) View() string {
	if m.cancelled {
		return labelStyle.Render("meridian init cancelled")
	}

	switch m.state {
	case StateTenantID, StateConnectionString, StateSchemaName:
		return m.renderForm()
	case StateSummary:
		return renderHeader("confirm") + "\n\n" +
			fmt.Sprintf("Tenant:     %s\nConnection: %s\nSchema:     %s\n\n", m.input.TenantID, m.input.ConnectionString, m.input.SchemaName) +
			renderStatusBar("press enter to write meridian.toml and .env." + m.input.TenantID)
	case StateCreating:
		return renderHeader("creating files") + "\n\n" + labelStyle.Render("writing configuration...")
	case StateDone:
		lines := renderHeader("done") + "\n\n" + renderSuccess("wrote "+m.result.ConfigPath) + "\n" + renderSuccess("wrote "+m.result.EnvFilePath)
		return lines
	case StateError:
		return renderHeader("error") + "\n\n" + renderError(m.err.Error())
	}
	return ""
}

func (m *Model) renderForm() string {
	var out string
	out += renderHeader("configure a tenant") + "\n\n"
	for i, input := range m.inputs {
		style := blurredPromptStyle
		if i == m.focusIndex {
			style = focusedPromptStyle
		}
		out += style.Render(input.View()) + "\n"
	}
	out += "\n" + renderStatusBar("enter to continue · esc to quit")
	return out
}

type fileCreationResultMsg struct {
	result *InitResult
	err    error
}

func generateFiles(input TenantInput) tea.Cmd {
	return func() tea.Msg {
		result, err := GenerateFiles(input)
		return fileCreationResultMsg{result: result, err: err}
	}
}

// Run drives the wizard to completion. force is accepted but not
// consulted: GenerateFiles always replaces an existing meridian.toml
// entry for the same tenant id, and there is no non-interactive path.
func Run(force bool) error {
	p := tea.NewProgram(New())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	m, ok := finalModel.(*Model)
	if !ok {
		return fmt.Errorf("unexpected wizard model type")
	}
	if m.cancelled {
		fmt.Fprintln(os.Stderr, "meridian init cancelled")
		return nil
	}
	if m.err != nil {
		return m.err
	}
	return nil
}
