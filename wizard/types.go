package wizard

import "github.com/charmbracelet/bubbles/textinput"

// State is the current step in the wizard flow.
type State int

const (
	StateTenantID State = iota
	StateConnectionString
	StateSchemaName
	StateSummary
	StateCreating
	StateDone
	StateError
)

// TenantInput holds the user's answers for one tenant entry.
type TenantInput struct {
	TenantID         string
	ConnectionString string
	SchemaName       string
}

// InitResult is the outcome of running the wizard.
type InitResult struct {
	ConfigPath    string
	ConfigCreated bool
	ConfigUpdated bool
	EnvFilePath   string
}

// Model holds the Bubble Tea state for `meridian init`.
type Model struct {
	state State

	input      TenantInput
	inputs     []textinput.Model
	focusIndex int

	cancelled bool
	result    *InitResult
	err       error
}
