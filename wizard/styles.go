package wizard

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorSuccess = lipgloss.Color("#04B575")
	colorError   = lipgloss.Color("#FF4672")
	colorSubtle  = lipgloss.Color("#777777")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	focusedPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF6AD5")).
				Bold(true)

	blurredPromptStyle = lipgloss.NewStyle().
				Foreground(colorSubtle)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorSubtle).
			Italic(true).
			MarginTop(1)
)

func renderHeader(text string) string {
	return headerStyle.Render("meridian init — " + text)
}

func renderSuccess(text string) string {
	return successStyle.Render("✓ " + text)
}

func renderError(text string) string {
	return errorStyle.Render("✗ " + text)
}

func renderStatusBar(text string) string {
	return statusBarStyle.Render(text)
}
