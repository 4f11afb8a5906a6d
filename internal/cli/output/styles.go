package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used for text mode rendering.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

// newStyles builds the style set bound to the output writer. Styling is
// forced off when the writer is not a terminal so piped output stays clean.
func newStyles(w io.Writer, isTTY bool) Styles {
	lr := lipgloss.NewRenderer(w)
	if !isTTY {
		lr.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		Header1:       lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2:       lr.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:          lr.NewStyle().Bold(true),
		Muted:         lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success:       lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:       lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:         lr.NewStyle().Foreground(lipgloss.Color("9")),
		StatusSuccess: lr.NewStyle().SetString("✓").Foreground(lipgloss.Color("10")),
		StatusFailed:  lr.NewStyle().SetString("✗").Foreground(lipgloss.Color("9")),
	}
}
