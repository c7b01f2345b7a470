package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glicerico/wordcat-transformer/scoring"
)

var tokenStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

type uiModel struct {
	textarea  textarea.Model
	viewport  viewport.Model
	submitted bool
	estimator *scoring.Estimator
	err       error
}

func newUIModel() *uiModel {
	ta := textarea.New()
	ta.Placeholder = "Sentence to score:"
	ta.Focus()

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().Margin(1, 2).
		Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("99"))

	return &uiModel{
		textarea:  ta,
		viewport:  vp,
		estimator: BuildEstimator(),
	}
}

func (m *uiModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m *uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd  tea.Cmd
		vpCmd  tea.Cmd
		cmds   []tea.Cmd
		resize bool
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc:
			return m, tea.Quit
		case msg.Type == tea.KeyCtrlL:
			m.textarea.Reset()

		case msg.Type == tea.KeyCtrlD && !m.submitted: // Ctrl+D to score
			m.submitted = true
			report, err := m.ScoreReport()
			if err != nil {
				m.err = err
				return m, tea.Quit
			}
			m.viewport.SetContent(report)
			m.textarea.Blur()

		case m.submitted && msg.Type == tea.KeyEnter: // Enter while submitted to edit
			m.submitted = false
			m.textarea.Focus()
		}

	case tea.WindowSizeMsg:
		resize = true
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 3 // Account for textarea and margins
		m.textarea.SetWidth(msg.Width - 4) // Account for textarea margins
		m.textarea.SetHeight(msg.Height - 8)
	}

	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	if resize {
		cmds = append(cmds, vpCmd)
	}

	return m, tea.Batch(append(cmds, taCmd)...)
}

// ScoreReport runs the masking loop once and renders the per-token
// directional log-probabilities plus the score under every policy.
func (m *uiModel) ScoreReport() (string, error) {
	seq, err := m.estimator.Oracle.Tokenize(m.textarea.Value())
	if err != nil {
		return "", err
	}
	scores, err := m.estimator.DirectionalScores(seq)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tokens: %v\n\n", []string(seq))
	for _, ds := range scores {
		fmt.Fprintf(&b, "%s\tlog10 P_forward=%8.4f\tlog10 P_backward=%8.4f\n",
			tokenStyle.Render(seq[ds.Position]), ds.Forward, ds.Backward)
	}
	b.WriteString("\n")
	for _, policy := range []scoring.CombinationPolicy{scoring.PolicyRaw, scoring.PolicyLengthAveraged, scoring.PolicyCalibrated} {
		if policy == scoring.PolicyCalibrated && m.estimator.Calibration == nil {
			continue
		}
		score, err := m.estimator.Compose(scores, len(seq), policy)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%-16s%.6e\n", policy, score)
	}
	return b.String(), nil
}

func (m *uiModel) View() string {
	if m.submitted {
		return fmt.Sprintf("\n%s\n\nPress Enter to edit...", m.viewport.View())
	}

	return fmt.Sprintf(
		"\n%s\n\n"+
			"\t• Ctrl+C or ESC to quit;\n"+
			"\t• Ctrl+D to score the sentence;\n"+
			"\t• Ctrl+L to clear the input.\n",
		m.textarea.View(),
	)
}
