// ABOUTME: Interactive TUI wizard for connecting dashmatch to an analytics host.
// ABOUTME: 4-step bubbletea model collecting host URL, client id, client secret, and AI key.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/dashmatch/internal/host"
)

// Step represents the current wizard step.
type Step int

const (
	StepHostURL Step = iota
	StepClientID
	StepClientSecret
	StepAIKey
	StepValidating
	StepDone
	StepFailed
)

// inputCount is the number of text inputs, one per input step.
const inputCount = int(StepAIKey) + 1

// Credentials are the values the wizard collects.
type Credentials struct {
	HostURL      string
	ClientID     string
	ClientSecret string
	AIKey        string
}

// validationResultMsg carries the result of an async validation attempt.
type validationResultMsg struct {
	err error
}

// ValidateFn checks that the collected credentials work.
type ValidateFn func(ctx context.Context, creds Credentials) error

// cancelHolder shares a cancel function across bubbletea model copies.
// tea.Model methods use value receivers, so the cancel func must live
// behind a pointer to be visible to every copy.
type cancelHolder struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [inputCount]textinput.Model
	spinner       spinner.Model
	validateFn    ValidateFn
	cancelCtx     *cancelHolder
	validationErr error
	quitting      bool
}

var stepLabels = [inputCount]string{"Host URL", "Client ID", "Client Secret", "AI API Key"}

// NewSetupModel creates a new setup wizard model, pre-filled with existing config values.
func NewSetupModel(existing Credentials) SetupModel {
	newInput := func(placeholder, value string, secret bool) textinput.Model {
		in := textinput.New()
		in.Placeholder = placeholder
		in.Width = 50
		if secret {
			in.EchoMode = textinput.EchoPassword
		}
		if value != "" {
			in.SetValue(value)
		}
		return in
	}

	urlInput := newInput("https://yourcompany.looker.com", existing.HostURL, false)
	urlInput.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		step: StepHostURL,
		inputs: [inputCount]textinput.Model{
			urlInput,
			newInput("api client id", existing.ClientID, false),
			newInput("api client secret", existing.ClientSecret, true),
			newInput("generative AI api key", existing.AIKey, true),
		},
		spinner:    s,
		validateFn: ValidateConnection,
		cancelCtx:  &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepHostURL, StepClientID, StepClientSecret, StepAIKey:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case validationResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.step = StepDone
			return m, tea.Quit
		}
		m.validationErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m SetupModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := int(m.step)

	if msg.Type == tea.KeyEnter {
		if m.step == StepHostURL {
			m.inputs[idx].SetValue(host.NormalizeURL(m.inputs[idx].Value()))
		}
		// Every field is required.
		if strings.TrimSpace(m.inputs[idx].Value()) == "" {
			return m, nil
		}

		m.inputs[idx].Blur()
		if m.step == StepAIKey {
			m.step = StepValidating
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		}
		m.step++
		m.inputs[int(m.step)].Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepValidating
			m.validationErr = nil
			return m, tea.Batch(m.startValidation(), m.spinner.Tick)
		case 's':
			m.step = StepDone
			return m, tea.Quit
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m SetupModel) startValidation() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	creds := m.Result()
	fn := m.validateFn
	return func() tea.Msg {
		return validationResultMsg{err: fn(ctx, creds)}
	}
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   DASHMATCH"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Connect your analytics host and generative AI key.\n\n")

	switch m.step {
	case StepHostURL, StepClientID, StepClientSecret, StepAIKey:
		idx := int(m.step)
		m.writeSummary(&b, idx)
		if idx > 0 {
			b.WriteString("\n")
		}
		b.WriteString(stepStyle.Render(fmt.Sprintf("Step %d of %d: %s", idx+1, inputCount, stepLabels[idx])))
		b.WriteString("\n")
		b.WriteString(m.inputs[idx].View())
		b.WriteString("\n")

	case StepValidating:
		m.writeSummary(&b, inputCount)
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(" Logging in to host...")
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("✓ Connected!"))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.validationErr != nil {
			errMsg = m.validationErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Validation failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

// writeSummary lists the values entered before step upTo, masking secrets.
func (m SetupModel) writeSummary(b *strings.Builder, upTo int) {
	for i := 0; i < upTo; i++ {
		val := m.inputs[i].Value()
		if m.inputs[i].EchoMode == textinput.EchoPassword {
			val = strings.Repeat("*", len(val))
		}
		fmt.Fprintf(b, "  %s: %s\n", stepLabels[i], val)
	}
}

// Result returns the entered values.
func (m SetupModel) Result() Credentials {
	return Credentials{
		HostURL:      m.inputs[StepHostURL].Value(),
		ClientID:     m.inputs[StepClientID].Value(),
		ClientSecret: m.inputs[StepClientSecret].Value(),
		AIKey:        m.inputs[StepAIKey].Value(),
	}
}

// ShouldSave returns true if the wizard completed (via validation success or
// "save anyway") and the user did not cancel with Ctrl+C, Escape, or 'q'.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
