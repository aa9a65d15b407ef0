// ABOUTME: Bubbletea model for the dashboard search app: landing, search, results, embed pane.
// ABOUTME: Remote calls run as tea.Cmds whose results come back as state events.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/2389-research/dashmatch/internal/models"
	"github.com/2389-research/dashmatch/internal/state"
)

// Backend runs the remote work behind the app.
type Backend interface {
	LoadEmbeddings(ctx context.Context) state.Event
	FindMatches(ctx context.Context, req uuid.UUID, query string, embs []models.DashboardEmbedding) state.Event
}

// SummarizeFn produces an AI summary for a dashboard.
type SummarizeFn func(ctx context.Context, emb models.DashboardEmbedding, query string) (string, error)

// Screen is the page the app is showing.
type Screen int

const (
	ScreenLanding Screen = iota
	ScreenSearch
)

// eventMsg delivers a state event produced by a background command.
type eventMsg struct {
	event state.Event
}

// summaryMsg carries a finished summary request.
type summaryMsg struct {
	dashboardID string
	text        string
	err         error
}

// AppModel is the bubbletea model for the search app.
type AppModel struct {
	ctx     context.Context
	backend Backend
	state   state.State
	screen  Screen

	input   textinput.Model
	spinner spinner.Model

	embedURL   func(id string) string
	summarize  SummarizeFn
	embedModel string
	textModel  string

	summaryFor  string
	summary     string
	summaryErr  error
	summarizing bool

	width int
}

// AppOption configures an AppModel.
type AppOption func(*AppModel)

// WithEmbedURL sets how the embed pane resolves a dashboard's viewer URL.
func WithEmbedURL(fn func(id string) string) AppOption {
	return func(m *AppModel) { m.embedURL = fn }
}

// WithSummarizer enables AI summaries in the embed pane.
func WithSummarizer(fn SummarizeFn) AppOption {
	return func(m *AppModel) { m.summarize = fn }
}

// WithModelNames sets the model names shown on the landing page.
func WithModelNames(embedModel, textModel string) AppOption {
	return func(m *AppModel) {
		m.embedModel = embedModel
		m.textModel = textModel
	}
}

// NewAppModel creates the app with an embeddings load already under way.
func NewAppModel(ctx context.Context, backend Backend, opts ...AppOption) AppModel {
	input := textinput.New()
	input.Placeholder = "Find me a dashboard with..."
	input.Prompt = "› "
	input.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot

	m := AppModel{
		ctx:      ctx,
		backend:  backend,
		state:    state.Reduce(state.Initial(), state.EmbeddingsLoad{}),
		screen:   ScreenLanding,
		input:    input,
		spinner:  s,
		embedURL: func(string) string { return "" },
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// State returns the current app state.
func (m AppModel) State() state.State {
	return m.state
}

// Screen returns the page being shown.
func (m AppModel) Screen() Screen {
	return m.screen
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spinner.Tick)
}

func (m AppModel) loadCmd() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return eventMsg{event: backend.LoadEmbeddings(ctx)}
	}
}

func (m AppModel) matchCmd(req uuid.UUID, query string, embs []models.DashboardEmbedding) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return eventMsg{event: backend.FindMatches(ctx, req, query, embs)}
	}
}

func (m AppModel) summaryCmd(emb models.DashboardEmbedding, query string) tea.Cmd {
	ctx, fn := m.ctx, m.summarize
	return func() tea.Msg {
		text, err := fn(ctx, emb, query)
		return summaryMsg{dashboardID: emb.DashboardID, text: text, err: err}
	}
}

// apply reduces e into the state and drops a summary that no longer
// belongs to the selection.
func (m AppModel) apply(e state.Event) AppModel {
	m.state = state.Reduce(m.state, e)
	if m.summaryFor != "" && m.summaryFor != m.state.SelectedDashboardID {
		m.summaryFor, m.summary, m.summaryErr, m.summarizing = "", "", nil, false
	}
	return m
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		return m.apply(msg.event), nil

	case summaryMsg:
		if msg.dashboardID != m.summaryFor {
			return m, nil
		}
		m.summarizing = false
		m.summary = msg.text
		m.summaryErr = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m AppModel) busy() bool {
	return m.state.LoadingEmbeddings || m.state.LoadingMatches || m.summarizing
}

func (m AppModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEscape:
		return m, tea.Quit
	case tea.KeyCtrlX:
		return m.apply(state.DismissError{}), nil
	case tea.KeyCtrlR:
		return m.reload()
	}

	if m.screen == ScreenLanding {
		if msg.Type == tea.KeyEnter && m.state.Ready() {
			m.screen = ScreenSearch
			m.input.Focus()
			return m, textinput.Blink
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyUp:
		return m.moveSelection(-1), nil
	case tea.KeyDown:
		return m.moveSelection(1), nil
	case tea.KeyCtrlG:
		return m.requestSummary()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// withTick adds a spinner tick to cmd unless a tick chain is already
// running, which is the case whenever the model was busy.
func (m AppModel) withTick(wasBusy bool, cmd tea.Cmd) tea.Cmd {
	if wasBusy {
		return cmd
	}
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m AppModel) reload() (tea.Model, tea.Cmd) {
	if m.state.LoadingEmbeddings {
		return m, nil
	}
	wasBusy := m.busy()
	m = m.apply(state.EmbeddingsLoad{})
	return m, m.withTick(wasBusy, m.loadCmd())
}

func (m AppModel) submit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || !m.state.Ready() {
		return m, nil
	}
	wasBusy := m.busy()
	m = m.apply(state.SetQuery(query))
	load := state.NewMatchesLoad()
	m = m.apply(load)
	return m, m.withTick(wasBusy, m.matchCmd(load.Request, query, m.state.Embeddings))
}

func (m AppModel) moveSelection(delta int) AppModel {
	matches := m.state.Matches
	if len(matches) == 0 {
		return m
	}
	idx := 0
	for i, match := range matches {
		if match.DashboardID == m.state.SelectedDashboardID {
			idx = i + delta
			break
		}
	}
	idx = max(0, min(idx, len(matches)-1))
	return m.apply(state.Select(matches[idx].DashboardID))
}

func (m AppModel) requestSummary() (tea.Model, tea.Cmd) {
	if m.summarize == nil || m.summarizing {
		return m, nil
	}
	emb, ok := m.state.SelectedEmbedding()
	if !ok {
		return m, nil
	}
	wasBusy := m.busy()
	m.summaryFor = emb.DashboardID
	m.summary = ""
	m.summaryErr = nil
	m.summarizing = true
	return m, m.withTick(wasBusy, m.summaryCmd(emb, m.state.MatchedQuery))
}

// View implements tea.Model.
func (m AppModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   DASHMATCH"))
	b.WriteString("\n\n")

	if m.state.ErrorMessage != "" {
		b.WriteString(bannerStyle.Render("✗ " + m.state.ErrorMessage))
		b.WriteString(dimStyle.Render("  ctrl+x to dismiss"))
		b.WriteString("\n\n")
	}

	if m.screen == ScreenLanding {
		b.WriteString(m.landingView())
	} else {
		b.WriteString(m.searchView())
	}

	b.WriteString("\n")
	b.WriteString(promptStyle.Render(m.helpLine()))
	b.WriteString("\n")
	return b.String()
}

func (m AppModel) landingView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Find the right dashboard by describing what you need."))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Powered by generative AI"))
	b.WriteString("\n\n")

	embedCard := cardStyle.Render(fmt.Sprintf("%s\n%s\n%s",
		titleStyle.Render("Embedding model"),
		orUnknown(m.embedModel),
		dimStyle.Render("Turns dashboard metadata and your query into vectors for ranking.")))
	textCard := cardStyle.Render(fmt.Sprintf("%s\n%s\n%s",
		titleStyle.Render("Text model"),
		orUnknown(m.textModel),
		dimStyle.Render("Summarizes the dashboard you pick.")))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, embedCard, " ", textCard))
	b.WriteString("\n\n")

	switch {
	case m.state.LoadingEmbeddings:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading dashboard embeddings...")
	case m.state.Ready():
		b.WriteString(successStyle.Render(fmt.Sprintf("✓ %d dashboards indexed.", len(m.state.Embeddings))))
		b.WriteString(" Press enter to begin.")
	default:
		b.WriteString(dimStyle.Render("No dashboards loaded. Press ctrl+r to retry."))
	}
	b.WriteString("\n")
	return b.String()
}

func (m AppModel) searchView() string {
	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.state.LoadingMatches:
		b.WriteString(m.spinner.View())
		b.WriteString(" Matching...\n")
	case m.state.MatchedQuery != "" && len(m.state.Matches) == 0:
		b.WriteString(dimStyle.Render(fmt.Sprintf("No dashboards matched %q.", m.state.MatchedQuery)))
		b.WriteString("\n")
	}

	for _, match := range m.state.Matches {
		line := fmt.Sprintf("%d. %s  %.3f", match.Rank+1, match.Title, match.Score)
		if match.DashboardID == m.state.SelectedDashboardID {
			b.WriteString(selectedStyle.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if pane := m.embedPane(); pane != "" {
		b.WriteString("\n")
		b.WriteString(pane)
		b.WriteString("\n")
	}
	return b.String()
}

func (m AppModel) embedPane() string {
	selected, ok := m.state.Selected()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(selected.Title))
	b.WriteString("\n")
	if url := m.embedURL(selected.DashboardID); url != "" {
		b.WriteString(url)
		b.WriteString("\n")
	}
	if emb, ok := m.state.SelectedEmbedding(); ok && emb.Description != "" {
		b.WriteString(dimStyle.Render(emb.Description))
		b.WriteString("\n")
	}

	switch {
	case m.summarizing:
		b.WriteString("\n" + m.spinner.View() + " Summarizing...")
	case m.summaryErr != nil:
		b.WriteString("\n" + errorStyle.Render("Summary failed: "+m.summaryErr.Error()))
	case m.summary != "":
		b.WriteString("\n" + m.summary)
	case m.summarize != nil:
		b.WriteString("\n" + dimStyle.Render("ctrl+g for an AI summary"))
	}

	style := paneStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

func (m AppModel) helpLine() string {
	if m.screen == ScreenLanding {
		return "enter begin • ctrl+r reload • esc quit"
	}
	return "enter search • ↑/↓ select • ctrl+g summary • ctrl+r reload • esc quit"
}

func orUnknown(s string) string {
	if s == "" {
		return "not configured"
	}
	return s
}
