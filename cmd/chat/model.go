package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragchat/models"
	"ragchat/services/chat"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// QueryProcessor is the part of the chat service the client drives.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string, cfg chat.SessionConfig) (*models.Transcript, error)
}

type ModelSelector interface {
	Get() models.ModelChoice
	Set(value string, supported func(models.ModelChoice) bool) models.ModelChoice
}

type HistoryClearer interface {
	Clear(ctx context.Context) error
}

type entry struct {
	speaker string
	text    string
	failed  bool
}

type answerMsg struct {
	transcript *models.Transcript
	err        error
}

type Model struct {
	chat      QueryProcessor
	selector  ModelSelector
	supported func(models.ModelChoice) bool
	history   HistoryClearer
	sessionID string
	timeout   time.Duration

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	entries  []entry
	status   string
	busy     bool
	ready    bool
}

func NewModel(svc QueryProcessor, selector ModelSelector, supported func(models.ModelChoice) bool, history HistoryClearer, sessionID string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, /model <name> to switch, quit to exit"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		chat:      svc,
		selector:  selector,
		supported: supported,
		history:   history,
		sessionID: sessionID,
		timeout:   timeout,
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:    fmt.Sprintf("Model: %s", selector.Get()),
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := transcriptBoxStyle.GetFrameSize()
		_, inputFrame := inputBoxStyle.GetFrameSize()
		// header, status and the input line
		reserved := 3 + inputFrame + frame
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.entries = append(m.entries, entry{speaker: "error", text: msg.err.Error(), failed: true})
			m.status = "Query failed"
		} else {
			m.entries = append(m.entries, entry{speaker: "assistant", text: msg.transcript.FinalAnswer()})
			m.status = fmt.Sprintf("Model: %s, %d messages", msg.transcript.Model, msg.transcript.Len())
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.busy {
		return m, nil
	}
	m.input.SetValue("")

	switch {
	case strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit"):
		m.clearHistory()
		return m, tea.Quit

	case strings.HasPrefix(line, "/model"):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/model"))
		if name == "" {
			m.status = fmt.Sprintf("Model: %s", m.selector.Get())
			return m, nil
		}
		choice := m.selector.Set(name, m.supported)
		m.status = fmt.Sprintf("Model: %s", choice)
		if m.supported != nil && !m.supported(choice) {
			m.status += " (not supported, queries will fail)"
		}
		return m, nil
	}

	m.entries = append(m.entries, entry{speaker: "you", text: line})
	m.busy = true
	m.status = "Thinking..."
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.ask(line, m.selector.Get()))
}

func (m Model) ask(query string, choice models.ModelChoice) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		t, err := m.chat.ProcessQuery(ctx, query, chat.SessionConfig{SessionID: m.sessionID, Model: choice})
		return answerMsg{transcript: t, err: err}
	}
}

func (m Model) clearHistory() {
	if m.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = m.history.Clear(ctx)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		transcriptBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		status
}

func (m Model) renderEntries() string {
	if len(m.entries) == 0 {
		return "No messages yet."
	}
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		style := speakerStyle
		if e.failed {
			style = errorStyle
		}
		b.WriteString(style.Render(e.speaker + ":"))
		b.WriteString("\n")
		b.WriteString(e.text)
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	speakerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
