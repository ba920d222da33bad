// Package tui is the Bubble Tea chat interface for the guides.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jharjadi/guides-search/internal/access"
	"github.com/jharjadi/guides-search/internal/chat"
	"github.com/jharjadi/guides-search/internal/service"
)

// Options configure a Model.
type Options struct {
	Asker     chat.Asker
	StoreName string

	// Validate checks a Store ID typed at the access gate, which is shown
	// when StoreName is empty. Defaults to access.ValidateStoreName.
	Validate func(storeID string) (string, error)

	Documents        []string
	ExampleQuestions []string
	ModelName        string

	// Context bounds every question; defaults to context.Background.
	Context context.Context
}

type exchange struct {
	question string
	answer   *service.Answer
	err      error
}

type answerMsg struct {
	question string
	answer   *service.Answer
	err      error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	opts      Options
	ctx       context.Context
	storeName string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	history     []exchange
	busy        bool
	status      string
	nextExample int
	ready       bool
}

// New creates a new chat model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Validate == nil {
		opts.Validate = access.ValidateStoreName
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		opts:      opts,
		ctx:       ctx,
		storeName: opts.StoreName,
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
	}
	if m.gated() {
		m.input.Placeholder = "fileSearchStores/..."
		m.status = "Enter the File Search Store ID to continue."
	} else {
		m.input.Placeholder = "Ask about the guides and press Enter"
		m.status = "Ready. Tab inserts an example question. Type 'quit' to leave."
	}
	return m
}

// StoreName returns the store the chat is bound to, empty until the gate is passed.
func (m Model) StoreName() string { return m.storeName }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) gated() bool { return m.storeName == "" }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header lines, status, input box, spacer
		vh := msg.Height - reserved - fh
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, vh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.history = append(m.history, exchange{question: msg.question, answer: msg.answer, err: msg.err})
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%d citation(s).", len(msg.answer.Citations))
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
		switch msg.String() {
		case "enter":
			if m.gated() {
				return m.submitStore()
			}
			return m.submitQuestion()
		case "tab":
			if !m.gated() && len(m.opts.ExampleQuestions) > 0 {
				m.input.SetValue(m.opts.ExampleQuestions[m.nextExample%len(m.opts.ExampleQuestions)])
				m.input.CursorEnd()
				m.nextExample++
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitStore() (tea.Model, tea.Cmd) {
	name, err := m.opts.Validate(m.input.Value())
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.storeName = name
	m.input.Reset()
	m.input.Placeholder = "Ask about the guides and press Enter"
	m.status = "Connected to " + name + ". Tab inserts an example question."
	m.refresh()
	return m, nil
}

func (m Model) submitQuestion() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	cmd, question := chat.ParseCommand(m.input.Value())
	m.input.Reset()
	switch cmd {
	case chat.CommandEmpty:
		return m, nil
	case chat.CommandQuit:
		return m, tea.Quit
	case chat.CommandClear:
		m.history = nil
		m.status = "Cleared."
		m.refresh()
		return m, nil
	}

	m.busy = true
	m.status = "Searching guides..."
	return m, tea.Batch(m.spinner.Tick, m.ask(question))
}

func (m Model) ask(question string) tea.Cmd {
	asker, ctx, store := m.opts.Asker, m.ctx, m.storeName
	return func() tea.Msg {
		ans, err := asker.Ask(ctx, store, question)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("GSPP User Guides")
	sub := subtleStyle.Render(m.subtitle())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + sub + "\n" +
		historyBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" + status
}

func (m Model) subtitle() string {
	if m.gated() {
		return "Access gate: no store is configured."
	}
	parts := []string{m.storeName}
	if m.opts.ModelName != "" {
		parts = append(parts, m.opts.ModelName)
	}
	if len(m.opts.Documents) > 0 {
		parts = append(parts, strings.Join(m.opts.Documents, ", "))
	}
	return strings.Join(parts, " | ")
}

func (m Model) renderHistory() string {
	if m.gated() {
		return "Enter the Store ID printed by setup (it starts with fileSearchStores/)."
	}
	if len(m.history) == 0 {
		return m.renderExamples()
	}

	width := max(20, m.viewport.Width)
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(questionStyle.Width(width).Render("You: " + ex.question))
		b.WriteString("\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Width(width).Render("Error: " + ex.err.Error()))
			b.WriteString("\n")
			continue
		}
		b.WriteString(lipgloss.NewStyle().Width(width).Render(ex.answer.Text))
		b.WriteString("\n")
		for j, c := range ex.answer.Citations {
			b.WriteString(citationTitleStyle.Render(fmt.Sprintf("[%d] %s", j+1, c.Title)))
			b.WriteString("\n")
			if c.SourceText != "" {
				b.WriteString(subtleStyle.Width(width).Render("    " + chat.Snippet(c.SourceText, chat.SnippetRunes)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func (m Model) renderExamples() string {
	if len(m.opts.ExampleQuestions) == 0 {
		return "Ask a question about the guides."
	}
	var b strings.Builder
	b.WriteString("Example questions:\n")
	for _, q := range m.opts.ExampleQuestions {
		b.WriteString("  - " + q + "\n")
	}
	return b.String()
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	subtleStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	questionStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	citationTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	spinnerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	historyBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
