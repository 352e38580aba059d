package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ziadkadry99/docqa/internal/answer"
)

// Asker is the TUI-facing subset of the orchestrator.
type Asker interface {
	Query(ctx context.Context, question string) (*answer.Response, error)
}

// exchange is one question with its outcome.
type exchange struct {
	question string
	resp     *answer.Response
	err      error
}

// answerMsg carries a finished query back into Update.
type answerMsg struct {
	question string
	resp     *answer.Response
	err      error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	asker       Asker
	timeout     time.Duration
	input       textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model
	exchanges   []exchange
	summary     string
	status      string
	busy        bool
	showSources bool
	ready       bool
}

// New creates a chat model. summary is shown under the title; timeout
// bounds each question (0 means none).
func New(asker Asker, summary string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		asker:    asker,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Ready. Tab toggles sources, Ctrl+C quits.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := conversationBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header+summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.exchanges = append(m.exchanges, exchange{question: msg.question, resp: msg.resp, err: msg.err})
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered from %d source(s).", len(msg.resp.Sources))
		}
		m.refresh()
		m.viewport.GotoBottom()
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
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = fmt.Sprintf("Thinking about %q", q)
			m.input.SetValue("")
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case "tab":
			m.showSources = !m.showSources
			m.refresh()
			return m, nil
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

// ask runs the query off the update loop.
func (m Model) ask(question string) tea.Cmd {
	asker, timeout := m.asker, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		resp, err := asker.Query(ctx, question)
		return answerMsg{question: question, resp: resp, err: err}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("docqa")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	conversation := conversationBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())

	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	status = statusStyle.Render(status)

	return header + "\n" + summary + "\n" + conversation + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
}

func (m Model) renderConversation() string {
	if len(m.exchanges) == 0 {
		return "No questions yet."
	}

	var b strings.Builder
	for i, ex := range m.exchanges {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("Q: " + ex.question))
		b.WriteString("\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Render("Error: " + ex.err.Error()))
			continue
		}
		b.WriteString("A: " + ex.resp.Answer)
		if len(ex.resp.DocumentsConsulted) > 0 {
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render("Documents: " + strings.Join(ex.resp.DocumentsConsulted, ", ")))
		}
		if m.showSources {
			for j, src := range ex.resp.Sources {
				fmt.Fprintf(&b, "\n%s\n%s",
					sourceStyle.Render(fmt.Sprintf("[%d] %s  score=%.3f", j+1, src.Source, src.Score)),
					src.Content,
				)
			}
		}
	}
	return b.String()
}

var (
	titleStyle           = lipgloss.NewStyle().Bold(true)
	conversationBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
