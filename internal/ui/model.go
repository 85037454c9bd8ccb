// Package ui is the terminal frontend of the transfer dialog.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"stusave.app/internal/appstate"
	"stusave.app/internal/qr"
	"stusave.app/internal/transfer"
)

type (
	stateMsg  struct{ state transfer.State }
	noticeMsg struct{ notice transfer.Notice }
	opDoneMsg struct{ err error }
)

type Model struct {
	dialog     *transfer.Dialog
	notices    *Notices
	decoderFor func(string) transfer.Decoder
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// choosing is true while the user types an image path or link
	choosing bool
	spinner  spinner.Model
	input    textinput.Model
	help     help.Model
	notice   *transfer.Notice
	err      error
}

type Option func(*Model)

// WithDecoderFor overrides qr.ForSource.
func WithDecoderFor(fn func(string) transfer.Decoder) Option {
	return func(m *Model) { m.decoderFor = fn }
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New wires a dialog to the terminal. notices must be the dialog's notifier.
func New(dialog *transfer.Dialog, notices *Notices, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "path to QR image, or paste the link"
	ti.CharLimit = 2048
	ti.Width = 60

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		dialog:     dialog,
		notices:    notices,
		decoderFor: qr.ForSource,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		spinner:    newSpinner(),
		input:      ti,
		help:       help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	m.dialog.Open()
	return tea.Batch(m.spinner.Tick, m.waitForState(), m.waitForNotice())
}

func (m Model) waitForState() tea.Cmd {
	events := m.dialog.Events()
	return func() tea.Msg {
		return stateMsg{state: <-events}
	}
}

func (m Model) waitForNotice() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	ch := m.notices.C()
	return func() tea.Msg {
		return noticeMsg{notice: <-ch}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, defaultKeys.Quit) && (!m.choosing || msg.Type == tea.KeyCtrlC) {
			m.dialog.Close()
			m.cancel()
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case stateMsg:
		return m, m.waitForState()
	case noticeMsg:
		n := msg.notice
		m.notice = &n
		return m, m.waitForNotice()
	case opDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, transfer.ErrDiscarded) {
			m.err = msg.err
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.choosing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.dialog.IsOpen() {
		if key.Matches(msg, defaultKeys.Reopen) {
			m.notice = nil
			m.err = nil
			m.dialog.Open()
		}
		return m, nil
	}

	switch m.dialog.State().(type) {
	case transfer.Options:
		if m.choosing {
			return m.handleSourceInput(msg)
		}
		switch {
		case key.Matches(msg, defaultKeys.Generate):
			m.clearMessages()
			return m, m.generate()
		case key.Matches(msg, defaultKeys.Scan):
			m.clearMessages()
			m.choosing = true
			m.input.Reset()
			return m, m.input.Focus()
		}
	case transfer.Generating, transfer.Scanning:
		if key.Matches(msg, defaultKeys.Back) {
			m.err = m.dialog.Back()
		}
	case transfer.ReadyToShare:
		switch {
		case key.Matches(msg, defaultKeys.Back):
			m.err = m.dialog.Back()
		case key.Matches(msg, defaultKeys.Refresh):
			if err := m.dialog.Back(); err != nil {
				m.err = err
				return m, nil
			}
			return m, m.generate()
		}
	case transfer.PendingConfirmation:
		switch {
		case key.Matches(msg, defaultKeys.Accept):
			m.err = m.dialog.Confirm()
		case key.Matches(msg, defaultKeys.Reject):
			m.err = m.dialog.Cancel()
		}
	}
	return m, nil
}

func (m Model) handleSourceInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.choosing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		source := strings.TrimSpace(m.input.Value())
		if source == "" {
			return m, nil
		}
		m.choosing = false
		m.input.Blur()
		return m, m.scan(m.decoderFor(source))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) clearMessages() {
	m.notice = nil
	m.err = nil
}

func (m Model) generate() tea.Cmd {
	d, ctx := m.dialog, m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: d.Generate(ctx)}
	}
}

func (m Model) scan(dec transfer.Decoder) tea.Cmd {
	d, ctx := m.dialog, m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: d.Scan(ctx, dec)}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Transfer Data"))
	b.WriteString("\n\n")
	b.WriteString(m.body())

	if n := m.notice; n != nil {
		b.WriteString("\n\n")
		style := SuccessStyle
		if n.Level == transfer.LevelError {
			style = ErrorStyle
		}
		b.WriteString(style.Render(n.Title))
		b.WriteString("\n")
		b.WriteString(n.Message)
	} else if m.err != nil && !errors.Is(m.err, transfer.ErrInvalidTransition) {
		b.WriteString("\n\n")
		b.WriteString(ErrorStyle.Render(m.err.Error()))
	}

	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.activeKeys())))
	return DocStyle.Render(b.String())
}

func (m Model) body() string {
	if !m.dialog.IsOpen() {
		return "Nothing in progress."
	}

	switch st := m.dialog.State().(type) {
	case transfer.Options:
		if m.choosing {
			return "Scan the QR code shown on the other device:\n\n" + m.input.View()
		}
		return "Move your data between devices.\n\n" +
			HighlightStyle.Render("Send") + "    show a code on this device\n" +
			HighlightStyle.Render("Receive") + " read the code from the other device"
	case transfer.Generating:
		return fmt.Sprintf("%s Generating secure code...", m.spinner.View())
	case transfer.ReadyToShare:
		code, err := qr.Terminal(st.URL)
		if err != nil {
			code = ErrorStyle.Render(err.Error())
		}
		return "Scan this code on your other device:\n\n" + code + "\n" +
			HighlightStyle.Render(st.URL) + "\n" +
			HelpStyle.Render("The code works once and expires after a few minutes.")
	case transfer.Scanning:
		return fmt.Sprintf("%s Looking for a transfer code...", m.spinner.View())
	case transfer.PendingConfirmation:
		return m.confirmView(st.Payload)
	default:
		return ""
	}
}

func (m Model) confirmView(payload []byte) string {
	var summary string
	if s, err := appstate.Hydrate(payload); err == nil {
		summary = SummaryView(s.Summarize(m.now()))
	} else {
		summary = ErrorStyle.Render("could not read incoming data: " + err.Error())
	}
	return "Data received. Replacing your data cannot be undone.\n\n" +
		BoxStyle.Render(summary) + "\n\n" +
		"Overwrite the data on this device?"
}

func (m Model) activeKeys() bindings {
	if !m.dialog.IsOpen() {
		return bindings{defaultKeys.Reopen, defaultKeys.Quit}
	}
	switch m.dialog.State().(type) {
	case transfer.Options:
		if m.choosing {
			return bindings{defaultKeys.Submit, defaultKeys.Back}
		}
		return bindings{defaultKeys.Generate, defaultKeys.Scan, defaultKeys.Quit}
	case transfer.ReadyToShare:
		return bindings{defaultKeys.Refresh, defaultKeys.Back, defaultKeys.Quit}
	case transfer.PendingConfirmation:
		return bindings{defaultKeys.Accept, defaultKeys.Reject}
	default:
		return bindings{defaultKeys.Back, defaultKeys.Quit}
	}
}
