package tui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"chorus/groupware/models"
	"chorus/groupware/presence"
)

const toastDuration = 4 * time.Second

// StatusMenu is the set of user-initiated changes the model can trigger.
type StatusMenu interface {
	ChangeStatus(ctx context.Context, statusType models.StatusType) error
	SetCustomMessage(ctx context.Context, icon *string, message string, clearAt *time.Time) error
	ClearCustomMessage(ctx context.Context) error
}

// Activity receives user activity seen by the terminal.
type Activity interface {
	Move()
}

// Model is the Bubble Tea model for the status menu.
type Model struct {
	ctx      context.Context
	menu     StatusMenu
	activity Activity
	updates  <-chan models.PresenceStatus
	toasts   <-chan string

	status  models.PresenceStatus
	input   textinput.Model
	editing bool
	busy    bool
	toast   string
	toastID int
	width   int
}

type statusMsg models.PresenceStatus

type toastMsg string

type clearToastMsg struct{ id int }

// changeDoneMsg reports the end of a user-initiated change. A failure has already been
// shown through the notifier.
type changeDoneMsg struct{ err error }

// ModelOption is a functional option for configuring a Model.
type ModelOption func(*Model)

// WithUpdates feeds store snapshots into the model, starting from initial.
func WithUpdates(initial models.PresenceStatus, updates <-chan models.PresenceStatus) ModelOption {
	return func(m *Model) {
		m.status = initial
		m.updates = updates
	}
}

// WithToaster shows notifier messages as toasts.
func WithToaster(t *Toaster) ModelOption {
	return func(m *Model) {
		m.toasts = t.ch
	}
}

// NewModel creates the status menu model.
func NewModel(ctx context.Context, menu StatusMenu, activity Activity, opts ...ModelOption) Model {
	input := textinput.New()
	input.Placeholder = "📅 In a meeting"
	input.CharLimit = models.MaxMessageLength
	input.Width = 40
	input.Prompt = "› "

	m := Model{
		ctx:      ctx,
		menu:     menu,
		activity: activity,
		status:   models.PresenceStatus{Status: models.StatusOffline},
		input:    input,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForStatus(m.updates),
		waitForToast(m.toasts),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.activity.Move()
		return m, nil

	case tea.KeyMsg:
		m.activity.Move()
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateMenu(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case statusMsg:
		m.status = models.PresenceStatus(msg)
		return m, waitForStatus(m.updates)

	case toastMsg:
		m.toastID++
		m.toast = string(msg)
		id := m.toastID
		return m, tea.Batch(
			waitForToast(m.toasts),
			tea.Tick(toastDuration, func(time.Time) tea.Msg { return clearToastMsg{id: id} }),
		)

	case clearToastMsg:
		if msg.id == m.toastID {
			m.toast = ""
		}
		return m, nil

	case changeDoneMsg:
		m.busy = false
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "c":
		m.editing = true
		m.input.SetValue("")
		return m, m.input.Focus()
	case "x":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.clearMessage()
	}

	for _, p := range presence.Presets() {
		if p.Key == key {
			if m.busy {
				return m, nil
			}
			m.busy = true
			return m, m.changeStatus(p.Type)
		}
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		icon, text := SplitIcon(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.busy = true
		return m, m.setMessage(icon, text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) changeStatus(t models.StatusType) tea.Cmd {
	ctx, menu := m.ctx, m.menu
	return func() tea.Msg {
		return changeDoneMsg{err: menu.ChangeStatus(ctx, t)}
	}
}

func (m Model) setMessage(icon *string, text string) tea.Cmd {
	ctx, menu := m.ctx, m.menu
	return func() tea.Msg {
		return changeDoneMsg{err: menu.SetCustomMessage(ctx, icon, text, nil)}
	}
}

func (m Model) clearMessage() tea.Cmd {
	ctx, menu := m.ctx, m.menu
	return func() tea.Msg {
		return changeDoneMsg{err: menu.ClearCustomMessage(ctx)}
	}
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(StatusDot(m.status.Status))
	b.WriteString(" ")
	b.WriteString(labelStyle.Render(presence.Label(m.status.Status)))
	if msg := statusMessage(m.status); msg != "" {
		b.WriteString("  ")
		b.WriteString(messageStyle.Render(msg))
	}
	if m.busy {
		b.WriteString(dimStyle.Render("  saving…"))
	}
	b.WriteString("\n\n")

	if m.editing {
		b.WriteString("Custom message\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("enter save • esc cancel"))
	} else {
		var presets []string
		for _, p := range presence.Presets() {
			presets = append(presets, fmt.Sprintf("%s %s", keyStyle.Render("["+p.Key+"]"), p.Label))
		}
		b.WriteString(strings.Join(presets, "  "))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s Custom message  %s Clear message  %s Quit",
			keyStyle.Render("[c]"), keyStyle.Render("[x]"), keyStyle.Render("[q]")))
	}

	view := boxStyle.Render(b.String())
	if m.toast != "" {
		view += "\n" + toastStyle.Render(m.toast)
	}
	return view + "\n"
}

func statusMessage(status models.PresenceStatus) string {
	var parts []string
	if status.Icon != nil && *status.Icon != "" {
		parts = append(parts, *status.Icon)
	}
	if status.Message != nil && *status.Message != "" {
		parts = append(parts, *status.Message)
	}
	return strings.Join(parts, " ")
}

// SplitIcon separates a leading icon such as an emoji from the message text. A first word
// without letters or digits is taken as the icon.
func SplitIcon(value string) (*string, string) {
	value = strings.TrimSpace(value)
	first, rest, found := strings.Cut(value, " ")
	if !found || strings.IndexFunc(first, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0 {
		return nil, value
	}
	return &first, strings.TrimSpace(rest)
}

func waitForStatus(ch <-chan models.PresenceStatus) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		status, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(status)
	}
}

func waitForToast(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg(msg)
	}
}
