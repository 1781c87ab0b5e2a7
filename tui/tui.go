package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Toaster is a presence.Notifier that queues messages for display as toasts.
type Toaster struct {
	ch chan string
}

func NewToaster() *Toaster {
	return &Toaster{ch: make(chan string, 4)}
}

// Error queues msg without blocking; messages are dropped while the queue is full.
func (t *Toaster) Error(msg string) {
	select {
	case t.ch <- msg:
	default:
	}
}

// Run starts the status menu and blocks until the user quits or ctx is done.
func Run(ctx context.Context, model Model) error {
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
