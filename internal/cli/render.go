// Package cli renders task board updates as styled terminal lines. It is
// a board observer; the engine never talks to it directly.
package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/example/getresyd/internal/board"
)

var (
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

type Renderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// TaskUpdated is the board observer hook: one line per mutation.
func (r *Renderer) TaskUpdated(t board.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, renderTask(t))
}

func renderTask(t board.Task) string {
	switch t.Status {
	case board.StatusPending:
		return pendingStyle.Render("- " + t.Name)
	case board.StatusInProgress:
		return activeStyle.Render("> " + t.Name)
	case board.StatusMonitoring:
		line := activeStyle.Render("~ " + t.Name)
		if t.LastCheck != "" {
			line += dimStyle.Render("  last checked " + t.LastCheck)
		}
		return line
	case board.StatusCompleted:
		line := doneStyle.Render("+ " + t.Name)
		if t.VenueName != "" {
			line += dimStyle.Render(fmt.Sprintf("  %s, checked out at %s, reserved for %s",
				t.VenueName, t.CheckoutTime, t.ReservationTime))
		}
		return line
	case board.StatusError:
		line := errorStyle.Render("x " + t.Name)
		if t.Err != "" {
			line += errorStyle.Render(": " + t.Err)
		}
		return line
	}
	return t.Name
}
