package ui

import (
	"context"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DaanHessen/novel-tui/internal/engine"
	"github.com/DaanHessen/novel-tui/internal/text"
)

// Options configures Run.
type Options struct {
	Title    string
	Theme    string
	Renderer text.Renderer
	// SaveSettings is called off the UI loop whenever the player changes a setting.
	SaveSettings func(engine.Settings) error
	// Logger, when set, receives one line per state, panel or scene change.
	Logger *log.Logger
}

// Run starts the player and blocks until the TUI exits.
func Run(ctx context.Context, player *engine.Player, sched *engine.Scheduler, opts Options) error {
	if opts.Logger != nil {
		cancel := logTransitions(player, opts.Logger)
		defer cancel()
	}
	if err := player.Start(); err != nil {
		return err
	}
	defer player.Close()
	m := newModel(player, sched, opts)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	return err
}

func logTransitions(p *engine.Player, l *log.Logger) (cancel func()) {
	var last engine.Snapshot
	return p.Subscribe(func(s engine.Snapshot) {
		if s.State != last.State || s.Panel != last.Panel || s.Scene.ID != last.Scene.ID {
			l.Printf("state=%s panel=%s scene=%s", s.State, s.Panel, s.Scene.ID)
		}
		last = s
	})
}
