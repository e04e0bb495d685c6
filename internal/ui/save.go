package ui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DaanHessen/novel-tui/internal/engine"
)

// settingsWriter runs saves one at a time. A save that was superseded while
// it waited for the lock is dropped, so the last change is the one stored.
type settingsWriter struct {
	save func(engine.Settings) error
	mu   sync.Mutex
	seq  atomic.Uint64
}

func newSettingsWriter(save func(engine.Settings) error) *settingsWriter {
	if save == nil {
		return nil
	}
	return &settingsWriter{save: save}
}

// cmd must be called from the UI loop, in the order changes happen.
func (w *settingsWriter) cmd(s engine.Settings) tea.Cmd {
	seq := w.seq.Add(1)
	return func() tea.Msg {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.seq.Load() != seq {
			return nil
		}
		return settingsSavedMsg{err: w.save(s)}
	}
}
