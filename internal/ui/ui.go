package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DaanHessen/novel-tui/internal/engine"
	"github.com/DaanHessen/novel-tui/internal/text"
)

const (
	frameInterval = 16 * time.Millisecond
	// Longer gaps (suspend, slow terminal) are clamped so a single frame
	// cannot fast-forward through several scenes.
	maxFrameStep = 250 * time.Millisecond

	headerHeight   = 1
	footerHeight   = 1
	dialogueHeight = 10
	innerLines     = dialogueHeight - 2
	maxChoices     = innerLines - 2

	saveSlots  = 6
	volumeStep = 5
)

var characterArt = []string{
	"  .---.  ",
	" ( o o ) ",
	"  \\ - /  ",
	" /|   |\\ ",
	"  |___|  ",
	"  /   \\  ",
}

type frameMsg time.Time

type settingsSavedMsg struct{ err error }

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

type model struct {
	player   *engine.Player
	sched    *engine.Scheduler
	renderer text.Renderer
	saver    *settingsWriter
	title    string
	theme    string

	snap   engine.Snapshot
	last   time.Time
	width  int
	height int

	// panels
	history viewport.Model
	slot    int
	status  string
}

func newModel(p *engine.Player, s *engine.Scheduler, opts Options) model {
	r := opts.Renderer
	if r == nil {
		r = text.NewPlainRenderer()
	}
	m := model{
		player:   p,
		sched:    s,
		renderer: r,
		saver:    newSettingsWriter(opts.SaveSettings),
		title:    opts.Title,
		theme:    opts.Theme,
		history:  viewport.New(80, 10),
	}
	if _, ok := palettes[m.theme]; !ok {
		m.theme = "catppuccin"
	}
	m.snap = p.Snapshot()
	return m
}

func (m model) Init() tea.Cmd { return frame() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.Width = max(msg.Width-8, 10)
		m.history.Height = max(m.stageHeight()-4, 3)
		if m.snap.Panel == engine.PanelHistory {
			m.refreshHistory()
		}
		return m, nil
	case frameMsg:
		t := time.Time(msg)
		if !m.last.IsZero() {
			step := t.Sub(m.last)
			if step > maxFrameStep {
				step = maxFrameStep
			}
			if step > 0 {
				m.sched.Advance(step)
			}
		}
		m.last = t
		cmd := m.sync()
		return m, tea.Batch(cmd, frame())
	case settingsSavedMsg:
		if msg.err != nil {
			m.status = "settings not saved: " + msg.err.Error()
		}
		return m, nil
	case tea.MouseMsg:
		m.handleMouse(msg)
		cmd := m.sync()
		return m, cmd
	case tea.KeyMsg:
		k := msg.String()
		if k == "ctrl+c" {
			return m, tea.Quit
		}
		if k == "q" && (m.snap.Panel == engine.PanelNone || m.snap.Panel == engine.PanelMenu) {
			return m, tea.Quit
		}
		pc, handled := m.handlePanelKey(msg)
		if !handled {
			m.handlePlayKey(k)
		}
		cmd := m.sync()
		return m, tea.Batch(pc, cmd)
	}
	return m, nil
}

// sync pulls a fresh snapshot and reacts to panel and settings changes.
func (m *model) sync() tea.Cmd {
	prev := m.snap
	m.snap = m.player.Snapshot()
	if m.snap.Panel != prev.Panel {
		m.status = ""
		if m.snap.Panel == engine.PanelHistory {
			m.refreshHistory()
		}
	}
	if m.saver != nil && m.snap.Settings != prev.Settings {
		return m.saver.cmd(m.snap.Settings)
	}
	return nil
}

// handlePlayKey forwards the playback keys. The player ignores them while a
// panel is open, except the menu key.
func (m *model) handlePlayKey(k string) {
	switch k {
	case "enter", " ":
		if m.finished() {
			if err := m.player.ResetToStart(); err != nil {
				m.status = err.Error()
			}
			return
		}
		m.player.AdvanceKeyPressed()
	case "esc", "m":
		m.player.MenuKeyPressed()
	default:
		if n, err := strconv.Atoi(k); err == nil && n >= 1 && n <= 9 {
			m.player.ChoiceKeyPressed(n - 1)
		}
	}
}

// finished reports whether the story has reached an ending and shown all of it.
func (m model) finished() bool {
	return m.snap.Panel == engine.PanelNone && m.snap.HasScene && m.snap.Scene.Terminal() &&
		m.snap.State == engine.StateAwaitingChoice
}

// handlePanelKey handles keys that mean something inside the open panel.
func (m *model) handlePanelKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	k := msg.String()
	switch m.snap.Panel {
	case engine.PanelMenu:
		switch k {
		case "s":
			m.player.TriggerSave()
		case "l":
			m.player.TriggerLoad()
		case "o":
			m.player.TriggerSettings()
		case "h":
			m.player.TriggerHistory()
		case "r":
			if _, err := m.player.TriggerReturnToStart(); err != nil {
				m.status = err.Error()
			}
		default:
			return nil, false
		}
		return nil, true
	case engine.PanelSettings:
		st := m.player.Settings()
		switch k {
		case "t":
			m.player.SetTextSpeed(nextSpeed(st.TextSpeed))
		case "a":
			m.player.SetAutoAdvance(!st.AutoAdvance)
		case "-":
			m.player.SetBGMVolume(st.BGMVolume - volumeStep)
		case "=", "+":
			m.player.SetBGMVolume(st.BGMVolume + volumeStep)
		case "[":
			m.player.SetSEVolume(st.SEVolume - volumeStep)
		case "]":
			m.player.SetSEVolume(st.SEVolume + volumeStep)
		case "c":
			m.theme = nextThemeName(m.theme, 1)
		default:
			return nil, false
		}
		return nil, true
	case engine.PanelHistory:
		switch k {
		case "up", "down", "k", "j", "pgup", "pgdown", "u", "d":
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return cmd, true
		}
		return nil, false
	case engine.PanelSave, engine.PanelLoad:
		switch k {
		case "up", "k":
			if m.slot > 0 {
				m.slot--
			}
		case "down", "j":
			if m.slot < saveSlots-1 {
				m.slot++
			}
		case "enter":
			m.status = fmt.Sprintf("slot %d: saving is not available", m.slot+1)
		default:
			return nil, false
		}
		return nil, true
	}
	return nil, false
}

func (m *model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	top := headerHeight + m.stageHeight()
	if msg.Y < top || msg.Y >= top+dialogueHeight {
		return
	}
	if i, ok := m.choiceAt(msg.Y); ok {
		if err := m.player.SelectChoice(i); err != nil {
			m.status = err.Error()
		}
		return
	}
	m.player.DialogueAreaActivated()
}

// choiceAt maps a screen row to the choice drawn on it.
func (m model) choiceAt(y int) (int, bool) {
	choices := m.visibleChoices()
	if len(choices) == 0 {
		return 0, false
	}
	first := headerHeight + m.stageHeight() + 1 + innerLines - len(choices)
	i := y - first
	if i < 0 || i >= len(choices) {
		return 0, false
	}
	return i, true
}

// visibleChoices are only drawn once the text has finished revealing.
func (m model) visibleChoices() []engine.Choice {
	switch m.snap.State {
	case engine.StateAwaitingChoice, engine.StateAutoArmed:
	default:
		return nil
	}
	c := m.snap.Scene.Choices
	if len(c) > maxChoices {
		c = c[:maxChoices]
	}
	return c
}

func (m *model) refreshHistory() {
	out, err := m.renderer.Backlog(m.player.Backlog(), m.history.Width)
	if err != nil {
		out = err.Error()
	}
	m.history.SetContent(out)
	m.history.GotoBottom()
}

func (m model) size() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w = 100
	}
	if h <= 0 {
		h = 30
	}
	return w, h
}

func (m model) stageHeight() int {
	_, h := m.size()
	return max(h-headerHeight-footerHeight-dialogueHeight, 1)
}

func (m model) View() string {
	w, _ := m.size()
	p := paletteFor(m.theme)
	stage := m.renderStage(w, m.stageHeight())
	if m.snap.Panel != engine.PanelNone {
		stage = m.renderPanel(w, m.stageHeight(), p)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(w, p),
		stage,
		m.renderDialogue(w, p),
		m.renderFooter(w, p),
	)
}

func (m model) renderHeader(w int, p palette) string {
	left := strings.ToUpper(m.title)
	if m.snap.HasScene {
		left += " • " + m.snap.Scene.ID
	}
	right := string(m.snap.Settings.TextSpeed)
	if m.snap.Settings.AutoAdvance {
		right += " • auto"
	}
	gap := max(w-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return lipgloss.NewStyle().Bold(true).Foreground(p.Accent).MaxWidth(w).Render(left + strings.Repeat(" ", gap) + right)
}

// renderStage draws the backdrop as horizontal bands of the scene palette.
func (m model) renderStage(w, h int) string {
	bg := m.snap.Scene.Background
	p := stagePalette(bg, m.theme)
	ramp := p.ramp()
	var overlay []string
	if m.snap.Scene.ShowCharacter {
		overlay = append(overlay, characterArt...)
	}
	if bg.IsImage() {
		overlay = append(overlay, "", "[ image: "+bg.Image+" ]")
	}
	start := (h - len(overlay)) / 2
	rows := make([]string, h)
	for y := 0; y < h; y++ {
		content := ""
		if i := y - start; i >= 0 && i < len(overlay) {
			content = overlay[i]
		}
		rows[y] = lipgloss.NewStyle().
			Background(ramp[y*len(ramp)/h]).
			Foreground(p.Muted).
			Width(w).MaxWidth(w).
			Align(lipgloss.Center).
			Render(content)
	}
	return strings.Join(rows, "\n")
}

func (m model) renderDialogue(w int, p palette) string {
	inner := max(w-4, 10)
	lines := make([]string, 0, innerLines)
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(p.AccentAlt).Render(m.snap.Scene.Speaker))

	choices := m.visibleChoices()
	room := innerLines - 1 - len(choices)
	body := strings.Split(text.Wrap(m.snap.Reveal.Visible(), inner), "\n")
	if len(body) > room {
		body = body[len(body)-room:]
	}
	lines = append(lines, body...)
	for len(lines) < innerLines-len(choices) {
		lines = append(lines, "")
	}
	for i, c := range choices {
		label := fmt.Sprintf("[%d] %s", i+1, c.Text)
		lines = append(lines, lipgloss.NewStyle().Foreground(p.Accent).MaxWidth(inner).Render(label))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Foreground(p.Text).
		Padding(0, 1).
		Width(w - 2).
		Render(strings.Join(lines, "\n"))
}

func (m model) renderFooter(w int, p palette) string {
	var hint string
	switch m.snap.Panel {
	case engine.PanelNone:
		hint = "[enter] advance  [1-9] choose  [esc] menu  [q] quit"
		if m.finished() {
			hint = "[enter] start over  [esc] menu  [q] quit"
		}
	case engine.PanelMenu:
		hint = "[s] save  [l] load  [o] settings  [h] history  [r] restart  [esc] close"
	case engine.PanelSettings:
		hint = "[t] speed  [a] auto  [-/=] music  [[/]] effects  [c] colours  [esc] close"
	case engine.PanelHistory:
		hint = "[↑/↓] scroll  [esc] close"
	default:
		hint = "[↑/↓] slot  [enter] select  [esc] close"
	}
	var right []string
	if m.snap.AutoArmed {
		right = append(right, fmt.Sprintf("auto %.1fs", m.snap.AutoRemaining.Seconds()))
	}
	if m.snap.HasScene && m.snap.Scene.Terminal() && m.snap.Reveal.Complete() {
		right = append(right, "the end")
	}
	if m.status != "" {
		right = append(right, m.status)
	}
	r := strings.Join(right, "  ")
	gap := max(w-lipgloss.Width(hint)-lipgloss.Width(r), 1)
	return lipgloss.NewStyle().Foreground(p.Muted).MaxWidth(w).Render(hint+strings.Repeat(" ", gap)) +
		lipgloss.NewStyle().Foreground(p.Warning).Render(r)
}

func (m model) renderPanel(w, h int, p palette) string {
	var title, body string
	switch m.snap.Panel {
	case engine.PanelMenu:
		title = "Menu"
		body = "[s] Save\n[l] Load\n[o] Settings\n[h] History\n[r] Return to start\n\n[esc] Close  [q] Quit"
	case engine.PanelSettings:
		title = "Settings"
		body = m.renderSettings(p)
	case engine.PanelHistory:
		title = "History"
		body = m.history.View()
	case engine.PanelSave:
		title = "Save"
		body = m.renderSlots(p)
	case engine.PanelLoad:
		title = "Load"
		body = m.renderSlots(p)
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(p.Accent).Render(title)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Foreground(p.Text).
		Padding(0, 2).
		Render(head + "\n\n" + body)
	placed := lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, box, lipgloss.WithWhitespaceBackground(p.Background))
	return lipgloss.NewStyle().MaxHeight(h).MaxWidth(w).Render(placed)
}

func (m model) renderSettings(p palette) string {
	st := m.snap.Settings
	auto := lipgloss.NewStyle().Foreground(p.Muted).Render("off")
	if st.AutoAdvance {
		auto = lipgloss.NewStyle().Foreground(p.Success).Render("on")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Text speed    %s\n", st.TextSpeed)
	fmt.Fprintf(&b, "Auto advance  %s\n", auto)
	fmt.Fprintf(&b, "Music         %s %3d\n", volumeBar(st.BGMVolume, p), st.BGMVolume)
	fmt.Fprintf(&b, "Effects       %s %3d\n", volumeBar(st.SEVolume, p), st.SEVolume)
	fmt.Fprintf(&b, "Colours       %s", m.theme)
	return b.String()
}

func (m model) renderSlots(p palette) string {
	var b strings.Builder
	for i := 0; i < saveSlots; i++ {
		line := fmt.Sprintf("Slot %d   empty", i+1)
		if i == m.slot {
			line = lipgloss.NewStyle().Foreground(p.Accent).Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		if i < saveSlots-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func volumeBar(v int, p palette) string {
	filled := v / 10
	return lipgloss.NewStyle().Foreground(p.BarFill).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(p.BarEmpty).Render(strings.Repeat("░", 10-filled))
}

func nextSpeed(cur engine.TextSpeed) engine.TextSpeed {
	for i, s := range engine.AllTextSpeeds {
		if s == cur {
			return engine.AllTextSpeeds[(i+1)%len(engine.AllTextSpeeds)]
		}
	}
	return engine.TextSpeedNormal
}
