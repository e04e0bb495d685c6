package engine

import (
	"time"

	"github.com/pkg/errors"
)

// Snapshot is everything a renderer needs to draw one frame.
type Snapshot struct {
	Scene         SceneNode
	HasScene      bool
	Reveal        RevealState
	Panel         PanelState
	State         State
	AutoArmed     bool
	AutoRemaining time.Duration
	Settings      Settings
}

// Player routes input between the panel arbitrator and the session and
// publishes snapshots to subscribers.
type Player struct {
	session *Session
	panels  *Arbitrator
	subs    map[int]func(Snapshot)
	nextSub int
	unhook  func()
}

// NewPlayer builds a session over g with no panel open. The session stays
// idle until Start.
func NewPlayer(g *Graph, s *Scheduler, opts ...Option) (*Player, error) {
	sess, err := NewSession(g, s, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new player")
	}
	p := &Player{session: sess, subs: make(map[int]func(Snapshot))}
	p.panels = NewArbitrator(sess.ResetToStart)
	sess.OnChange = p.publish
	p.panels.OnChange = func(PanelState) { p.publish() }
	p.unhook = s.OnAdvance(p.tick)
	return p, nil
}

// tick publishes the moving auto-advance countdown.
func (p *Player) tick() {
	if p.session.State() == StateAutoArmed {
		p.publish()
	}
}

func (p *Player) Start() error { return p.session.Start() }

// Close cancels pending timers and detaches from the scheduler.
func (p *Player) Close() {
	p.session.Close()
	if p.unhook != nil {
		p.unhook()
		p.unhook = nil
	}
}

// ResetToStart restarts the playthrough without going through the menu.
func (p *Player) ResetToStart() error {
	p.panels.CloseAll()
	return p.session.ResetToStart()
}

func (p *Player) Session() *Session { return p.session }

func (p *Player) Panels() *Arbitrator { return p.panels }

// Subscribe registers fn for every change and returns a function that removes it.
// While auto-advance is armed fn also runs each time the clock moves, so the
// countdown in the snapshot stays current.
func (p *Player) Subscribe(fn func(Snapshot)) (cancel func()) {
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() { delete(p.subs, id) }
}

func (p *Player) Snapshot() Snapshot {
	scene, ok := p.session.Scene()
	remaining, armed := p.session.AutoRemaining()
	return Snapshot{
		Scene:         scene,
		HasScene:      ok,
		Reveal:        p.session.Reveal(),
		Panel:         p.panels.Current(),
		State:         p.session.State(),
		AutoArmed:     armed,
		AutoRemaining: remaining,
		Settings:      p.session.Settings(),
	}
}

func (p *Player) publish() {
	if len(p.subs) == 0 {
		return
	}
	snap := p.Snapshot()
	for _, fn := range p.subs {
		fn(snap)
	}
}

// Keyboard entry points. They reach the session only while no panel is open.

// AdvanceKeyPressed skips the reveal, or takes the only choice of a finished
// scene. Scenes with several choices never resolve from this key.
func (p *Player) AdvanceKeyPressed() bool {
	if p.panels.IsOpen() {
		return false
	}
	switch p.session.State() {
	case StateRevealing:
		return p.session.DialogueAreaActivated()
	case StateAwaitingChoice, StateAutoArmed:
		scene, _ := p.session.Scene()
		if !scene.AutoEligible() {
			return false
		}
		return p.session.SelectChoice(0) == nil
	default:
		return false
	}
}

// MenuKeyPressed toggles between no panel and the menu.
func (p *Player) MenuKeyPressed() { p.panels.ToggleMenu() }

// ChoiceKeyPressed selects choice i from a numeric key. Out of range keys are ignored.
func (p *Player) ChoiceKeyPressed(i int) bool {
	if p.panels.IsOpen() {
		return false
	}
	before := p.session.State()
	if err := p.session.SelectChoice(i); err != nil {
		return false
	}
	return before == StateAwaitingChoice || before == StateAutoArmed
}

// Pointer entry points.

func (p *Player) DialogueAreaActivated() bool { return p.session.DialogueAreaActivated() }

func (p *Player) SelectChoice(i int) error { return p.session.SelectChoice(i) }

// Panel entry points.

func (p *Player) Open(panel PanelState) { p.panels.Open(panel) }
func (p *Player) CloseAll()             { p.panels.CloseAll() }
func (p *Player) TriggerSave() bool     { return p.panels.TriggerSave() }
func (p *Player) TriggerLoad() bool     { return p.panels.TriggerLoad() }
func (p *Player) TriggerSettings() bool { return p.panels.TriggerSettings() }
func (p *Player) TriggerHistory() bool  { return p.panels.TriggerHistory() }

func (p *Player) TriggerReturnToStart() (bool, error) { return p.panels.TriggerReturnToStart() }

// Read-only views and settings.

func (p *Player) Backlog() []BacklogEntry { return p.session.Backlog() }
func (p *Player) Settings() Settings     { return p.session.Settings() }

func (p *Player) SetTextSpeed(t TextSpeed) { p.session.SetTextSpeed(t) }
func (p *Player) SetAutoAdvance(on bool)   { p.session.SetAutoAdvance(on) }
func (p *Player) SetBGMVolume(v int)       { p.session.SetBGMVolume(v) }
func (p *Player) SetSEVolume(v int)        { p.session.SetSEVolume(v) }
