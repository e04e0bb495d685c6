package engine

import (
	"io"
	"log"
	"time"

	"github.com/pkg/errors"
)

// AutoAdvanceDelay is how long a finished single-choice scene waits before
// taking its choice when auto-advance is on.
const AutoAdvanceDelay = 3 * time.Second

// Option configures a Session or Player.
type Option func(*sessionConfig)

type sessionConfig struct {
	logger   *log.Logger
	settings Settings
}

func WithLogger(l *log.Logger) Option { return func(c *sessionConfig) { c.logger = l } }
func WithSettings(s Settings) Option  { return func(c *sessionConfig) { c.settings = s.Normalize() } }

// Session walks a Graph: it owns the current scene, the backlog, the
// auto-advance timer and the Revealer for the current text.
type Session struct {
	graph    *Graph
	sched    *Scheduler
	rev      *Revealer
	settings Settings
	logger   *log.Logger

	state   State
	current int
	backlog []BacklogEntry
	auto    Handle

	// OnChange runs after any observable change.
	OnChange func()
}

// NewSession prepares a session in the idle state. Call Start to enter the
// first scene.
func NewSession(g *Graph, s *Scheduler, opts ...Option) (*Session, error) {
	if g == nil {
		return nil, &ConfigError{Choice: -1, Reason: "nil graph"}
	}
	if s == nil {
		return nil, errors.New("nil scheduler")
	}
	cfg := sessionConfig{settings: DefaultSettings()}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.New(io.Discard, "", 0)
	}
	sess := &Session{
		graph:    g,
		sched:    s,
		rev:      NewRevealer(s),
		settings: cfg.settings,
		logger:   cfg.logger,
		state:    StateIdle,
		current:  -1,
	}
	sess.rev.SetBaseDelay(sess.settings.BaseDelay())
	sess.rev.OnTick = func(RevealState) { sess.changed() }
	sess.rev.OnComplete = sess.revealComplete
	return sess, nil
}

// Start enters the start scene. From any state other than idle it behaves
// like ResetToStart.
func (s *Session) Start() error {
	if s.state != StateIdle {
		return s.ResetToStart()
	}
	return s.loadScene(s.graph.Start())
}

func (s *Session) loadScene(id string) error {
	i, ok := s.graph.index[id]
	if !ok {
		return errors.Wrap(&ConfigError{SceneID: id, Choice: -1, Reason: "scene not found"}, "load scene")
	}
	s.enter(i)
	return nil
}

func (s *Session) enter(i int) {
	s.cancelAuto()
	node := s.graph.nodes[i]
	s.current = i
	s.backlog = append(s.backlog, BacklogEntry{SceneID: node.ID, Speaker: node.Speaker, Text: node.Text})
	s.state = StateRevealing
	s.logger.Printf("scene %s entered (backlog %d)", node.ID, len(s.backlog))
	s.rev.Start(node.Text, s.settings.BaseDelay())
}

func (s *Session) revealComplete() {
	if s.state != StateRevealing {
		return
	}
	node := s.graph.nodes[s.current]
	if node.AutoEligible() && s.settings.AutoAdvance {
		s.arm()
	} else {
		s.state = StateAwaitingChoice
	}
	s.changed()
}

func (s *Session) arm() {
	s.cancelAuto()
	s.state = StateAutoArmed
	s.auto = s.sched.Schedule(AutoAdvanceDelay, s.autoFire)
	s.logger.Printf("auto-advance armed on %s", s.graph.nodes[s.current].ID)
}

func (s *Session) autoFire() {
	s.auto = 0
	if s.state != StateAutoArmed {
		return
	}
	if err := s.SelectChoice(0); err != nil {
		s.logger.Printf("auto-advance: %v", err)
	}
}

func (s *Session) cancelAuto() {
	if s.auto != 0 {
		s.sched.Cancel(s.auto)
		s.auto = 0
	}
}

// DialogueAreaActivated finishes the reveal early. It reports whether it did
// anything; outside the revealing state it is a no-op.
func (s *Session) DialogueAreaActivated() bool {
	if s.state != StateRevealing {
		return false
	}
	return s.rev.SkipToEnd()
}

// SelectChoice follows choice i of the current scene. Outside the awaiting and
// auto-armed states it does nothing. An index out of range is rejected with
// ErrInvalidChoiceIndex and leaves the session untouched.
func (s *Session) SelectChoice(i int) error {
	if s.state != StateAwaitingChoice && s.state != StateAutoArmed {
		return nil
	}
	target, ok := s.graph.follow(s.current, i)
	if !ok {
		return errors.Wrapf(ErrInvalidChoiceIndex, "choice %d of %d on %s", i, len(s.graph.edges[s.current]), s.graph.nodes[s.current].ID)
	}
	s.logger.Printf("choice %d taken on %s", i, s.graph.nodes[s.current].ID)
	s.enter(target)
	return nil
}

// ResetToStart cancels all timers, clears the backlog and enters the start scene.
func (s *Session) ResetToStart() error {
	s.cancelAuto()
	s.rev.Stop()
	s.backlog = nil
	s.state = StateIdle
	return s.loadScene(s.graph.Start())
}

// Close cancels every pending timer. The session stays readable.
func (s *Session) Close() {
	s.cancelAuto()
	s.rev.Stop()
	if s.state == StateAutoArmed {
		s.state = StateAwaitingChoice
	}
}

// SetTextSpeed affects pauses scheduled from now on, in this scene and later ones.
func (s *Session) SetTextSpeed(t TextSpeed) {
	s.settings.TextSpeed = ParseTextSpeed(string(t))
	s.rev.SetBaseDelay(s.settings.BaseDelay())
	s.changed()
}

// SetAutoAdvance toggles auto-advance. Turning it on while a finished
// single-choice scene waits arms the timer; turning it off disarms it.
func (s *Session) SetAutoAdvance(on bool) {
	s.settings.AutoAdvance = on
	switch {
	case on && s.state == StateAwaitingChoice && s.graph.nodes[s.current].AutoEligible():
		s.arm()
	case !on && s.state == StateAutoArmed:
		s.cancelAuto()
		s.state = StateAwaitingChoice
	}
	s.changed()
}

func (s *Session) SetBGMVolume(v int) {
	s.settings.BGMVolume = clampVolume(v)
	s.changed()
}

func (s *Session) SetSEVolume(v int) {
	s.settings.SEVolume = clampVolume(v)
	s.changed()
}

func (s *Session) Settings() Settings { return s.settings }

func (s *Session) State() State { return s.state }

// Scene returns the current scene; false while idle.
func (s *Session) Scene() (SceneNode, bool) {
	if s.current < 0 {
		return SceneNode{}, false
	}
	return s.graph.node(s.current), true
}

func (s *Session) Reveal() RevealState { return s.rev.State() }

// Backlog returns a copy of the entries for this playthrough.
func (s *Session) Backlog() []BacklogEntry {
	return append([]BacklogEntry(nil), s.backlog...)
}

// AutoRemaining is the countdown of the armed auto-advance timer.
func (s *Session) AutoRemaining() (time.Duration, bool) {
	if s.state != StateAutoArmed {
		return 0, false
	}
	return s.sched.Remaining(s.auto)
}

func (s *Session) Graph() *Graph { return s.graph }

func (s *Session) changed() {
	if s.OnChange != nil {
		s.OnChange()
	}
}
