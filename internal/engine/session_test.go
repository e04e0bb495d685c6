package engine

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func hiByeGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph("start", []SceneNode{
		{ID: "start", Text: "Hi", Background: gradient("dawn"), Choices: []Choice{{Text: "Go", Next: "end"}}},
		{ID: "end", Text: "Bye", Background: gradient("dusk")},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func newTestSession(t *testing.T, g *Graph, opts ...Option) (*Session, *Scheduler) {
	t.Helper()
	sched := NewScheduler()
	s, err := NewSession(g, sched, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, sched
}

func autoOn() Settings {
	st := DefaultSettings()
	st.AutoAdvance = true
	return st
}

func TestSessionHiByeScenario(t *testing.T) {
	s, sched := newTestSession(t, hiByeGraph(t))
	if s.State() != StateRevealing || s.Reveal().Text != "Hi" {
		t.Fatalf("after start: state=%s reveal=%+v", s.State(), s.Reveal())
	}
	sched.RunNext()
	sched.RunNext()
	if s.State() != StateAwaitingChoice {
		t.Fatalf("after 2 ticks: state=%s", s.State())
	}
	scene, _ := s.Scene()
	if len(scene.Choices) != 1 || scene.Choices[0].Text != "Go" {
		t.Fatalf("unexpected choices %+v", scene.Choices)
	}
	if err := s.SelectChoice(0); err != nil {
		t.Fatalf("SelectChoice: %v", err)
	}
	bl := s.Backlog()
	if len(bl) != 2 || bl[0].SceneID != "start" || bl[0].Text != "Hi" || bl[1].SceneID != "end" || bl[1].Text != "Bye" {
		t.Fatalf("backlog = %+v", bl)
	}
	rv := s.Reveal()
	if rv.Text != "Bye" || rv.Revealed != 0 || !rv.Active || s.State() != StateRevealing {
		t.Fatalf("after select: state=%s reveal=%+v", s.State(), rv)
	}
}

func TestSessionAutoAdvanceFiresAfterDelay(t *testing.T) {
	s, sched := newTestSession(t, hiByeGraph(t), WithSettings(autoOn()))
	s.DialogueAreaActivated()
	if s.State() != StateAutoArmed {
		t.Fatalf("expected auto_armed, got %s", s.State())
	}
	if d, ok := s.AutoRemaining(); !ok || d != AutoAdvanceDelay {
		t.Fatalf("remaining = %v %v", d, ok)
	}
	sched.Advance(AutoAdvanceDelay - time.Millisecond)
	if sc, _ := s.Scene(); sc.ID != "start" {
		t.Fatalf("advanced early to %s", sc.ID)
	}
	sched.Advance(time.Millisecond)
	if sc, _ := s.Scene(); sc.ID != "end" {
		t.Fatalf("expected auto advance to end, on %s", sc.ID)
	}
}

func TestSessionAutoAdvanceConditions(t *testing.T) {
	// auto-advance off
	s, sched := newTestSession(t, hiByeGraph(t))
	s.DialogueAreaActivated()
	sched.Advance(10 * time.Second)
	if s.State() != StateAwaitingChoice {
		t.Fatalf("auto off: state=%s", s.State())
	}

	// two choices
	g, err := NewGraph("fork", []SceneNode{
		{ID: "fork", Text: "Pick", Background: gradient("x"), Choices: []Choice{{Next: "fork"}, {Next: "fork"}}},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	s, sched = newTestSession(t, g, WithSettings(autoOn()))
	s.DialogueAreaActivated()
	sched.Advance(10 * time.Second)
	if s.State() != StateAwaitingChoice || len(s.Backlog()) != 1 {
		t.Fatalf("two choices: state=%s backlog=%d", s.State(), len(s.Backlog()))
	}

	// terminal scene never auto-advances
	s, sched = newTestSession(t, hiByeGraph(t), WithSettings(autoOn()))
	sched.Advance(AutoAdvanceDelay + time.Second)
	if sc, _ := s.Scene(); sc.ID != "end" {
		t.Fatalf("expected to reach end, on %s", sc.ID)
	}
	sched.Advance(10 * time.Second)
	if s.State() != StateAwaitingChoice || len(s.Backlog()) != 2 {
		t.Fatalf("terminal: state=%s backlog=%d", s.State(), len(s.Backlog()))
	}
}

func TestSessionAutoAdvanceNotArmedWhileRevealing(t *testing.T) {
	g, err := NewGraph("long", []SceneNode{
		{ID: "long", Text: "A rather long line that takes a while", Background: gradient("x"), Choices: []Choice{{Next: "long"}}},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	s, sched := newTestSession(t, g, WithSettings(autoOn()))
	sched.Advance(500 * time.Millisecond)
	if s.State() != StateRevealing {
		t.Fatalf("state=%s", s.State())
	}
	if _, ok := s.AutoRemaining(); ok {
		t.Fatalf("auto timer running before the reveal completed")
	}
}

func TestSessionDisablingAutoCancelsTimer(t *testing.T) {
	s, sched := newTestSession(t, hiByeGraph(t), WithSettings(autoOn()))
	s.DialogueAreaActivated()
	sched.Advance(time.Second)
	s.SetAutoAdvance(false)
	if s.State() != StateAwaitingChoice {
		t.Fatalf("expected disarm to awaiting_choice, got %s", s.State())
	}
	sched.Advance(10 * time.Second)
	if sc, _ := s.Scene(); sc.ID != "start" {
		t.Fatalf("cancelled auto timer still advanced to %s", sc.ID)
	}
	s.SetAutoAdvance(true)
	if s.State() != StateAutoArmed {
		t.Fatalf("re-enabling on a finished single-choice scene should arm, got %s", s.State())
	}
}

func TestSessionManualSelectCancelsAutoTimer(t *testing.T) {
	g, err := NewGraph("a", []SceneNode{
		{ID: "a", Text: "", Background: gradient("x"), Choices: []Choice{{Next: "b"}}},
		{ID: "b", Text: "", Background: gradient("x"), Choices: []Choice{{Next: "c"}, {Next: "a"}}},
		{ID: "c", Text: "", Background: gradient("x")},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	s, sched := newTestSession(t, g, WithSettings(autoOn()))
	if s.State() != StateAutoArmed {
		t.Fatalf("empty single-choice scene should arm immediately, got %s", s.State())
	}
	sched.Advance(time.Second)
	if err := s.SelectChoice(0); err != nil {
		t.Fatalf("SelectChoice: %v", err)
	}
	sched.Advance(10 * time.Second)
	if sc, _ := s.Scene(); sc.ID != "b" {
		t.Fatalf("stale auto timer moved the session to %s", sc.ID)
	}
	if n := len(s.Backlog()); n != 2 {
		t.Fatalf("backlog len %d", n)
	}
}

func TestSessionBacklogAppendsRevisits(t *testing.T) {
	g, err := NewGraph("A", []SceneNode{
		{ID: "A", Text: "a", Background: gradient("x"), Choices: []Choice{{Next: "B"}, {Next: "C"}}},
		{ID: "B", Text: "b", Background: gradient("x"), Choices: []Choice{{Next: "A"}}},
		{ID: "C", Text: "c", Background: gradient("x")},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	s, _ := newTestSession(t, g)
	for _, pick := range []int{0, 0, 1} {
		s.DialogueAreaActivated()
		if err := s.SelectChoice(pick); err != nil {
			t.Fatalf("SelectChoice(%d): %v", pick, err)
		}
	}
	bl := s.Backlog()
	want := []string{"A", "B", "A", "C"}
	if len(bl) != len(want) {
		t.Fatalf("backlog len %d, want %d", len(bl), len(want))
	}
	for i, id := range want {
		if bl[i].SceneID != id {
			t.Fatalf("backlog[%d]=%s want %s", i, bl[i].SceneID, id)
		}
	}
}

func TestSessionInvalidChoiceLeavesStateUntouched(t *testing.T) {
	s, _ := newTestSession(t, hiByeGraph(t))
	s.DialogueAreaActivated()
	for _, i := range []int{-1, 1, 7} {
		if err := s.SelectChoice(i); !errors.Is(err, ErrInvalidChoiceIndex) {
			t.Fatalf("SelectChoice(%d) err=%v", i, err)
		}
	}
	if s.State() != StateAwaitingChoice || len(s.Backlog()) != 1 {
		t.Fatalf("state=%s backlog=%d", s.State(), len(s.Backlog()))
	}
}

func TestSessionRedundantOperationsAreNoops(t *testing.T) {
	s, _ := newTestSession(t, hiByeGraph(t))
	if err := s.SelectChoice(0); err != nil {
		t.Fatalf("select while revealing should be silent, got %v", err)
	}
	if sc, _ := s.Scene(); sc.ID != "start" {
		t.Fatalf("select while revealing moved to %s", sc.ID)
	}
	s.DialogueAreaActivated()
	if s.DialogueAreaActivated() {
		t.Fatalf("second activation should do nothing")
	}
	if s.State() != StateAwaitingChoice {
		t.Fatalf("state=%s", s.State())
	}
}

func TestSessionResetToStartClearsBacklog(t *testing.T) {
	s, sched := newTestSession(t, hiByeGraph(t), WithSettings(autoOn()))
	s.DialogueAreaActivated()
	if err := s.SelectChoice(0); err != nil {
		t.Fatalf("SelectChoice: %v", err)
	}
	sched.RunNext()
	if err := s.ResetToStart(); err != nil {
		t.Fatalf("ResetToStart: %v", err)
	}
	bl := s.Backlog()
	if len(bl) != 1 || bl[0].SceneID != "start" {
		t.Fatalf("backlog after reset = %+v", bl)
	}
	if s.State() != StateRevealing || s.Reveal().Revealed != 0 {
		t.Fatalf("after reset: state=%s reveal=%+v", s.State(), s.Reveal())
	}
	if sched.Len() != 1 {
		t.Fatalf("expected only the new reveal tick pending, got %d", sched.Len())
	}
}

func TestSessionTextSpeedCarriesToNextScene(t *testing.T) {
	s, sched := newTestSession(t, hiByeGraph(t))
	s.SetTextSpeed(TextSpeedSlow)
	s.DialogueAreaActivated()
	if err := s.SelectChoice(0); err != nil {
		t.Fatalf("SelectChoice: %v", err)
	}
	sched.Advance(DelaySlow - time.Millisecond)
	if s.Reveal().Revealed != 0 {
		t.Fatalf("slow speed revealed early")
	}
	sched.Advance(time.Millisecond)
	if s.Reveal().Revealed != 1 {
		t.Fatalf("slow speed did not reveal on time")
	}
}

func TestSessionVolumeClamp(t *testing.T) {
	s, _ := newTestSession(t, hiByeGraph(t))
	s.SetBGMVolume(140)
	s.SetSEVolume(-3)
	st := s.Settings()
	if st.BGMVolume != 100 || st.SEVolume != 0 {
		t.Fatalf("volumes not clamped: %+v", st)
	}
}
