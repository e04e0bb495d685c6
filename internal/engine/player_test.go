package engine

import (
	"testing"
	"time"
)

func newTestPlayer(t *testing.T, g *Graph, opts ...Option) (*Player, *Scheduler) {
	t.Helper()
	sched := NewScheduler()
	p, err := NewPlayer(g, sched, opts...)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return p, sched
}

func TestPanelSingleActive(t *testing.T) {
	p, _ := newTestPlayer(t, hiByeGraph(t))
	p.Open(PanelHistory)
	p.Open(PanelSettings)
	if got := p.Snapshot().Panel; got != PanelSettings {
		t.Fatalf("panel = %s", got)
	}
	for i := 0; i < 5; i++ {
		if p.AdvanceKeyPressed() {
			t.Fatalf("advance key reached the session with a panel open")
		}
	}
	if p.Session().State() != StateRevealing || p.Session().Reveal().Revealed != 0 {
		t.Fatalf("session changed behind panel: %s %+v", p.Session().State(), p.Session().Reveal())
	}
	p.CloseAll()
	if !p.AdvanceKeyPressed() {
		t.Fatalf("advance key ignored after closing panels")
	}
	if p.Session().State() != StateAwaitingChoice {
		t.Fatalf("expected skip to finish reveal, state=%s", p.Session().State())
	}
}

func TestAdvanceKeyTakesOnlyChoice(t *testing.T) {
	p, _ := newTestPlayer(t, hiByeGraph(t))
	p.AdvanceKeyPressed() // skip
	p.AdvanceKeyPressed() // select
	if sc := p.Snapshot().Scene; sc.ID != "end" {
		t.Fatalf("expected end, got %s", sc.ID)
	}
}

func TestAdvanceKeyNeverResolvesMultiChoice(t *testing.T) {
	p, _ := newTestPlayer(t, makeTestGraph(t))
	p.AdvanceKeyPressed()
	if p.AdvanceKeyPressed() {
		t.Fatalf("advance key resolved a two-choice scene")
	}
	if sc := p.Snapshot().Scene; sc.ID != "start" {
		t.Fatalf("moved to %s", sc.ID)
	}
	if !p.ChoiceKeyPressed(1) {
		t.Fatalf("numeric key should pick choice 2")
	}
	if sc := p.Snapshot().Scene; sc.ID != "b" {
		t.Fatalf("expected b, got %s", sc.ID)
	}
}

func TestAdvanceKeyCancelsArmedTimer(t *testing.T) {
	p, sched := newTestPlayer(t, hiByeGraph(t), WithSettings(autoOn()))
	p.AdvanceKeyPressed()
	if !p.Snapshot().AutoArmed {
		t.Fatalf("expected auto armed")
	}
	p.AdvanceKeyPressed()
	sched.Advance(10 * time.Second)
	if n := len(p.Backlog()); n != 2 {
		t.Fatalf("backlog len %d, want 2", n)
	}
}

func TestMenuKeyToggles(t *testing.T) {
	p, _ := newTestPlayer(t, hiByeGraph(t))
	p.MenuKeyPressed()
	if p.Snapshot().Panel != PanelMenu {
		t.Fatalf("menu key did not open menu")
	}
	p.MenuKeyPressed()
	if p.Snapshot().Panel != PanelNone {
		t.Fatalf("menu key did not close menu")
	}
	p.Open(PanelHistory)
	p.MenuKeyPressed()
	if p.Snapshot().Panel != PanelNone {
		t.Fatalf("menu key should close any open panel")
	}
}

func TestMenuTriggers(t *testing.T) {
	p, _ := newTestPlayer(t, hiByeGraph(t))
	if p.TriggerSave() {
		t.Fatalf("trigger outside menu should be ignored")
	}
	triggers := []struct {
		fire func() bool
		want PanelState
	}{
		{p.TriggerSave, PanelSave},
		{p.TriggerLoad, PanelLoad},
		{p.TriggerSettings, PanelSettings},
		{p.TriggerHistory, PanelHistory},
	}
	for _, tr := range triggers {
		p.Open(PanelMenu)
		if !tr.fire() || p.Snapshot().Panel != tr.want {
			t.Fatalf("trigger for %s left panel %s", tr.want, p.Snapshot().Panel)
		}
	}
}

func TestReturnToStartFromMenu(t *testing.T) {
	p, _ := newTestPlayer(t, hiByeGraph(t))
	p.AdvanceKeyPressed()
	p.AdvanceKeyPressed()
	p.Open(PanelMenu)
	ok, err := p.TriggerReturnToStart()
	if !ok || err != nil {
		t.Fatalf("TriggerReturnToStart = %v, %v", ok, err)
	}
	snap := p.Snapshot()
	if snap.Panel != PanelNone || snap.Scene.ID != "start" || len(p.Backlog()) != 1 {
		t.Fatalf("after return: panel=%s scene=%s backlog=%d", snap.Panel, snap.Scene.ID, len(p.Backlog()))
	}
}

func TestSubscribeSeesChanges(t *testing.T) {
	sched := NewScheduler()
	p, err := NewPlayer(hiByeGraph(t), sched)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	var snaps []Snapshot
	cancel := p.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sched.RunNext()
	p.MenuKeyPressed()
	if len(snaps) < 3 {
		t.Fatalf("expected at least 3 snapshots, got %d", len(snaps))
	}
	last := snaps[len(snaps)-1]
	if last.Panel != PanelMenu || last.Reveal.Visible() != "H" {
		t.Fatalf("last snapshot = %+v", last)
	}
	cancel()
	n := len(snaps)
	p.CloseAll()
	if len(snaps) != n {
		t.Fatalf("cancelled subscriber still notified")
	}
}

func TestSubscribeSeesAutoCountdown(t *testing.T) {
	p, sched := newTestPlayer(t, hiByeGraph(t), WithSettings(autoOn()))
	p.AdvanceKeyPressed()
	if p.Snapshot().State != StateAutoArmed {
		t.Fatalf("state = %s", p.Snapshot().State)
	}
	var remaining []time.Duration
	cancel := p.Subscribe(func(s Snapshot) {
		if s.AutoArmed {
			remaining = append(remaining, s.AutoRemaining)
		}
	})
	defer cancel()
	sched.Advance(time.Second)
	sched.Advance(500 * time.Millisecond)
	if len(remaining) != 2 || remaining[0] != 2*time.Second || remaining[1] != 1500*time.Millisecond {
		t.Fatalf("countdown snapshots = %v", remaining)
	}
	p.Close()
	sched.Advance(time.Second)
	if len(remaining) != 2 {
		t.Fatalf("closed player still publishing: %v", remaining)
	}
}

func TestCountdownQuietWhenNotArmed(t *testing.T) {
	p, sched := newTestPlayer(t, hiByeGraph(t))
	p.AdvanceKeyPressed()
	n := 0
	cancel := p.Subscribe(func(Snapshot) { n++ })
	defer cancel()
	sched.Advance(time.Second)
	if n != 0 {
		t.Fatalf("idle clock published %d snapshots", n)
	}
}

func TestPlayerResetToStartClosesPanels(t *testing.T) {
	p, _ := newTestPlayer(t, hiByeGraph(t))
	p.AdvanceKeyPressed()
	p.AdvanceKeyPressed()
	p.Open(PanelHistory)
	if err := p.ResetToStart(); err != nil {
		t.Fatalf("ResetToStart: %v", err)
	}
	snap := p.Snapshot()
	if snap.Scene.ID != "start" || snap.Panel != PanelNone || len(p.Backlog()) != 1 {
		t.Fatalf("after reset: scene=%s panel=%s backlog=%d", snap.Scene.ID, snap.Panel, len(p.Backlog()))
	}
}

func TestChoiceKeyGatedByPanel(t *testing.T) {
	p, _ := newTestPlayer(t, makeTestGraph(t))
	p.AdvanceKeyPressed()
	p.Open(PanelLoad)
	if p.ChoiceKeyPressed(0) {
		t.Fatalf("choice key reached session behind a panel")
	}
	if sc := p.Snapshot().Scene; sc.ID != "start" {
		t.Fatalf("moved to %s", sc.ID)
	}
}
