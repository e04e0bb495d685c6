package engine

// Arbitrator holds the single active overlay panel. Opening a panel replaces
// whatever was open, so two panels can never be active together.
type Arbitrator struct {
	current PanelState
	reset   func() error

	// OnChange runs whenever the active panel changes.
	OnChange func(PanelState)
}

// NewArbitrator starts with no panel open. reset is called by
// TriggerReturnToStart after the panels close.
func NewArbitrator(reset func() error) *Arbitrator {
	return &Arbitrator{current: PanelNone, reset: reset}
}

func (a *Arbitrator) Current() PanelState { return a.current }

// IsOpen reports whether any panel owns input.
func (a *Arbitrator) IsOpen() bool { return a.current != PanelNone }

// Open makes p the active panel. Unknown values close everything.
func (a *Arbitrator) Open(p PanelState) {
	if !p.Valid() {
		p = PanelNone
	}
	a.set(p)
}

func (a *Arbitrator) CloseAll() { a.set(PanelNone) }

// ToggleMenu opens the menu when nothing is open and closes any open panel otherwise.
func (a *Arbitrator) ToggleMenu() {
	if a.IsOpen() {
		a.CloseAll()
		return
	}
	a.Open(PanelMenu)
}

// Menu actions. Each one only works while the menu itself is open.

func (a *Arbitrator) TriggerSave() bool     { return a.fromMenu(PanelSave) }
func (a *Arbitrator) TriggerLoad() bool     { return a.fromMenu(PanelLoad) }
func (a *Arbitrator) TriggerSettings() bool { return a.fromMenu(PanelSettings) }
func (a *Arbitrator) TriggerHistory() bool  { return a.fromMenu(PanelHistory) }

// TriggerReturnToStart closes every panel and restarts the playthrough.
func (a *Arbitrator) TriggerReturnToStart() (bool, error) {
	if a.current != PanelMenu {
		return false, nil
	}
	a.CloseAll()
	if a.reset == nil {
		return true, nil
	}
	return true, a.reset()
}

func (a *Arbitrator) fromMenu(p PanelState) bool {
	if a.current != PanelMenu {
		return false
	}
	a.Open(p)
	return true
}

func (a *Arbitrator) set(p PanelState) {
	if a.current == p {
		return
	}
	a.current = p
	if a.OnChange != nil {
		a.OnChange(p)
	}
}
