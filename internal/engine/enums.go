package engine

// String backed enums so values read the same in logs, config and the database.

type State string
type PanelState string
type TextSpeed string

const (
	StateIdle           State = "idle"
	StateRevealing      State = "revealing"
	StateAwaitingChoice State = "awaiting_choice"
	StateAutoArmed      State = "auto_armed"
)

const (
	PanelNone     PanelState = "none"
	PanelMenu     PanelState = "menu"
	PanelSettings PanelState = "settings"
	PanelHistory  PanelState = "history"
	PanelSave     PanelState = "save"
	PanelLoad     PanelState = "load"
)

var AllPanels = []PanelState{PanelNone, PanelMenu, PanelSettings, PanelHistory, PanelSave, PanelLoad}

const (
	TextSpeedSlow   TextSpeed = "slow"
	TextSpeedNormal TextSpeed = "normal"
	TextSpeedFast   TextSpeed = "fast"
)

var AllTextSpeeds = []TextSpeed{TextSpeedSlow, TextSpeedNormal, TextSpeedFast}

// Valid reports whether p is a known panel.
func (p PanelState) Valid() bool {
	for _, v := range AllPanels {
		if v == p {
			return true
		}
	}
	return false
}

// Valid reports whether t is a known speed.
func (t TextSpeed) Valid() bool {
	for _, v := range AllTextSpeeds {
		if v == t {
			return true
		}
	}
	return false
}

// ParseTextSpeed maps a config string to a speed, falling back to normal.
func ParseTextSpeed(s string) TextSpeed {
	t := TextSpeed(s)
	if t.Valid() {
		return t
	}
	return TextSpeedNormal
}
