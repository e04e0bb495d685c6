package engine

import "time"

// Base per-character delays for each text speed.
const (
	DelaySlow   = 60 * time.Millisecond
	DelayNormal = 30 * time.Millisecond
	DelayFast   = 15 * time.Millisecond
)

// Settings are player preferences. They may change at any time.
type Settings struct {
	TextSpeed   TextSpeed
	AutoAdvance bool
	BGMVolume   int
	SEVolume    int
}

// DefaultSettings is normal speed, auto-advance off, both volumes at 80.
func DefaultSettings() Settings {
	return Settings{TextSpeed: TextSpeedNormal, BGMVolume: 80, SEVolume: 80}
}

// BaseDelay maps the text speed to its per-character delay.
func (s Settings) BaseDelay() time.Duration {
	return s.TextSpeed.Delay()
}

func (t TextSpeed) Delay() time.Duration {
	switch t {
	case TextSpeedSlow:
		return DelaySlow
	case TextSpeedFast:
		return DelayFast
	default:
		return DelayNormal
	}
}

// Normalize clamps volumes into 0-100 and replaces an unknown speed with normal.
func (s Settings) Normalize() Settings {
	s.TextSpeed = ParseTextSpeed(string(s.TextSpeed))
	s.BGMVolume = clampVolume(s.BGMVolume)
	s.SEVolume = clampVolume(s.SEVolume)
	return s
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
