package util

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"gopkg.in/ini.v1"

	"github.com/DaanHessen/novel-tui/internal/engine"
)

// Config holds runtime settings and flags.
type Config struct {
	StoryFile string `env:"NOVEL_STORY_FILE"` // path to a story JSON file
	StorySlug string `env:"NOVEL_STORY"`      // story stored in the database
	DSN       string `env:"DATABASE_URL"`
	Profile   string `env:"NOVEL_PROFILE"` // key for stored preferences

	TextSpeed   string `env:"NOVEL_TEXT_SPEED"` // slow|normal|fast
	AutoAdvance bool   `env:"NOVEL_AUTO_ADVANCE"`
	BGMVolume   int    `env:"NOVEL_BGM_VOLUME"`
	SEVolume    int    `env:"NOVEL_SE_VOLUME"`

	Theme   string `env:"NOVEL_THEME"`
	LogFile string `env:"NOVEL_LOG_FILE"`
	Debug   bool   `env:"NOVEL_DEBUG"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	d := engine.DefaultSettings()
	return Config{
		Profile:   "default",
		TextSpeed: string(d.TextSpeed),
		BGMVolume: d.BGMVolume,
		SEVolume:  d.SEVolume,
		Theme:     "catppuccin",
	}
}

// LoadFile overlays an INI file onto cfg. A missing file is not an error.
//
//	[story]
//	file = stories/demo.json
//	slug = demo
//	dsn  = postgres://...
//	[player]
//	profile = default
//	text_speed = fast
//	auto_advance = true
//	bgm_volume = 60
//	se_volume = 70
//	[ui]
//	theme = gruvbox
//	log_file = novel.log
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, Insensitive: true}, path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	story := f.Section("story")
	cfg.StoryFile = story.Key("file").MustString(cfg.StoryFile)
	cfg.StorySlug = story.Key("slug").MustString(cfg.StorySlug)
	cfg.DSN = story.Key("dsn").MustString(cfg.DSN)

	player := f.Section("player")
	cfg.Profile = player.Key("profile").MustString(cfg.Profile)
	cfg.TextSpeed = player.Key("text_speed").MustString(cfg.TextSpeed)
	cfg.AutoAdvance = player.Key("auto_advance").MustBool(cfg.AutoAdvance)
	cfg.BGMVolume = player.Key("bgm_volume").MustInt(cfg.BGMVolume)
	cfg.SEVolume = player.Key("se_volume").MustInt(cfg.SEVolume)

	ui := f.Section("ui")
	cfg.Theme = ui.Key("theme").MustString(cfg.Theme)
	cfg.LogFile = ui.Key("log_file").MustString(cfg.LogFile)
	cfg.Debug = ui.Key("debug").MustBool(cfg.Debug)
	return nil
}

// LoadEnv overlays NOVEL_* variables (and DATABASE_URL) onto cfg.
func LoadEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Settings converts the player section into engine settings.
func (c Config) Settings() engine.Settings {
	return engine.Settings{
		TextSpeed:   engine.TextSpeed(c.TextSpeed),
		AutoAdvance: c.AutoAdvance,
		BGMVolume:   c.BGMVolume,
		SEVolume:    c.SEVolume,
	}.Normalize()
}
