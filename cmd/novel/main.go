package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DaanHessen/novel-tui/internal/engine"
	"github.com/DaanHessen/novel-tui/internal/store"
	"github.com/DaanHessen/novel-tui/internal/story"
	"github.com/DaanHessen/novel-tui/internal/text"
	"github.com/DaanHessen/novel-tui/internal/ui"
	"github.com/DaanHessen/novel-tui/internal/util"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	configPath := flag.String("config", "novel.ini", "INI config file (optional)")
	storyFile := flag.String("file", "", "Story JSON file to play")
	slug := flag.String("story", "", "Slug of a story stored in the database")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (default $DATABASE_URL)")
	profile := flag.String("profile", "", "Profile name for stored preferences")
	speed := flag.String("speed", "", "Text speed: slow|normal|fast")
	auto := flag.Bool("auto", false, "Start with auto-advance on")
	theme := flag.String("theme", "", "Colour theme: catppuccin|dracula|gruvbox|solarized_dark")
	logFile := flag.String("log", "", "Write engine logs to this file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "novel [--file story.json | --story slug] [--dsn DSN] [--speed slow|normal|fast] [--auto] | import <file> [slug] | validate <file> | migrate up|down | version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := util.Defaults()
	if err := util.LoadFile(&cfg, *configPath); err != nil {
		log.Fatal(err)
	}
	if err := util.LoadEnv(&cfg); err != nil {
		log.Fatal(err)
	}
	settingsFlagged := false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "file":
			cfg.StoryFile = *storyFile
		case "story":
			cfg.StorySlug = *slug
		case "dsn":
			cfg.DSN = *dsn
		case "profile":
			cfg.Profile = *profile
		case "speed":
			cfg.TextSpeed = *speed
			settingsFlagged = true
		case "auto":
			cfg.AutoAdvance = *auto
			settingsFlagged = true
		case "theme":
			cfg.Theme = *theme
		case "log":
			cfg.LogFile = *logFile
		}
	})

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "version":
			fmt.Println("novel", version)
		case "migrate":
			if len(args) < 2 {
				log.Fatal("migrate requires 'up' or 'down'")
			}
			if err := runMigrate(cfg, args[1]); err != nil {
				log.Fatal(err)
			}
		case "import":
			if len(args) < 2 {
				log.Fatal("import requires a story file")
			}
			name := ""
			if len(args) > 2 {
				name = args[2]
			}
			if err := runImport(cfg, args[1], name); err != nil {
				log.Fatal(err)
			}
		case "validate":
			if len(args) < 2 {
				log.Fatal("validate requires a story file")
			}
			runValidate(args[1])
		default:
			flag.Usage()
			os.Exit(2)
		}
		return
	}

	if err := play(cfg, settingsFlagged); err != nil {
		log.Fatal(err)
	}
}

func runMigrate(cfg util.Config, action string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	migrator, err := store.NewMigrator(cfg.DSN)
	if err != nil {
		return err
	}
	switch action {
	case "up":
		if err := migrator.Up(ctx); err != nil && err != store.ErrNoChange {
			return err
		}
		fmt.Println("Migrations applied")
	case "down":
		if err := migrator.Down(ctx); err != nil && err != store.ErrNoChange {
			return err
		}
		fmt.Println("Migrations rolled back")
	default:
		return fmt.Errorf("unknown migrate action %q; use up|down", action)
	}
	return nil
}

// runImport returns instead of exiting so the database handle is closed.
func runImport(cfg util.Config, path, slug string) error {
	if slug == "" {
		slug = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	st, err := story.Load(path)
	if err != nil {
		return err
	}
	g, err := st.Graph()
	if err != nil {
		return fmt.Errorf("story rejected: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := store.Open(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	id, err := store.NewStoryRepo(db).Import(ctx, slug, st.Title, g)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %q as %s (%d scenes, id %s)\n", st.Title, slug, g.Len(), id)
	return nil
}

func runValidate(path string) {
	st, err := story.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	g, err := st.Graph()
	if err != nil {
		log.Fatalf("invalid: %v", err)
	}
	fmt.Printf("ok: %d scenes, start %s\n", g.Len(), g.Start())
	if un := g.Unreachable(); len(un) > 0 {
		fmt.Printf("unreachable: %s\n", strings.Join(un, ", "))
	}
}

// play runs the player until the TUI exits. Deferred cleanup runs before any
// error reaches main.
func play(cfg util.Config, settingsFlagged bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(io.Discard, "", 0)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger = log.New(f, "novel ", log.LstdFlags|log.Lmicroseconds)
	}

	var db *store.DB
	if cfg.DSN != "" {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		d, err := store.Open(openCtx, cfg.DSN)
		cancel()
		if err != nil {
			log.Printf("database unavailable, continuing without it: %v", err)
		} else {
			db = d
			defer db.Close()
		}
	}

	settings := cfg.Settings()
	var saveSettings func(engine.Settings) error
	if db != nil {
		repo := store.NewSettingsRepo(db)
		stored, ok, err := repo.Get(ctx, cfg.Profile)
		switch {
		case err != nil:
			log.Printf("could not read settings for %s: %v", cfg.Profile, err)
		case ok && !settingsFlagged:
			settings = stored
		}
		saveSettings = func(s engine.Settings) error {
			c, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return repo.Upsert(c, cfg.Profile, s)
		}
	}

	st, err := loadStory(ctx, cfg, db)
	if err != nil {
		return err
	}
	g, err := st.Graph()
	if err != nil {
		return fmt.Errorf("story rejected: %w", err)
	}
	if un := g.Unreachable(); len(un) > 0 {
		log.Printf("warning: unreachable scenes: %s", strings.Join(un, ", "))
	}

	sched := engine.NewScheduler()
	player, err := engine.NewPlayer(g, sched, engine.WithLogger(logger), engine.WithSettings(settings))
	if err != nil {
		return err
	}
	opts := ui.Options{
		Title:        st.Title,
		Theme:        cfg.Theme,
		Renderer:     text.WithFallback(text.NewGlamourRenderer("dark"), text.NewPlainRenderer()),
		SaveSettings: saveSettings,
	}
	if cfg.Debug {
		opts.Logger = logger
	}
	if err := ui.Run(ctx, player, sched, opts); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// loadStory prefers a stored story, then a file, then the built-in story.
func loadStory(ctx context.Context, cfg util.Config, db *store.DB) (story.Story, error) {
	switch {
	case cfg.StorySlug != "":
		if db == nil {
			return story.Story{}, fmt.Errorf("story %q needs a database (set --dsn or DATABASE_URL)", cfg.StorySlug)
		}
		return store.NewStoryRepo(db).Load(ctx, cfg.StorySlug)
	case cfg.StoryFile != "":
		return story.Load(cfg.StoryFile)
	default:
		return story.Builtin()
	}
}
