package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DaanHessen/novel-tui/internal/engine"
	"github.com/DaanHessen/novel-tui/internal/story"
)

var (
	ErrNoChange = errors.New("no change")
	ErrNotFound = errors.New("not found")
)

// DB wraps gorm.DB for repositories and exposes Close.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

func (d *DB) Close() error   { return d.sql.Close() }
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// Open connects to Postgres.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(10)
	sdb.SetMaxIdleConns(5)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, err
	}
	return &DB{gorm: gdb, sql: sdb}, nil
}

// WithTx executes fn within a database transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// StoryRecord is one row of the stories table.
type StoryRecord struct {
	ID         uuid.UUID
	Slug       string
	Title      string
	StartScene string
	CreatedAt  time.Time
}

type sceneRow struct {
	SceneID       string
	Position      int
	Speaker       string
	Body          string
	Background    string
	ShowCharacter bool
}

type choiceRow struct {
	SceneID   string
	Idx       int
	Label     string
	NextScene string
}

// StoryRepo stores narrative graphs.
type StoryRepo struct{ db *DB }

func NewStoryRepo(db *DB) *StoryRepo { return &StoryRepo{db: db} }

// Import replaces the story stored under slug with g. Only validated graphs
// can be stored, so anything loaded back is playable.
func (r *StoryRepo) Import(ctx context.Context, slug, title string, g *engine.Graph) (uuid.UUID, error) {
	id := uuid.New()
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM stories WHERE slug = ?`, slug).Error; err != nil {
			return err
		}
		if err := tx.Exec(`INSERT INTO stories(id, slug, title, start_scene) VALUES (?,?,?,?)`, id, slug, title, g.Start()).Error; err != nil {
			return err
		}
		scenes, choices := rowsFromNodes(g.Nodes())
		for _, s := range scenes {
			if err := tx.Exec(`INSERT INTO scenes(story_id, scene_id, position, speaker, body, background, show_character) VALUES (?,?,?,?,?,?,?)`,
				id, s.SceneID, s.Position, s.Speaker, s.Body, s.Background, s.ShowCharacter).Error; err != nil {
				return err
			}
		}
		for _, c := range choices {
			if err := tx.Exec(`INSERT INTO choices(story_id, scene_id, idx, label, next_scene) VALUES (?,?,?,?,?)`,
				id, c.SceneID, c.Idx, c.Label, c.NextScene).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, wrap(err, "import story")
	}
	return id, nil
}

// Load reads a story back by slug.
func (r *StoryRepo) Load(ctx context.Context, slug string) (story.Story, error) {
	var rec StoryRecord
	res := r.db.gorm.WithContext(ctx).Raw(`SELECT id, slug, title, start_scene, created_at FROM stories WHERE slug = ?`, slug).Scan(&rec)
	if res.Error != nil {
		return story.Story{}, wrap(res.Error, "load story")
	}
	if res.RowsAffected == 0 {
		return story.Story{}, errors.Wrapf(ErrNotFound, "story %q", slug)
	}
	var scenes []sceneRow
	if err := r.db.gorm.WithContext(ctx).Raw(`SELECT scene_id, position, speaker, body, background, show_character FROM scenes WHERE story_id = ? ORDER BY position`, rec.ID).Scan(&scenes).Error; err != nil {
		return story.Story{}, wrap(err, "load scenes")
	}
	var choices []choiceRow
	if err := r.db.gorm.WithContext(ctx).Raw(`SELECT scene_id, idx, label, next_scene FROM choices WHERE story_id = ? ORDER BY scene_id, idx`, rec.ID).Scan(&choices).Error; err != nil {
		return story.Story{}, wrap(err, "load choices")
	}
	return story.Story{Title: rec.Title, Start: rec.StartScene, Scenes: nodesFromRows(scenes, choices)}, nil
}

// List returns stored stories, newest first.
func (r *StoryRepo) List(ctx context.Context) ([]StoryRecord, error) {
	var out []StoryRecord
	if err := r.db.gorm.WithContext(ctx).Raw(`SELECT id, slug, title, start_scene, created_at FROM stories ORDER BY created_at DESC`).Scan(&out).Error; err != nil {
		return nil, wrap(err, "list stories")
	}
	return out, nil
}

func rowsFromNodes(nodes []engine.SceneNode) ([]sceneRow, []choiceRow) {
	scenes := make([]sceneRow, 0, len(nodes))
	var choices []choiceRow
	for i, n := range nodes {
		scenes = append(scenes, sceneRow{
			SceneID:       n.ID,
			Position:      i,
			Speaker:       n.Speaker,
			Body:          n.Text,
			Background:    n.Background.String(),
			ShowCharacter: n.ShowCharacter,
		})
		for j, c := range n.Choices {
			choices = append(choices, choiceRow{SceneID: n.ID, Idx: j, Label: c.Text, NextScene: c.Next})
		}
	}
	return scenes, choices
}

// nodesFromRows expects choices ordered by idx within each scene.
func nodesFromRows(scenes []sceneRow, choices []choiceRow) []engine.SceneNode {
	byScene := make(map[string][]engine.Choice, len(scenes))
	for _, c := range choices {
		byScene[c.SceneID] = append(byScene[c.SceneID], engine.Choice{Text: c.Label, Next: c.NextScene})
	}
	nodes := make([]engine.SceneNode, 0, len(scenes))
	for _, s := range scenes {
		nodes = append(nodes, engine.SceneNode{
			ID:            s.SceneID,
			Speaker:       s.Speaker,
			Text:          s.Body,
			Background:    engine.ParseBackground(s.Background),
			ShowCharacter: s.ShowCharacter,
			Choices:       byScene[s.SceneID],
		})
	}
	return nodes
}

// SettingsRepo keeps player preferences per profile. Save slots are not stored.
type SettingsRepo struct{ db *DB }

func NewSettingsRepo(db *DB) *SettingsRepo { return &SettingsRepo{db: db} }

type settingsRow struct {
	TextSpeed   string
	AutoAdvance bool
	BGMVolume   int `gorm:"column:bgm_volume"`
	SEVolume    int `gorm:"column:se_volume"`
}

// Get returns the stored settings for profile and whether a row existed.
func (sr *SettingsRepo) Get(ctx context.Context, profile string) (engine.Settings, bool, error) {
	var row settingsRow
	res := sr.db.gorm.WithContext(ctx).Raw(`SELECT text_speed, auto_advance, bgm_volume, se_volume FROM settings WHERE profile = ?`, profile).Scan(&row)
	if res.Error != nil {
		return engine.Settings{}, false, wrap(res.Error, "get settings")
	}
	if res.RowsAffected == 0 {
		return engine.DefaultSettings(), false, nil
	}
	return engine.Settings{
		TextSpeed:   engine.TextSpeed(row.TextSpeed),
		AutoAdvance: row.AutoAdvance,
		BGMVolume:   row.BGMVolume,
		SEVolume:    row.SEVolume,
	}.Normalize(), true, nil
}

func (sr *SettingsRepo) Upsert(ctx context.Context, profile string, s engine.Settings) error {
	s = s.Normalize()
	return wrap(sr.db.gorm.WithContext(ctx).Exec(`INSERT INTO settings(profile, text_speed, auto_advance, bgm_volume, se_volume, updated_at) VALUES (?,?,?,?,?, now())
	ON CONFLICT (profile) DO UPDATE SET text_speed=EXCLUDED.text_speed, auto_advance=EXCLUDED.auto_advance, bgm_volume=EXCLUDED.bgm_volume, se_volume=EXCLUDED.se_volume, updated_at=now()`,
		profile, string(s.TextSpeed), s.AutoAdvance, s.BGMVolume, s.SEVolume).Error, "upsert settings")
}

// Helper error wrap
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
