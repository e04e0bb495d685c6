package story

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/DaanHessen/novel-tui/internal/engine"
)

func TestBuiltinStoryIsPlayable(t *testing.T) {
	st, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	g, err := st.Graph()
	if err != nil {
		t.Fatalf("builtin graph invalid: %v", err)
	}
	if un := g.Unreachable(); len(un) != 0 {
		t.Fatalf("builtin story has unreachable scenes: %v", un)
	}
	if st.Title == "" {
		t.Fatalf("builtin story has no title")
	}
}

func TestParseBackgroundForms(t *testing.T) {
	data := []byte(`{"start":"a","scenes":[
		{"id":"a","text":"x","background":{"image":"room.png"},"choices":[{"text":"on","next":"b"}]},
		{"id":"b","text":"y","background":"gradient:dusk","character":true}
	]}`)
	st, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(st.Scenes) != 2 {
		t.Fatalf("scenes = %d", len(st.Scenes))
	}
	if st.Scenes[0].Background.Image != "room.png" || st.Scenes[1].Background.Gradient != "dusk" {
		t.Fatalf("backgrounds = %+v / %+v", st.Scenes[0].Background, st.Scenes[1].Background)
	}
	if !st.Scenes[1].ShowCharacter || st.Scenes[0].ShowCharacter {
		t.Fatalf("character flags wrong")
	}
	if st.Scenes[0].Choices[0].Next != "b" || len(st.Scenes[1].Choices) != 0 {
		t.Fatalf("choices = %+v", st.Scenes[0].Choices)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	bad := map[string]string{
		"not json":       `{"start":`,
		"no start":       `{"scenes":[]}`,
		"scenes object":  `{"start":"a","scenes":{}}`,
		"choices object": `{"start":"a","scenes":[{"id":"a","choices":{}}]}`,
	}
	for name, doc := range bad {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDanglingTargetFailsAtGraph(t *testing.T) {
	st, err := Parse([]byte(`{"start":"a","scenes":[{"id":"a","background":"x","choices":[{"text":"go","next":"zzz"}]}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := st.Graph(); !errors.Is(err, engine.ErrGraphConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.json")
	if err := os.WriteFile(path, builtinJSON, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Start != "title" {
		t.Fatalf("start = %s", st.Start)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
