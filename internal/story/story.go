package story

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/DaanHessen/novel-tui/internal/engine"
)

//go:embed builtin.json
var builtinJSON []byte

// Story is a parsed story file: a title plus the scenes of one graph.
type Story struct {
	Title  string
	Start  string
	Scenes []engine.SceneNode
}

// Graph validates the story and returns its narrative graph.
func (s Story) Graph() (*engine.Graph, error) {
	return engine.NewGraph(s.Start, s.Scenes)
}

// Builtin returns the story shipped with the binary.
func Builtin() (Story, error) {
	st, err := Parse(builtinJSON)
	if err != nil {
		return Story{}, errors.Wrap(err, "builtin story")
	}
	return st, nil
}

// Load reads and parses a story file.
func Load(path string) (Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Story{}, errors.Wrap(err, "read story")
	}
	st, err := Parse(data)
	if err != nil {
		return Story{}, errors.Wrapf(err, "parse %s", path)
	}
	return st, nil
}

// Parse decodes the story JSON format:
//
//	{"title": "...", "start": "id", "scenes": [{"id", "speaker", "text",
//	 "background": {"gradient": "token"} | {"image": "path"} | "kind:value",
//	 "character": bool, "choices": [{"text", "next"}]}]}
//
// Parse only checks shape; graph rules are enforced by Graph.
func Parse(data []byte) (Story, error) {
	if !gjson.ValidBytes(data) {
		return Story{}, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	st := Story{
		Title: root.Get("title").String(),
		Start: root.Get("start").String(),
	}
	if st.Start == "" {
		return Story{}, errors.New("missing start scene")
	}
	scenes := root.Get("scenes")
	if !scenes.IsArray() {
		return Story{}, errors.New("scenes must be an array")
	}
	var perr error
	scenes.ForEach(func(key, v gjson.Result) bool {
		node, err := parseScene(v)
		if err != nil {
			perr = errors.Wrapf(err, "scene %d", key.Int())
			return false
		}
		st.Scenes = append(st.Scenes, node)
		return true
	})
	if perr != nil {
		return Story{}, perr
	}
	return st, nil
}

func parseScene(v gjson.Result) (engine.SceneNode, error) {
	if !v.IsObject() {
		return engine.SceneNode{}, errors.New("scene must be an object")
	}
	n := engine.SceneNode{
		ID:            v.Get("id").String(),
		Speaker:       v.Get("speaker").String(),
		Text:          v.Get("text").String(),
		ShowCharacter: v.Get("character").Bool(),
		Background:    parseBackground(v.Get("background")),
	}
	choices := v.Get("choices")
	if choices.Exists() && !choices.IsArray() {
		return engine.SceneNode{}, errors.Errorf("scene %q: choices must be an array", n.ID)
	}
	for _, c := range choices.Array() {
		n.Choices = append(n.Choices, engine.Choice{
			Text: c.Get("text").String(),
			Next: c.Get("next").String(),
		})
	}
	return n, nil
}

func parseBackground(v gjson.Result) engine.Background {
	if v.IsObject() {
		return engine.Background{
			Gradient: v.Get("gradient").String(),
			Image:    v.Get("image").String(),
		}
	}
	return engine.ParseBackground(v.String())
}
