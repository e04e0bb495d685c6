package engine

import "strings"

// Choice is a labelled edge to another scene.
type Choice struct {
	Text string `json:"text"`
	Next string `json:"next"`
}

// Background is either a named gradient token or an image reference.
type Background struct {
	Gradient string `json:"gradient,omitempty"`
	Image    string `json:"image,omitempty"`
}

func (b Background) IsImage() bool { return b.Image != "" }

func (b Background) String() string {
	if b.IsImage() {
		return "image:" + b.Image
	}
	return "gradient:" + b.Gradient
}

// ParseBackground reads the "kind:value" form produced by String. A bare value
// is taken as a gradient token.
func ParseBackground(s string) Background {
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return Background{Gradient: s}
	}
	switch kind {
	case "image":
		return Background{Image: value}
	case "gradient":
		return Background{Gradient: value}
	default:
		return Background{Gradient: s}
	}
}

func (b Background) valid() bool {
	return (b.Gradient == "") != (b.Image == "")
}

// SceneNode is one unit of narrative. An empty Speaker means no speaker banner.
type SceneNode struct {
	ID            string     `json:"id"`
	Speaker       string     `json:"speaker"`
	Text          string     `json:"text"`
	Choices       []Choice   `json:"choices"`
	Background    Background `json:"background"`
	ShowCharacter bool       `json:"character"`
}

// Terminal scenes have no choices; the renderer supplies its own advance affordance.
func (n SceneNode) Terminal() bool { return len(n.Choices) == 0 }

// AutoEligible reports whether the scene has exactly one choice.
func (n SceneNode) AutoEligible() bool { return len(n.Choices) == 1 }

// BacklogEntry records a scene as it was entered.
type BacklogEntry struct {
	SceneID string
	Speaker string
	Text    string
}
