package text

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/DaanHessen/novel-tui/internal/engine"
)

// Renderer turns backlog entries into display text for the history panel.
type Renderer interface {
	Backlog(entries []engine.BacklogEntry, width int) (string, error)
}

// plainRenderer wraps entries without styling. It never fails.
type plainRenderer struct{}

func NewPlainRenderer() Renderer { return plainRenderer{} }

func (plainRenderer) Backlog(entries []engine.BacklogEntry, width int) (string, error) {
	if len(entries) == 0 {
		return "(nothing yet)", nil
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		line := e.Text
		if e.Speaker != "" {
			line = e.Speaker + ": " + line
		}
		b.WriteString(Wrap(line, width))
	}
	return b.String(), nil
}

// glamourRenderer renders the backlog as markdown.
type glamourRenderer struct{ style string }

// NewGlamourRenderer uses a glamour standard style ("dark", "light", "notty"...).
func NewGlamourRenderer(style string) Renderer {
	if style == "" {
		style = "dark"
	}
	return glamourRenderer{style: style}
}

func (g glamourRenderer) Backlog(entries []engine.BacklogEntry, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(g.style),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return "", fmt.Errorf("glamour: %w", err)
	}
	out, err := r.Render(BacklogMarkdown(entries))
	if err != nil {
		return "", fmt.Errorf("glamour render: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// WithFallback returns a renderer that prefers primary and falls back to backup on error.
func WithFallback(primary, fallback Renderer) Renderer {
	return &fallbackRenderer{p: primary, f: fallback}
}

type fallbackRenderer struct{ p, f Renderer }

func (r *fallbackRenderer) Backlog(entries []engine.BacklogEntry, width int) (string, error) {
	if r.p == nil {
		return r.f.Backlog(entries, width)
	}
	if s, err := r.p.Backlog(entries, width); err == nil {
		return s, nil
	}
	return r.f.Backlog(entries, width)
}

// BacklogMarkdown lists entries oldest first, one paragraph each. Entry text
// is literal: every line break is kept and nothing in it is read as markup.
func BacklogMarkdown(entries []engine.BacklogEntry) string {
	if len(entries) == 0 {
		return "_Nothing has been said yet._\n"
	}
	var b strings.Builder
	for _, e := range entries {
		if e.Speaker != "" {
			fmt.Fprintf(&b, "**%s**: ", escape(e.Speaker))
		}
		for i, line := range strings.Split(e.Text, "\n") {
			if i > 0 {
				b.WriteString("\\\n")
			}
			b.WriteString(escape(line))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// Wrap word-wraps s to width columns. Width <= 0 leaves s unchanged.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}

const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// escape turns ASCII punctuation and leading blanks into numeric character
// references. The markdown parser keeps backslash escapes in text segments and
// glamour prints them, while references are decoded on output.
func escape(s string) string {
	var b strings.Builder
	lead := true
	for _, r := range s {
		switch {
		case lead && (r == ' ' || r == '\t'):
			fmt.Fprintf(&b, "&#%d;", r)
			continue
		case strings.ContainsRune(asciiPunct, r):
			fmt.Fprintf(&b, "&#%d;", r)
		default:
			b.WriteRune(r)
		}
		lead = false
	}
	return b.String()
}
