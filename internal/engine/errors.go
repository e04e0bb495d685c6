package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrGraphConfiguration marks a graph that cannot be played. It is fatal.
	ErrGraphConfiguration = errors.New("graph configuration error")
	// ErrSceneNotFound is returned by lookups for unknown scene ids.
	ErrSceneNotFound = errors.New("scene not found")
	// ErrInvalidChoiceIndex is returned when a caller selects a choice that does not exist.
	ErrInvalidChoiceIndex = errors.New("invalid choice index")
)

// ConfigError describes why a graph failed validation.
type ConfigError struct {
	SceneID string
	Choice  int // -1 when the problem is not tied to a choice
	Target  string
	Reason  string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Choice >= 0:
		return fmt.Sprintf("%s: scene %q choice %d -> %q: %s", ErrGraphConfiguration, e.SceneID, e.Choice, e.Target, e.Reason)
	case e.SceneID != "":
		return fmt.Sprintf("%s: scene %q: %s", ErrGraphConfiguration, e.SceneID, e.Reason)
	default:
		return fmt.Sprintf("%s: %s", ErrGraphConfiguration, e.Reason)
	}
}

func (e *ConfigError) Unwrap() error { return ErrGraphConfiguration }
