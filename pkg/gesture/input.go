package gesture

import (
	"fmt"
	"strings"

	"toneai/pkg/models"
)

type action int

const (
	actPress action = iota
	actRelease
	actCancel
	actLeave
)

// touch, mouse and pointer events all map onto the same four actions
var inputActions = map[string]action{
	"touchstart":    actPress,
	"mousedown":     actPress,
	"pointerdown":   actPress,
	"touchend":      actRelease,
	"mouseup":       actRelease,
	"pointerup":     actRelease,
	"touchcancel":   actCancel,
	"pointercancel": actCancel,
	"mouseleave":    actLeave,
	"pointerleave":  actLeave,
}

// InputEvent is a raw input event as reported by the UI layer.
type InputEvent struct {
	Type      string
	MessageID string
}

// Handle feeds one input event into the controller. For release events it
// reports whether the press counted as a tap.
func (c *Controller) Handle(ev InputEvent) (bool, error) {
	act, ok := inputActions[strings.ToLower(ev.Type)]
	if !ok {
		return false, fmt.Errorf("unsupported input event %q", ev.Type)
	}
	switch act {
	case actPress:
		c.Press(ev.MessageID)
	case actRelease:
		return c.Release(), nil
	case actCancel:
		c.Cancel()
	case actLeave:
		c.Leave()
	}
	return false, nil
}

// Display returns the text to render for m given the revealed message id.
func Display(m models.Message, revealedID string) string {
	if m.IsStamp {
		return models.StampToken(m.OriginalContent)
	}
	if revealedID != "" && m.ID == revealedID {
		return m.OriginalContent
	}
	return m.DeliveredContent
}
