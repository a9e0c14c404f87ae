package webhook

import (
	"fmt"
	"strconv"
)

// Platform identifies which external product emitted the event. Only the
// account platform is wired; the rest answer 501 so senders can tell
// "unknown" from "broken".
type Platform string

const (
	PlatformMain       Platform = "mp"
	PlatformAcademy    Platform = "academy"
	PlatformCTF        Platform = "ctf"
	PlatformEnterprise Platform = "enterprise"
)

type Event string

const (
	EventAccountLinked   Event = "AccountLinked"
	EventAccountUnlinked Event = "AccountUnlinked"
	EventAccountBanned   Event = "AccountBanned"
	EventAccountDeleted  Event = "AccountDeleted"
	EventNameChange      Event = "NameChange"
)

// Body is the delivery envelope. Properties is schemaless on the wire;
// handlers pull out what they need with the typed accessors.
type Body struct {
	Platform   Platform       `json:"platform" binding:"required"`
	Event      Event          `json:"event" binding:"required"`
	Properties map[string]any `json:"properties"`
}

// StringProperty returns the named property as a string; numbers are
// formatted, which keeps senders that quote IDs and senders that don't
// both working.
func (b *Body) StringProperty(name string) (string, error) {
	raw, ok := b.Properties[name]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing property %q", name)
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", fmt.Errorf("property %q has unsupported type %T", name, raw)
	}
}

// Int64Property parses the named property as an int64 id.
func (b *Body) Int64Property(name string) (int64, error) {
	s, err := b.StringProperty(name)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("property %q is not a valid id: %w", name, err)
	}
	return id, nil
}

// BoolProperty reads an optional boolean property, absent means false.
func (b *Body) BoolProperty(name string) bool {
	v, ok := b.Properties[name].(bool)
	return ok && v
}

// optionalString reads a property that may legitimately be absent.
func (b *Body) optionalString(name string) string {
	s, err := b.StringProperty(name)
	if err != nil {
		return ""
	}
	return s
}
