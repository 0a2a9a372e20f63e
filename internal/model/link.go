package model

import (
	"fmt"
	"strings"
)

// Requiredness is the override a link applies to its target.
type Requiredness uint8

const (
	// AsAuthored keeps the requiredness declared on the target.
	AsAuthored Requiredness = iota
	// ForceOptional marks the target optional, keeping its default.
	ForceOptional
	// ForceRequired marks the target required and drops its default.
	ForceRequired
)

// String returns the link prefix for r.
func (r Requiredness) String() string {
	switch r {
	case ForceOptional:
		return "o."
	case ForceRequired:
		return "r."
	default:
		return ""
	}
}

// Apply returns the presence p takes under r.
func (r Requiredness) Apply(p Presence) Presence {
	switch r {
	case ForceOptional:
		p.Optional = true
	case ForceRequired:
		p = Presence{}
	}
	return p
}

const (
	optionalPrefix = "o."
	requiredPrefix = "r."
)

// Link is a string reference to a named model.
type Link struct {
	Target string
	Mode   Requiredness
}

// String returns the authored form of the link.
func (l Link) String() string {
	return l.Mode.String() + l.Target
}

// ParseLink checks the syntax of a link string and splits off its prefix.
func ParseLink(s string) (Link, error) {
	link := Link{Target: s}
	switch {
	case strings.HasPrefix(s, optionalPrefix):
		link = Link{Target: s[len(optionalPrefix):], Mode: ForceOptional}
	case strings.HasPrefix(s, requiredPrefix):
		link = Link{Target: s[len(requiredPrefix):], Mode: ForceRequired}
	}
	if !ValidName(link.Target) {
		return Link{}, fmt.Errorf("malformed link %q", s)
	}
	return link, nil
}

// ValidName reports whether name is a legal model name.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}
