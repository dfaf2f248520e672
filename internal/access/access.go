// Package access decides who may read and change a note.
package access

import "strings"

type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
	Group   Visibility = "group"
)

type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Note is the part of a note the policy looks at.
type Note struct {
	OwnerID    string
	Visibility Visibility
	GroupID    string
}

// Viewer is an authenticated user and the groups they belong to.
type Viewer struct {
	UserID   string
	GroupIDs []string
}

func (v Viewer) InGroup(groupID string) bool {
	if groupID == "" {
		return false
	}
	for _, id := range v.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// Can reports whether viewer may perform action on note. An empty viewer is
// never allowed anything.
func Can(note Note, viewer Viewer, action Action) bool {
	if viewer.UserID == "" {
		return false
	}
	if note.OwnerID == viewer.UserID {
		return true
	}
	if action != ActionRead {
		return false
	}
	switch note.Visibility {
	case Public:
		return true
	case Group:
		return viewer.InGroup(note.GroupID)
	default:
		return false
	}
}

func CanRead(note Note, viewer Viewer) bool  { return Can(note, viewer, ActionRead) }
func CanWrite(note Note, viewer Viewer) bool { return Can(note, viewer, ActionWrite) }

// ParseVisibility normalizes a client value. Empty input means private.
func ParseVisibility(value string) (Visibility, bool) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(value))); v {
	case "":
		return Private, true
	case Public, Private, Group:
		return v, true
	default:
		return "", false
	}
}
