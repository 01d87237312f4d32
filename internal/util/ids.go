package util

import (
	"fmt"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const nanoidLength = 21

const actionMarker = ":action_"

// ActionID derives the id of the action for the verb at position seq on the
// given line of a document. The same inputs always produce the same id.
func ActionID(documentID string, lineNumber, seq int) string {
	return fmt.Sprintf("%s%s%d_%d", documentID, actionMarker, lineNumber, seq)
}

// ParseActionID reverses ActionID.
func ParseActionID(id string) (documentID string, lineNumber, seq int, err error) {
	idx := strings.LastIndex(id, actionMarker)
	if idx < 0 {
		return "", 0, 0, fmt.Errorf("invalid action id %q", id)
	}
	documentID = id[:idx]
	rest := id[idx+len(actionMarker):]
	parts := strings.Split(rest, "_")
	if len(parts) != 2 {
		return "", 0, 0, fmt.Errorf("invalid action id %q", id)
	}
	lineNumber, err = strconv.Atoi(parts[0])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid line in action id %q: %w", id, err)
	}
	seq, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid sequence in action id %q: %w", id, err)
	}
	return documentID, lineNumber, seq, nil
}

// NewDocumentID returns a random id for documents submitted without one.
func NewDocumentID() string {
	id, err := gonanoid.New()
	if err != nil {
		panic(err)
	}
	return id
}

// IsNanoid reports whether s has the shape of a default go-nanoid id.
func IsNanoid(s string) bool {
	if len(s) != nanoidLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}
