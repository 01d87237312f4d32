// Package karaka holds the fixed semantic-role vocabulary shared by ingestion
// and querying, the syntactic-label mapping into it and the denormalized
// Frame record.
package karaka

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRole is returned when a string does not name a known role.
var ErrInvalidRole = errors.New("invalid karaka role")

// Role is one of the closed set of Kāraka roles an edge can carry.
type Role string

const (
	Karta      Role = "KARTA"      // Agent
	Karma      Role = "KARMA"      // Object
	Karana     Role = "KARANA"     // Instrument
	Sampradana Role = "SAMPRADANA" // Recipient
	Apadana    Role = "APADANA"    // Source
	Adhikarana Role = "ADHIKARANA" // Location or time
)

// Roles lists every role in a stable order.
var Roles = []Role{Karta, Karma, Karana, Sampradana, Apadana, Adhikarana}

var roleAliases = map[string]Role{
	"karta":      Karta,
	"kartā":      Karta,
	"agent":      Karta,
	"karma":      Karma,
	"object":     Karma,
	"patient":    Karma,
	"karana":     Karana,
	"karaṇa":     Karana,
	"instrument": Karana,
	"sampradana": Sampradana,
	"sampradāna": Sampradana,
	"recipient":  Sampradana,
	"apadana":    Apadana,
	"apādāna":    Apadana,
	"source":     Apadana,
	"adhikarana": Adhikarana,
	"adhikaraṇa": Adhikarana,
	"location":   Adhikarana,
	"locus":      Adhikarana,
	"time":       Adhikarana,
}

// ParseRole resolves a role name or English alias, ignoring case and
// surrounding whitespace.
func ParseRole(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if r, ok := roleAliases[key]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case Karta, Karma, Karana, Sampradana, Apadana, Adhikarana:
		return true
	}
	return false
}

// English returns the plain-language name of the role.
func (r Role) English() string {
	switch r {
	case Karta:
		return "Agent"
	case Karma:
		return "Object"
	case Karana:
		return "Instrument"
	case Sampradana:
		return "Recipient"
	case Apadana:
		return "Source"
	case Adhikarana:
		return "Location"
	}
	return string(r)
}

func (r Role) String() string { return string(r) }

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, string(r))
	}
	return json.Marshal(string(r))
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalText lets Role be used as a JSON object key.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, string(r))
	}
	return []byte(r), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
