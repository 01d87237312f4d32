package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// GenerateSchema creates a JSON Schema from the given Go type.
// It uses reflection to inspect the type structure and generates
// a schema suitable for use with AI structured output.
func GenerateSchema(value any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}

// UnmarshalFlexible attempts to unmarshal JSON into the target with multiple fallback strategies.
// It first tries standard JSON unmarshaling, then handles double-encoded JSON strings,
// and finally attempts to repair malformed JSON before parsing.
//
// This is useful for parsing AI-generated JSON which may be malformed or wrapped in strings.
//
// Example:
//
//	var result MyStruct
//	// All of these inputs would work:
//	UnmarshalFlexible(`{"name": "test"}`, &result)           // standard JSON
//	UnmarshalFlexible(`"{\"name\": \"test\"}"`, &result)     // double-encoded
//	UnmarshalFlexible(`{name: "test"}`, &result)             // malformed (repaired)
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w (input: %s)", err, input)
	}

	if err := json.Unmarshal([]byte(repaired), out); err == nil {
		return nil
	}

	return fmt.Errorf(
		"unmarshal failed after repair: input=%s repaired=%s",
		input, repaired,
	)
}

// JSONStrategy pulls a JSON candidate out of a model response. Candidate
// returns false when the strategy does not apply to the input.
type JSONStrategy struct {
	Name      string
	Candidate func(input string) (string, bool)
}

var (
	reFence   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	reJSONTag = regexp.MustCompile(`(?s)<json>\s*(.*?)\s*</json>`)
)

// FencedStrategy takes the body of the first markdown code fence.
var FencedStrategy = JSONStrategy{
	Name: "fenced",
	Candidate: func(input string) (string, bool) {
		m := reFence.FindStringSubmatch(input)
		if m == nil {
			return "", false
		}
		return strings.TrimSpace(m[1]), true
	},
}

// TaggedStrategy takes the body of the first <json>...</json> block.
var TaggedStrategy = JSONStrategy{
	Name: "tagged",
	Candidate: func(input string) (string, bool) {
		m := reJSONTag.FindStringSubmatch(input)
		if m == nil {
			return "", false
		}
		return m[1], true
	},
}

// WholeStrategy uses the full response when it already looks like JSON.
var WholeStrategy = JSONStrategy{
	Name: "whole",
	Candidate: func(input string) (string, bool) {
		s := strings.TrimSpace(input)
		if s == "" {
			return "", false
		}
		switch s[0] {
		case '{', '[', '"':
			return s, true
		}
		return "", false
	},
}

// ObjectSpanStrategy takes everything from the first '{' to the last '}'.
var ObjectSpanStrategy = JSONStrategy{
	Name: "object-span",
	Candidate: func(input string) (string, bool) {
		return span(input, '{', '}')
	},
}

// ArraySpanStrategy takes everything from the first '[' to the last ']'.
var ArraySpanStrategy = JSONStrategy{
	Name: "array-span",
	Candidate: func(input string) (string, bool) {
		return span(input, '[', ']')
	},
}

// DefaultJSONStrategies is the order ExtractJSON tries by default.
var DefaultJSONStrategies = []JSONStrategy{
	FencedStrategy,
	TaggedStrategy,
	WholeStrategy,
	ObjectSpanStrategy,
	ArraySpanStrategy,
}

func span(input string, open, close byte) (string, bool) {
	start := strings.IndexByte(input, open)
	end := strings.LastIndexByte(input, close)
	if start < 0 || end <= start {
		return "", false
	}
	return input[start : end+1], true
}

// ErrNoJSON is returned by ExtractJSON when no strategy yields a value that
// decodes into the target.
var ErrNoJSON = errors.New("no JSON value found in model response")

// ExtractJSON decodes the first JSON value found in a noisy model response
// into out. Strategies are tried in order (DefaultJSONStrategies when none
// are given) and every candidate is decoded with UnmarshalFlexible.
func ExtractJSON(input string, out any, strategies ...JSONStrategy) error {
	if len(strategies) == 0 {
		strategies = DefaultJSONStrategies
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	var errs []error
	for _, st := range strategies {
		candidate, ok := st.Candidate(input)
		if !ok {
			continue
		}
		// decode into a scratch value so a failed strategy leaves out untouched
		tmp := reflect.New(rv.Elem().Type())
		if err := UnmarshalFlexible(candidate, tmp.Interface()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.Name, err))
			continue
		}
		rv.Elem().Set(tmp.Elem())
		return nil
	}
	if len(errs) == 0 {
		return ErrNoJSON
	}
	return fmt.Errorf("%w: %w", ErrNoJSON, errors.Join(errs...))
}
