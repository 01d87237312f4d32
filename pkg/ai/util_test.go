package ai

import (
	"errors"
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  person
	}{
		{
			name:  "valid json object",
			input: `{"name":"John"}`,
			want:  person{Name: "John"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'John'}`,
			want:  person{Name: "John"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"John",}`,
			want:  person{Name: "John"},
		},
		{
			name:  "missing endbracket",
			input: `{"name":"John`,
			want:  person{Name: "John"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{name: 'John'}"`,
			want:  person{Name: "John"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"name\": \"John\"\n}\n",
			want:  person{Name: "John"},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "name": "John" }`,
			want:  person{Name: "John"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got person
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Age != tc.want.Age {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age,omitempty"`
	}

	input := `[{name:'A'},{name:'B',}]`
	var got []person
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two persons A,B", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age,omitempty"`
	}

	var got person
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_CountryExamples(t *testing.T) {
	type country struct {
		Name      string   `json:"name"`
		Capital   string   `json:"capital"`
		Languages []string `json:"languages"`
	}

	tests := []struct {
		name  string
		input string
		want  country
	}{
		{
			name:  "canada simple stringified",
			input: `"{ \"name\": \"Canada\", \"capital\": \"Ottawa\", \"languages\": [ \"English\", \"French\" ] }"`,
			want:  country{Name: "Canada", Capital: "Ottawa", Languages: []string{"English", "French"}},
		},
		{
			name:  "canada stringified with newlines",
			input: `"{\n  \"name\": \"Canada\",\n  \"capital\": \"Ottawa\",\n  \"languages\": [\"English\", \"French\", \"Other Indigenous Languages (e.g., Cree, Inuktitut)\"]\n  }\n"`,
			want:  country{Name: "Canada", Capital: "Ottawa", Languages: []string{"English", "French", "Other Indigenous Languages (e.g., Cree, Inuktitut)"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got country
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Capital != tc.want.Capital {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
			if len(got.Languages) != len(tc.want.Languages) {
				t.Fatalf("UnmarshalFlexible() languages length got = %d, want %d", len(got.Languages), len(tc.want.Languages))
			}
			for i := range got.Languages {
				if got.Languages[i] != tc.want.Languages[i] {
					t.Fatalf("UnmarshalFlexible() languages[%d] = %q, want %q", i, got.Languages[i], tc.want.Languages[i])
				}
			}
		})
	}
}

func TestJSONStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy JSONStrategy
		input    string
		want     string
		ok       bool
	}{
		{"fenced json", FencedStrategy, "Sure:\n```json\n{\"a\":1}\n```\nDone", `{"a":1}`, true},
		{"fenced bare", FencedStrategy, "```\n[1]\n```", `[1]`, true},
		{"fenced missing", FencedStrategy, `{"a":1}`, "", false},
		{"tagged", TaggedStrategy, "<reasoning>x</reasoning>\n<json>\n{\"kriya\":\"go\"}\n</json>", `{"kriya":"go"}`, true},
		{"whole object", WholeStrategy, "  {\"a\":1} ", `{"a":1}`, true},
		{"whole prose", WholeStrategy, "The answer is {\"a\":1}", "", false},
		{"object span", ObjectSpanStrategy, "Reasoning first. {\"a\":{\"b\":2}} trailing", `{"a":{"b":2}}`, true},
		{"object span reversed", ObjectSpanStrategy, "} nothing {", "", false},
		{"array span", ArraySpanStrategy, "Result: [1, 2] ok", `[1, 2]`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.strategy.Candidate(tc.input)
			if ok != tc.ok {
				t.Fatalf("Candidate() ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Fatalf("Candidate() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	type decomposition struct {
		Target string            `json:"target_karaka"`
		Verb   string            `json:"verb"`
		Cons   map[string]string `json:"constraints"`
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"target_karaka":"KARTA","verb":"give"}`, "KARTA"},
		{"markdown fence", "```json\n{\"target_karaka\": \"KARMA\"}\n```", "KARMA"},
		{"leading reasoning", "Let me think. The question asks who.\n{\"target_karaka\": \"KARTA\", \"constraints\": {\"SAMPRADANA\": \"Sita\"}}", "KARTA"},
		{"json tags", "<json>{\"target_karaka\": \"KARANA\"}</json>", "KARANA"},
		{"truncated", `{"target_karaka": "APADANA", "verb": "co`, "APADANA"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got decomposition
			if err := ExtractJSON(tc.input, &got); err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if got.Target != tc.want {
				t.Fatalf("ExtractJSON() target = %q, want %q", got.Target, tc.want)
			}
		})
	}

	t.Run("array target", func(t *testing.T) {
		var got []map[string]any
		input := "Here are the verbs:\n[{\"verb\": \"gives\"}, {\"verb\": \"reads\"}]"
		if err := ExtractJSON(input, &got); err != nil {
			t.Fatalf("ExtractJSON() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ExtractJSON() got %d items, want 2", len(got))
		}
	})

	t.Run("no json", func(t *testing.T) {
		var got decomposition
		err := ExtractJSON("I cannot answer that.", &got)
		if !errors.Is(err, ErrNoJSON) {
			t.Fatalf("ExtractJSON() error = %v, want ErrNoJSON", err)
		}
	})

	t.Run("custom strategy order", func(t *testing.T) {
		var got decomposition
		err := ExtractJSON(`prefix {"target_karaka":"KARTA"}`, &got, WholeStrategy)
		if !errors.Is(err, ErrNoJSON) {
			t.Fatalf("ExtractJSON() error = %v, want ErrNoJSON", err)
		}
	})
}
