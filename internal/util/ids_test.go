package util

import (
	"testing"
)

const (
	id1 = "sGvgBXbBcVCjBIKCLS2Os"
	id2 = "tHwhCYcCdWDkCJLDMT3Pt"
)

func TestIsNanoid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"Valid21Chars", id1, true},
		{"Valid21CharsAlt", id2, true},
		{"TooShort", "abc123", false},
		{"TooLong", "sGvgBXbBcVCjBIKCLS2OsX", false},
		{"WithSpace", "sGvgBXbBcVCjBIKCL 2Os", false},
		{"WithComma", "sGvgBXbBcVCjBIKCL,2Os", false},
		{"Empty", "", false},
		{"AllDashes", "---------------------", true},
		{"MixedValid", "Aa0_-Bb1_-Cc2_-Dd3_-E", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := IsNanoid(tc.in)
			if got != tc.want {
				t.Fatalf("IsNanoid(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewDocumentID(t *testing.T) {
	a := NewDocumentID()
	b := NewDocumentID()
	if !IsNanoid(a) || !IsNanoid(b) {
		t.Fatalf("expected nanoid shaped ids, got %q and %q", a, b)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
}

func TestActionID_Deterministic(t *testing.T) {
	a := ActionID("ramayana_1", 3, 1)
	b := ActionID("ramayana_1", 3, 1)
	if a != b {
		t.Fatalf("expected equal ids, got %q and %q", a, b)
	}
	if a != "ramayana_1:action_3_1" {
		t.Fatalf("unexpected id %q", a)
	}
	if ActionID("ramayana_2", 3, 1) == a {
		t.Fatal("expected ids to be scoped by document")
	}
}

func TestParseActionID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		doc     string
		line    int
		seq     int
		wantErr bool
	}{
		{"roundtrip", ActionID("doc", 12, 0), "doc", 12, 0, false},
		{"doc with colon", ActionID("a:b", 1, 2), "a:b", 1, 2, false},
		{"no marker", "doc_12_0", "", 0, 0, true},
		{"bad line", "doc:action_x_0", "", 0, 0, true},
		{"missing seq", "doc:action_4", "", 0, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, line, seq, err := ParseActionID(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc != tc.doc || line != tc.line || seq != tc.seq {
				t.Fatalf("got (%q, %d, %d), want (%q, %d, %d)", doc, line, seq, tc.doc, tc.line, tc.seq)
			}
		})
	}
}
