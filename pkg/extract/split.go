package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Line is one numbered line of a document.
type Line struct {
	Number int
	Text   string
}

// SplitLines numbers the lines of text from 1. Empty lines are kept so
// numbering matches the source; a trailing newline does not add a line.
func SplitLines(text string) []Line {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	raw := strings.Split(text, "\n")
	out := make([]Line, len(raw))
	for i, l := range raw {
		out[i] = Line{Number: i + 1, Text: strings.TrimRight(l, " \t\r")}
	}
	return out
}

// sentence end followed by whitespace
var reSentenceEnd = regexp.MustCompile(`[.!?]+["')\]]*\s+`)

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "vs": true, "etc": true,
	"e.g": true, "i.e": true, "fig": true, "approx": true,
}

// SplitSentences splits text at sentence punctuation followed by space.
// Splits after common abbreviations and single initials are suppressed. The
// segments are cut losslessly; if rejoining them does not reproduce text
// the whole text is returned as one sentence. Returned sentences are
// trimmed and blank ones dropped.
func SplitSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var segments []string
	start := 0
	for _, m := range reSentenceEnd.FindAllStringIndex(text, -1) {
		if isAbbreviation(text[start:m[0]]) {
			continue
		}
		segments = append(segments, text[start:m[1]])
		start = m[1]
	}
	if start < len(text) {
		segments = append(segments, text[start:])
	}

	if strings.Join(segments, "") != text {
		segments = []string{text}
	}

	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// isAbbreviation reports whether the text before a period ends in a known
// abbreviation or a single capital initial.
func isAbbreviation(before string) bool {
	i := strings.LastIndexFunc(before, unicode.IsSpace)
	word := before[i+1:]
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 && unicode.IsUpper([]rune(word)[0]) {
		return true
	}
	return abbreviations[strings.ToLower(strings.TrimSuffix(word, "."))]
}
