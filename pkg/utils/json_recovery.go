package utils

import (
	"regexp"
	"strings"
)

var (
	jsonFenceOpen = regexp.MustCompile("(?i)```[ \\t]*json[ \\t]*\\r?\\n?")
	bareFenceOpen = regexp.MustCompile("```[ \\t]*\\r?\\n")
)

// RecoverJSON extracts the JSON payload embedded in free-form model output
// and repairs trailing commas. A well-formed unfenced payload is returned
// unchanged. When no balanced payload exists the best-effort substring is
// returned and decoding is left to fail downstream.
func RecoverJSON(raw string) string {
	text := unfence(strings.TrimSpace(raw))

	start := findJSONStart(text)
	if start < 0 {
		return text
	}

	end := findJSONEnd(text, start)
	if end < 0 {
		closing := closerFor(text[start])
		if last := strings.LastIndexByte(text[start:], closing); last >= 0 {
			end = start + last + 1
		} else {
			end = len(text)
		}
	}

	return stripTrailingCommas(text[start:end])
}

// stripTrailingCommas drops every comma, and the whitespace after it, that
// directly precedes a '}' or ']'. Quoted strings are left untouched.
func stripTrailingCommas(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	inString := false
	escapeNext := false

	for i := 0; i < len(content); i++ {
		char := content[i]

		if inString {
			switch {
			case escapeNext:
				escapeNext = false
			case char == '\\':
				escapeNext = true
			case char == '"':
				inString = false
			}
			b.WriteByte(char)
			continue
		}

		switch char {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(content) && isJSONSpace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				i = j - 1
				continue
			}
		}
		b.WriteByte(char)
	}

	return b.String()
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// unfence returns the content of the first ```json block, falling back to
// the first unlabelled ``` block, or text itself when there is neither. An
// unclosed fence yields everything after it.
func unfence(text string) string {
	loc := jsonFenceOpen.FindStringIndex(text)
	if loc == nil {
		loc = bareFenceOpen.FindStringIndex(text)
	}
	if loc == nil {
		return text
	}
	body := text[loc[1]:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// findJSONStart returns the index of the first '{' or '[', whichever comes first.
func findJSONStart(content string) int {
	return strings.IndexAny(content, "{[")
}

func closerFor(open byte) byte {
	if open == '[' {
		return ']'
	}
	return '}'
}

// findJSONEnd returns the index just past the bracket that closes the one at
// start, or -1 if the payload is unbalanced. Quoted strings are opaque.
func findJSONEnd(content string, start int) int {
	if start < 0 || start >= len(content) {
		return -1
	}
	open := content[start]
	if open != '{' && open != '[' {
		return -1
	}
	closing := closerFor(open)

	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		char := content[i]

		if inString {
			switch {
			case escapeNext:
				escapeNext = false
			case char == '\\':
				escapeNext = true
			case char == '"':
				inString = false
			}
			continue
		}

		switch char {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return -1
}
