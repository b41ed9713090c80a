package model

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabeler converts a field name into a label: "weight_unit" becomes
// "Weight unit". It splits on underscores, dashes and camelCase boundaries
// and capitalises the first word only.
func DefaultLabeler(name string) string {
	if name == "" {
		return ""
	}

	var segments []string
	for _, word := range splitWordsPattern.Split(name, -1) {
		if word == "" {
			continue
		}
		segments = append(segments, strings.ToLower(splitCamel(word)))
	}
	label := strings.TrimSpace(strings.Join(segments, " "))
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isBoundary(input, i, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(input string, index int, r rune) bool {
	prev := rune(input[index-1])
	return (isLower(prev) && isUpper(r)) || (isLetter(prev) && isDigit(r)) || (isDigit(prev) && isLetter(r))
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }
