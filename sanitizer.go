package repeat_gpt

import (
	"regexp"
	"strings"
)

var extraWhiteSpace = regexp.MustCompile("[[:space:]]+")

// SanitizeText
// Cleans up whitespace in a post: Windows `\r` is dropped, runs of newlines
// collapse to one, escaped `\n` becomes a newline, ` :` becomes `:`, tabs
// become spaces, and each line has its inner whitespace collapsed and its
// ends trimmed.
func SanitizeText(text string) string {
	acc := make([]rune, 0, len(text))
	lastRune := rune(0)
	for _, r := range text {
		switch {
		case r == '\r':
			// Silently drop Windows `\r`
			continue
		case r == '\n' && lastRune == '\n':
			// Drop additional newlines.
			continue
		case r == 'n' && lastRune == '\\':
			// Replace escaped `\n` with `\n`, unless that doubles a newline.
			if len(acc) > 1 && acc[len(acc)-2] == '\n' {
				acc = acc[:len(acc)-1]
			} else {
				acc[len(acc)-1] = '\n'
			}
		case r == ':' && lastRune == ' ':
			// Strip colons with leading spaces.
			acc[len(acc)-1] = ':'
		case r == '\t':
			acc = append(acc, ' ')
		default:
			acc = append(acc, r)
		}
		if len(acc) > 0 {
			lastRune = acc[len(acc)-1]
		} else {
			lastRune = 0
		}
	}
	lines := strings.Split(string(acc), "\n")
	for lineIdx := range lines {
		line := extraWhiteSpace.ReplaceAllString(lines[lineIdx], " ")
		lines[lineIdx] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
