/*
wrap.go - Greedy word wrap

PURPOSE:
  Splits free text into lines that fit a column width, using whatever
  width metric the caller injects. Greedy: words are packed onto a line
  until the next word would overflow, then a new line starts.

INVARIANT:
  Words are never split or hyphenated. A single word wider than the limit
  goes alone on its own line and is allowed to overflow horizontally -
  truncating inside a commodity code or an MRN would corrupt the value.
*/
package layout

import "strings"

// WrapText splits text into lines no wider than maxWidth as reported by
// measure. The result preserves word order; consecutive whitespace
// collapses. Empty or all-whitespace text yields no lines.
func WrapText(text string, maxWidth float64, font string, size float64, measure WidthMeasurer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate, font, size) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		// The word starts the next line even if it alone exceeds maxWidth.
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
