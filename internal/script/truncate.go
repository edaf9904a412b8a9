// Package script holds the pure text transforms of the pipeline: word-budget
// enforcement, synthesis chunking, dialogue parsing, and prompt templates.
package script

import "strings"

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Truncate enforces a tier's word budget. Text at or under maxWords is
// returned unchanged. Over-budget text is cut to maxWords and then backed up
// to the nearest preceding sentence terminator, so the script ends naturally
// when it can; if no terminator exists within the truncated span, the hard
// cut stands.
func Truncate(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	cut := strings.Join(words[:maxWords], " ")

	if idx := lastSentenceEnd(cut); idx >= 0 {
		return cut[:idx+1]
	}
	return cut
}

// lastSentenceEnd returns the index of the last '.', '?' or '!' in s, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '.', '?', '!':
			return i
		}
	}
	return -1
}
