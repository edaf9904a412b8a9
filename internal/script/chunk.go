package script

import "strings"

// Chunk splits narration into word-bounded pieces of at most wordLimit words
// each. Joining the chunks back with single spaces reconstructs the original
// word sequence exactly; chunk boundaries never split a word.
func Chunk(text string, wordLimit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if wordLimit <= 0 {
		return []string{strings.Join(words, " ")}
	}

	chunks := make([]string, 0, (len(words)+wordLimit-1)/wordLimit)
	for start := 0; start < len(words); start += wordLimit {
		end := start + wordLimit
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
