package script

import (
	"fmt"

	"github.com/castpress/castpress/pkg/models"
)

// BrandDisclosure is the fixed opening line every generated script must
// carry. It is a contract on the prompt, not a validation rule: the prompt
// template below is the single source of truth, and output is never rejected
// for omitting it.
const BrandDisclosure = "This episode was produced with Castpress, an automated narration service."

// SummaryPrompt asks for a neutral, objective synopsis of the transcript.
func SummaryPrompt(transcript string) string {
	return fmt.Sprintf(`You are an impartial editor. Write a neutral, objective synopsis of the
following transcript. Report what was said without opinion, promotion, or
commentary. Respond with the synopsis only.

Transcript:
%s`, transcript)
}

// NarratorPrompt asks for a single-narrator episode script built from the
// summary, bounded by the tier's word budget.
func NarratorPrompt(summary string, tier models.TierSpec) string {
	return fmt.Sprintf(`Write a spoken narration script for a short audio episode based on the
summary below. Write between %d and %d words of flowing prose suitable for
reading aloud. Do not use headings, stage directions, or markdown.

The script must open with this exact sentence, verbatim:
%s

Summary:
%s`, tier.MinWords, tier.MaxWords, BrandDisclosure, summary)
}

// DialoguePrompt asks for a two-host conversation encoded as a JSON array of
// {"speaker","text"} objects, speakers "A" and "B" alternating naturally.
func DialoguePrompt(summary string, tier models.TierSpec) string {
	return fmt.Sprintf(`Write a conversational script for two podcast hosts, A and B, discussing
the summary below. Use between %d and %d words in total. Respond ONLY with a
JSON array in which every element is {"speaker": "A" or "B", "text": "..."}.
No prose before or after the array.

Host A's first line must open with this exact sentence, verbatim:
%s

Summary:
%s`, tier.MinWords, tier.MaxWords, BrandDisclosure, summary)
}
