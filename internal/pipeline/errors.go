package pipeline

import (
	"errors"

	"github.com/castpress/castpress/internal/script"
	"github.com/castpress/castpress/internal/text"
	"github.com/castpress/castpress/internal/tts"
)

var (
	// ErrTranscriptMissing means the job has no transcript to work from.
	ErrTranscriptMissing = errors.New("job transcript is empty")

	// ErrAssembly covers chunk download, concatenation, and final upload
	// failures.
	ErrAssembly = errors.New("episode assembly failed")
)

// userSafeMessage maps the internal error taxonomy to the generic text shown
// on the job record. Provider internals never leave the logs.
func userSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrTranscriptMissing):
		return "This episode has no transcript to narrate."
	case errors.Is(err, text.ErrProviderFailure):
		return "We could not write your episode script. Please try again."
	case errors.Is(err, script.ErrScriptParse):
		return "We could not prepare your episode script. Please try again."
	case errors.Is(err, tts.ErrSynthesisFailure):
		return "We could not generate audio for this episode. Please try again."
	case errors.Is(err, ErrAssembly):
		return "We could not assemble your episode audio. Please try again."
	default:
		return "Something went wrong while producing your episode."
	}
}
