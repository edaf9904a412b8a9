package script

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/castpress/castpress/pkg/models"
)

// ErrScriptParse is returned when no parsing strategy yields a valid
// dialogue array.
var ErrScriptParse = errors.New("model output is not a valid dialogue script")

var bracketedArray = regexp.MustCompile(`(?s)\[.*\]`)

// ParseDialogue turns raw model output into a validated ordered dialogue.
// Models do not always return clean JSON, so it tries three strategies in
// order and returns on the first that parses and validates:
//
//  1. the raw string as a JSON array,
//  2. the first [...] bracketed substring,
//  3. the string with surrounding ``` fences stripped.
func ParseDialogue(raw string) ([]models.DialogueLine, error) {
	candidates := []string{raw}
	if m := bracketedArray.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}
	candidates = append(candidates, stripFences(raw))

	for _, candidate := range candidates {
		lines, err := parseAndValidate(candidate)
		if err == nil {
			return lines, nil
		}
	}
	return nil, ErrScriptParse
}

func parseAndValidate(candidate string) ([]models.DialogueLine, error) {
	var lines []models.DialogueLine
	if err := json.Unmarshal([]byte(candidate), &lines); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrScriptParse
	}
	for _, line := range lines {
		if line.Speaker != "A" && line.Speaker != "B" {
			return nil, ErrScriptParse
		}
		if strings.TrimSpace(line.Text) == "" {
			return nil, ErrScriptParse
		}
	}
	return lines, nil
}

// stripFences removes leading/trailing triple-backtick fences, with or
// without a language tag on the opening fence.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop a language tag like "json" on the opening fence line.
		first := strings.TrimSpace(s[:nl])
		if len(first) <= 10 && !strings.ContainsAny(first, "[{") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
