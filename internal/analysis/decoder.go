package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError indicates the generative endpoint's answer did not
// contain a valid draft. The decoder fails closed: no string-repair
// heuristics, no partially-filled result.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis: %s: %v", e.Reason, e.Err)
	}
	return "analysis: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DraftSection is one titled block of a petition draft.
type DraftSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// PetitionDraft is the structured answer schema.
type PetitionDraft struct {
	Title      string         `json:"title"`
	Summary    string         `json:"summary"`
	Sections   []DraftSection `json:"sections"`
	LegalBasis []string       `json:"legalBasis"`
}

// DecodeDraft extracts the single JSON object from a free-text answer
// and decodes it strictly. Surrounding prose and code fences are
// tolerated by locating the outermost balanced object; anything less
// than a complete, schema-conforming object is a *ParseError.
func DecodeDraft(raw string) (*PetitionDraft, error) {
	object, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(object))
	decoder.DisallowUnknownFields()

	var draft PetitionDraft
	if err := decoder.Decode(&draft); err != nil {
		return nil, &ParseError{Reason: "answer is not a valid draft object", Err: err}
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, &ParseError{Reason: "draft missing title"}
	}
	if len(draft.Sections) == 0 {
		return nil, &ParseError{Reason: "draft has no sections"}
	}
	return &draft, nil
}

// extractJSONObject returns the first balanced top-level JSON object
// in raw, respecting string literals and escapes.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", &ParseError{Reason: "answer contains no JSON object"}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", &ParseError{Reason: "answer contains an unterminated JSON object"}
}
