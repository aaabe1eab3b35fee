package analysis

import (
	"fmt"
	"strings"
)

// PromptInput is the structured request a petition draft is built
// from.
type PromptInput struct {
	ClientName   string
	Category     string
	DocumentKind string
	Facts        []string
}

// BuildPrompt renders the natural-language prompt sent to the
// generative endpoint. The answer contract (a single JSON object) is
// stated in the prompt and enforced by the decoder.
func BuildPrompt(input PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a %s for a %s matter on behalf of %s.\n",
		orDefault(input.DocumentKind, "petition"),
		orDefault(input.Category, "general"),
		orDefault(input.ClientName, "the client"))
	if len(input.Facts) > 0 {
		b.WriteString("Relevant facts:\n")
		for _, fact := range input.Facts {
			fmt.Fprintf(&b, "- %s\n", fact)
		}
	}
	b.WriteString("Answer with a single JSON object with keys ")
	b.WriteString(`"title", "summary", "sections" (array of {"heading","body"}) and "legalBasis" (array of strings).`)
	b.WriteString(" Do not include any text outside the JSON object.")
	return b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
