package app

import (
	"fmt"
	"strings"

	"bookassist/pkg/domain"
)

// noContextSentinel tells the model to answer from general knowledge and
// flag low confidence. Callers must not treat it as an error.
const noContextSentinel = "No context available."

// AssembleContext composes the prompt context block. Selected text always
// leads, then retrieved chunks with 1-indexed source annotations.
func AssembleContext(chunks []domain.RetrievedChunk, selectedText string) string {
	var parts []string

	if selectedText != "" {
		parts = append(parts, "**User Selected Text (Primary Focus):**\n"+selectedText)
		parts = append(parts, "\n---\n")
	}

	if len(chunks) > 0 {
		parts = append(parts, "**Relevant Context from Textbook:**\n")
		for i, chunk := range chunks {
			source := chunk.Metadata["source"]
			if source == "" {
				source = "Unknown"
			}
			parts = append(parts, fmt.Sprintf("\n[%d] (Source: %s)\n%s", i+1, source, chunk.Text))
		}
	}

	if len(parts) == 0 {
		return noContextSentinel
	}
	return strings.Join(parts, "\n")
}
