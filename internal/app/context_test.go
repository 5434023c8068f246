package app

import (
	"strings"
	"testing"

	"bookassist/pkg/domain"
)

func TestAssembleContextSelectedTextLeads(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		{Text: "chunk one", Metadata: map[string]string{"source": "ch01.md"}},
		{Text: "chunk two", Metadata: map[string]string{"source": "ch02.md"}},
	}
	out := AssembleContext(chunks, "the highlighted passage")

	selIdx := strings.Index(out, "**User Selected Text (Primary Focus):**")
	ctxIdx := strings.Index(out, "**Relevant Context from Textbook:**")
	if selIdx < 0 || ctxIdx < 0 || selIdx > ctxIdx {
		t.Fatalf("selected text must precede retrieved context:\n%s", out)
	}
	if !strings.Contains(out, "the highlighted passage") {
		t.Fatalf("selected text missing:\n%s", out)
	}
	if !strings.Contains(out, "\n---\n") {
		t.Fatalf("separator missing:\n%s", out)
	}
	if !strings.Contains(out, "[1] (Source: ch01.md)\nchunk one") {
		t.Fatalf("first chunk annotation wrong:\n%s", out)
	}
	if !strings.Contains(out, "[2] (Source: ch02.md)\nchunk two") {
		t.Fatalf("second chunk annotation wrong:\n%s", out)
	}
}

func TestAssembleContextChunksOnly(t *testing.T) {
	out := AssembleContext([]domain.RetrievedChunk{{Text: "only chunk", Metadata: map[string]string{}}}, "")
	if strings.Contains(out, "Primary Focus") {
		t.Fatalf("no selected-text block expected:\n%s", out)
	}
	if !strings.Contains(out, "(Source: Unknown)") {
		t.Fatalf("missing source fallback:\n%s", out)
	}
}

func TestAssembleContextEmpty(t *testing.T) {
	if out := AssembleContext(nil, ""); out != noContextSentinel {
		t.Fatalf("want sentinel, got %q", out)
	}
}
