// Package chunker splits markdown book chapters into heading-bounded
// chunks with breadcrumb context. Pure functions of the input text.
package chunker

import (
	"regexp"
	"strings"

	"bookassist/pkg/domain"
)

// Sections shorter than this after trimming are treated as noise
// (stray whitespace, empty headings) and dropped.
const minSectionLength = 50

var titlePattern = regexp.MustCompile(`(?m)^title:\s*["']?(.+?)["']?\s*$`)

// Split chunks one markdown document at level-2 headings. The heading
// stays with its section; content before the first heading forms its own
// section. Identical input always yields byte-identical output.
func Split(filename, content string) []domain.Chunk {
	body, title := stripFrontmatter(content)

	var chunks []domain.Chunk
	for _, section := range splitSections(body) {
		section = strings.TrimSpace(section)
		if len(section) < minSectionLength {
			continue
		}
		heading := extractHeading(section)
		chunks = append(chunks, domain.Chunk{
			Text:       breadcrumb(title, heading) + section,
			SourceFile: filename,
			Title:      title,
			Heading:    heading,
		})
	}
	for i := range chunks {
		chunks[i].SequenceIndex = i
		chunks[i].TotalChunksInSource = len(chunks)
	}
	return chunks
}

// stripFrontmatter removes a leading YAML metadata block and extracts the
// title field when present.
func stripFrontmatter(content string) (body, title string) {
	if !strings.HasPrefix(content, "---\n") {
		return content, ""
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return content, ""
	}
	frontmatter := rest[:end]
	if m := titlePattern.FindStringSubmatch(frontmatter); m != nil {
		title = m[1]
	}
	return rest[end+len("\n---\n"):], title
}

// splitSections splits at every line beginning "## ", keeping the heading
// with the following section. Concatenating the result reproduces the
// input.
func splitSections(body string) []string {
	lines := strings.SplitAfter(body, "\n")
	var sections []string
	var current strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(line, "## ") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

func extractHeading(section string) string {
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "## ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "## "))
		}
	}
	return ""
}

// breadcrumb prepends hierarchical context: "title > heading", whichever
// exists, or nothing.
func breadcrumb(title, heading string) string {
	switch {
	case title != "" && heading != "":
		return title + " > " + heading + "\n\n"
	case title != "":
		return title + "\n\n"
	default:
		return ""
	}
}
