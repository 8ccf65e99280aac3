package annotation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// emptyMarkdown is the exact document produced for an empty list.
const emptyMarkdown = "# Debug Annotations\n\nNo annotations found."

// ExportJSON serialises a filtered-sorted list as a pretty-printed JSON
// array. Side-effect free; delivery is the caller's concern.
func ExportJSON(list []Annotation) (string, error) {
	if list == nil {
		list = []Annotation{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("annotation: export json: %w", err)
	}
	return string(data), nil
}

// ExportMarkdown serialises a filtered-sorted list as a structured text
// document: header, per-entry selector/component/status/timestamp/comment/
// prompt block, separators. Captured HTML snippets are rendered as a
// markdown context block.
func ExportMarkdown(list []Annotation) string {
	if len(list) == 0 {
		return emptyMarkdown
	}

	var b strings.Builder
	b.WriteString("# Debug Annotations\n\n")
	fmt.Fprintf(&b, "%d annotation(s)\n", len(list))

	for _, a := range list {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "## `%s`\n\n", a.Selector)
		if a.Target.Component != "" {
			fmt.Fprintf(&b, "- **Component**: %s\n", a.Target.Component)
		}
		fmt.Fprintf(&b, "- **Status**: %s\n", a.Status)
		fmt.Fprintf(&b, "- **Created**: %s\n", time.UnixMilli(a.CreatedAt).UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "\n**Comment**: %s\n", a.Comment)
		if a.Prompt != "" {
			fmt.Fprintf(&b, "\n**Prompt**:\n\n> %s\n", strings.ReplaceAll(a.Prompt, "\n", "\n> "))
		}
		if md := snippetMarkdown(a.Snippet); md != "" {
			fmt.Fprintf(&b, "\n**Context**:\n\n```\n%s\n```\n", md)
		}
	}
	return b.String()
}

// snippetMarkdown converts a sanitized HTML snippet to markdown. Conversion
// failures drop the context block rather than failing the export.
func snippetMarkdown(snippet string) string {
	if strings.TrimSpace(snippet) == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(snippet)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}
