package summarizer

import "strings"

// Placeholder marks where the extracted activities go in the prompt template.
const Placeholder = "<< last-7-days-activities.md >>"

// BuildPrompt replaces every occurrence of Placeholder in template with
// content, byte for byte.
func BuildPrompt(template, content string) string {
	return strings.ReplaceAll(template, Placeholder, content)
}
