package llm

import "strings"

// SummaryInstruction is the base system prompt for chunk summarization.
const SummaryInstruction = "Rewrite this text in summarized form."

// SystemPrompt appends caller instructions to the base summarization prompt.
func SystemPrompt(additional string) string {
	if additional == "" {
		return SummaryInstruction
	}
	return SummaryInstruction + "\n\n" + additional
}

// RecursivePrompt prefixes chunk with the summaries produced so far.
// With no previous summaries the chunk is returned unchanged.
func RecursivePrompt(previous []string, chunk string) string {
	if len(previous) == 0 {
		return chunk
	}
	var sb strings.Builder
	sb.WriteString("Previous summaries:\n\n")
	sb.WriteString(strings.Join(previous, "\n\n"))
	sb.WriteString("\n\nText to summarize next:\n\n")
	sb.WriteString(chunk)
	return sb.String()
}
