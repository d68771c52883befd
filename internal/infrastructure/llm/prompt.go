package llm

import (
	"fmt"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const (
	chatContextBudget    = 20000
	explainContextBudget = 10000
	summaryInputBudget   = 100000
	summaryTemperature   = 0.4
)

func buildChatPrompt(question string, chunks []domain.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("[Chunk %d]\n%s", i+1, chunk.Content))
	}
	contextText := truncateRunes(strings.Join(parts, "\n\n"), chatContextBudget)

	return `Based on the following context from a document, analyze the context and answer the user's question using ONLY the provided context.
- Use the SAME LANGUAGE as the context.
- If the answer is not present in the context, say "I don't know" (or the equivalent in the context's language).
- Be concise and factual. Respond ONLY with the answer.

Context:
` + contextText + `

Question: ` + question + `

Answer:`
}

func buildExplainPrompt(concept string, chunks []domain.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, chunk.Content)
	}
	contextText := truncateRunes(strings.Join(parts, "\n\n"), explainContextBudget)

	return fmt.Sprintf(`Explain the concept of %q based on the following context.
- Use the SAME LANGUAGE as the input.
- Provide a clear, educational explanation that's easy to understand.
- Include examples if relevant.
- Respond ONLY with the explanation.

Context:
%s`, concept, contextText)
}

func buildSummaryPrompt(text, language string) string {
	return `Role: You are an expert content summarizer.
Task: Analyze the provided text and generate a structured summary.

Rules:
1. If the text is short (under 1000 words), focus on the main points and keep it concise.
   If it is long, give a deeper summary that keeps important technical details.
2. Format strictly as Markdown: H3 headers (###) for sections, **bold** key terms, bullet points for ideas.
3. Structure: an overview, the core concepts with a short explanation each, and a conclusion.
4. Language: ` + language + `.

Text to summarize:
` + truncateRunes(text, summaryInputBudget)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
