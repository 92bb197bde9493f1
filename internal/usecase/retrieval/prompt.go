package retrieval

import (
	"fmt"
	"strings"

	"github.com/intellidoc-ai/intellidoc/internal/domain"
)

// systemPrompt pins the generator to the retrieved context. Temperature is
// forced to zero at the transport layer for the same reason.
const systemPrompt = "You are an assistant answering questions about uploaded documents. " +
	"Use only the provided context passages. If the context does not contain " +
	"the answer, say that you don't know. Answer concisely."

// buildUserPrompt lays out retrieved passages in descending relevance order
// followed by the question.
func buildUserPrompt(question string, hits []domain.ScoredSegment) string {
	var b strings.Builder
	b.WriteString("Context passages:\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, hit.Text)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
