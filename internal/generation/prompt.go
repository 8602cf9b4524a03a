package generation

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const systemPrompt = `You are a developer knowledge assistant. Answer the question using ONLY the numbered context passages below. Cite the passages you used by their numbers, e.g. [1] or [2][3]. If the context does not contain the answer, say so plainly instead of guessing.`

// buildUserPrompt renders the numbered context blocks followed by the question.
// Every passage gets a block; the model cites them by number.
func buildUserPrompt(question string, passages []*models.Passage) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	for i, p := range passages {
		b.WriteString(fmt.Sprintf("[%d] %s", i+1, p.Title))
		if p.SourceURL != "" {
			b.WriteString(" (" + p.SourceURL + ")")
		}
		b.WriteString("\n")
		b.WriteString(p.Chunk.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
