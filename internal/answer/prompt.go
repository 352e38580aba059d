package answer

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/docqa/internal/vectordb"
)

const systemPrompt = `You answer questions about a fixed set of documents. Use only the information in the supplied context. Do not add facts from outside the context. If the context does not contain the answer, say that the documents do not cover it.`

const contextSeparator = "\n\n---\n\n"

// BuildPrompt lays out the retrieved chunks as the context block followed by
// the question.
func BuildPrompt(question string, results []vectordb.SearchResult) string {
	var b strings.Builder

	b.WriteString("Answer based ONLY on the context below.\n\n")
	b.WriteString("Context:\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString(contextSeparator)
		}
		if r.Document.Metadata.Source != "" {
			fmt.Fprintf(&b, "[%s]\n", r.Document.Metadata.Source)
		}
		b.WriteString(strings.TrimSpace(r.Document.Content))
	}

	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nAnswer:", strings.TrimSpace(question))
	return b.String()
}
