// Package prompt renders the model input for a question and its retrieved context.
package prompt

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"agent-neo/backend/internal/domain"
)

const contextTemplate = `
Follow these steps exactly:
1. Read this question as an experienced graph data scientist at Neo4j: %s
2. Read and summarize the following context documents, ignoring any that do not relate to the user question: %s
3. Use this context and your knowledge to answer the user question.
4. Return your answer with sources.
`

const noContextTemplate = `
Follow these steps exactly:
1. Read this question as an experienced graph data scientist at Neo4j: %s
2. Use your knowledge to answer the user question.
3. Return your answer with sources if possible.
`

// Kind names the template a prompt was rendered from.
type Kind string

const (
	KindContext   Kind = "context"
	KindNoContext Kind = "no_context"
)

// Prompt is a rendered model input.
type Prompt struct {
	Kind Kind
	Text string
}

// Build uses the context template iff at least one document was retrieved.
func Build(question string, docs []domain.Document) Prompt {
	question = strings.TrimSpace(question)
	if len(docs) == 0 {
		return Prompt{Kind: KindNoContext, Text: fmt.Sprintf(noContextTemplate, question)}
	}
	return Prompt{Kind: KindContext, Text: fmt.Sprintf(contextTemplate, question, formatContext(docs))}
}

// formatContext lists each document as its url followed by its cleaned text.
func formatContext(docs []domain.Document) string {
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "\n[%d] url: %s\ntext: %s", i+1, d.URL, cleanText(d.Text))
	}
	return b.String()
}

// cleanText drops markup the scraper left in document text. Text that does not parse is kept as is.
func cleanText(text string) string {
	if !strings.ContainsAny(text, "<>") {
		return collapseSpace(text)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return collapseSpace(text)
	}
	doc.Find("script, style, noscript").Remove()
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
