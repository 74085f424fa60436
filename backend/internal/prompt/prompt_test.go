package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"agent-neo/backend/internal/domain"
)

func TestBuild_SelectsTemplate(t *testing.T) {
	tests := []struct {
		name string
		docs []domain.Document
		want Kind
	}{
		{"no documents", nil, KindNoContext},
		{"empty slice", []domain.Document{}, KindNoContext},
		{"one document", []domain.Document{{Index: "1", URL: "https://neo4j.com/docs/gds", Text: "GDS"}}, KindContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build("What is GDS?", tt.docs)
			assert.Equal(t, tt.want, p.Kind)
			assert.Contains(t, p.Text, "experienced graph data scientist at Neo4j: What is GDS?")
		})
	}
}

func TestBuild_ContextListsDocuments(t *testing.T) {
	p := Build("  How do I run PageRank? ", []domain.Document{
		{Index: "4", URL: "https://neo4j.com/docs/gds/pagerank", Text: "PageRank   measures\n importance"},
		{Index: "9", URL: "https://neo4j.com/docs/gds/louvain", Text: "Louvain"},
	})

	assert.Contains(t, p.Text, "run PageRank?\n2.")
	assert.Contains(t, p.Text, "[1] url: https://neo4j.com/docs/gds/pagerank\ntext: PageRank measures importance")
	assert.Contains(t, p.Text, "[2] url: https://neo4j.com/docs/gds/louvain")
	assert.Contains(t, p.Text, "4. Return your answer with sources.")
}

func TestBuild_NoContextWording(t *testing.T) {
	p := Build("What is Cypher?", nil)
	assert.Contains(t, p.Text, "2. Use your knowledge to answer the user question.")
	assert.Contains(t, p.Text, "3. Return your answer with sources if possible.")
	assert.NotContains(t, p.Text, "context documents")
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "plain text", cleanText("plain \n text"))
	assert.Equal(t, "Call gds.pageRank.stream here.",
		cleanText(`<p>Call <code>gds.pageRank.stream</code> here.</p><script>track()</script>`))
}
