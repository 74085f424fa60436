package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"agent-neo/backend/internal/domain"
)

// historyRow is one row of the history query: the path from the conversation to one message,
// and the paths from that message to its context documents.
type historyRow struct {
	MessagePath   neo4j.Path
	DocumentPaths []neo4j.Path
}

func historyRowsFromRecords(records []*neo4j.Record) ([]historyRow, error) {
	rows := make([]historyRow, 0, len(records))
	for _, record := range records {
		messagePath, isNil, err := neo4j.GetRecordValue[neo4j.Path](record, "messagePath")
		if err != nil {
			return nil, fmt.Errorf("read message path: %w", err)
		}
		if isNil {
			continue
		}

		row := historyRow{MessagePath: messagePath}

		rawDocs, _, err := neo4j.GetRecordValue[[]any](record, "documentPaths")
		if err != nil {
			return nil, fmt.Errorf("read document paths: %w", err)
		}
		for _, raw := range rawDocs {
			if p, ok := raw.(neo4j.Path); ok {
				row.DocumentPaths = append(row.DocumentPaths, p)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// buildHistory flattens history rows into the ordered message chain and a deduplicated graph view.
func buildHistory(conversationID string, rows []historyRow) *ConversationHistory {
	h := &ConversationHistory{
		ConversationID: conversationID,
		Found:          len(rows) > 0,
		Messages:       []HistoryMessage{},
		View:           GraphView{Nodes: []GraphNode{}, Edges: []GraphEdge{}},
	}

	seenNodes := map[string]bool{}
	seenEdges := map[string]bool{}
	seenMessages := map[string]bool{}

	addPath := func(p neo4j.Path) {
		for _, n := range p.Nodes {
			if seenNodes[n.ElementId] {
				continue
			}
			seenNodes[n.ElementId] = true
			h.View.Nodes = append(h.View.Nodes, GraphNode{
				ID:         n.ElementId,
				Labels:     slices.Clone(n.Labels),
				Properties: viewProperties(n.Props),
			})
		}
		for _, rel := range p.Relationships {
			if seenEdges[rel.ElementId] {
				continue
			}
			seenEdges[rel.ElementId] = true
			h.View.Edges = append(h.View.Edges, GraphEdge{
				ID:         rel.ElementId,
				Type:       rel.Type,
				StartID:    rel.StartElementId,
				EndID:      rel.EndElementId,
				Properties: rel.Props,
			})
		}
	}

	for _, row := range rows {
		addPath(row.MessagePath)
		for _, dp := range row.DocumentPaths {
			addPath(dp)
		}

		if len(row.MessagePath.Nodes) == 0 {
			continue
		}
		last := row.MessagePath.Nodes[len(row.MessagePath.Nodes)-1]
		if !slices.Contains(last.Labels, LabelMessage) {
			continue
		}
		msg := messageFromNode(last)
		if seenMessages[msg.ID] {
			continue
		}
		seenMessages[msg.ID] = true

		for _, dp := range row.DocumentPaths {
			if len(dp.Nodes) == 0 {
				continue
			}
			doc := dp.Nodes[len(dp.Nodes)-1]
			msg.Documents = append(msg.Documents, domain.Document{
				Index: getStringFromMap(doc.Props, "index", ""),
				URL:   getStringFromMap(doc.Props, "url", ""),
				Text:  getStringFromMap(doc.Props, "text", ""),
			})
		}
		h.Messages = append(h.Messages, msg)
	}

	return h
}

func messageFromNode(n neo4j.Node) HistoryMessage {
	id := getStringFromMap(n.Props, "id", "")
	role := getStringFromMap(n.Props, "role", "")
	if role == "" {
		role, _ = domain.RoleForMessageID(id)
	}
	return HistoryMessage{
		ID:            id,
		Role:          role,
		Content:       getStringFromMap(n.Props, "content", ""),
		PostTime:      getTimeFromMap(n.Props, "postTime"),
		NumDocs:       getIntFromMap(n.Props, "numDocs", 0),
		Rating:        getStringFromMap(n.Props, "rating", ""),
		RatingMessage: getStringFromMap(n.Props, "ratingMessage", ""),
	}
}

// viewProperties copies node properties without vectors.
func viewProperties(props map[string]any) map[string]any {
	out := maps.Clone(props)
	if out == nil {
		out = map[string]any{}
	}
	delete(out, "embedding")
	return out
}
