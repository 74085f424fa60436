package graph

import (
	"fmt"
	"slices"
)

// Node labels and relationship types of the conversation graph
const (
	LabelSession      = "Session"
	LabelConversation = "Conversation"
	LabelMessage      = "Message"
	LabelDocument     = "Document"

	RelHasConversation = "HAS_CONVERSATION"
	RelFirst           = "FIRST"
	RelNext            = "NEXT"
	RelHasContext      = "HAS_CONTEXT"
)

// nodeKeys maps each label to the property that identifies its nodes.
// Documents come from the ingestion pipeline and are keyed by index.
var nodeKeys = map[string]string{
	LabelSession:      "id",
	LabelConversation: "id",
	LabelMessage:      "id",
	LabelDocument:     "index",
}

// KeyProperty returns the identifying property for label.
func KeyProperty(label string) (string, error) {
	key, ok := nodeKeys[label]
	if !ok {
		return "", fmt.Errorf("unknown node label %q", label)
	}
	return key, nil
}

// keyProperties lists the distinct key properties in a stable order.
func keyProperties() []string {
	keys := make([]string, 0, len(nodeKeys))
	for _, k := range nodeKeys {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
