package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var historyGraph bool

var historyCmd = &cobra.Command{
	Use:   "history <conversation-id>",
	Short: "Print a conversation as JSON",
	Long: `Print the ordered message chain of a conversation, with the context
documents of each answer. --graph adds the raw node and edge view.

Examples:
  neoctl history conv-1c4f...
  neoctl history conv-1c4f... --graph`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyGraph, "graph", false, "include the node and edge view")
}

func runHistory(cmd *cobra.Command, args []string) error {
	conversationID := args[0]

	h, err := db.RetrieveConversationHistory(cmd.Context(), conversationID)
	if err != nil {
		return fmt.Errorf("retrieve history: %w", err)
	}
	if !h.Found {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}

	var payload any = h.Messages
	if historyGraph {
		payload = h
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
