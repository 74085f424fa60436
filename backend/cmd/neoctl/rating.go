package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ratingCmd = &cobra.Command{
	Use:   "rating <message-id>",
	Short: "Show the rating stored on a message",
	Args:  cobra.ExactArgs(1),
	RunE:  runRating,
}

func runRating(cmd *cobra.Command, args []string) error {
	messageID := args[0]
	if err := validateMessageIDs(args); err != nil {
		return err
	}

	rating, found, err := db.GetMessageRating(cmd.Context(), messageID)
	if err != nil {
		return fmt.Errorf("get rating: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case !found:
		return fmt.Errorf("message not found: %s", messageID)
	case rating.Rating == "":
		fmt.Fprintf(out, "%s: not rated\n", messageID)
	case rating.Message != "":
		fmt.Fprintf(out, "%s: %s (%s)\n", messageID, rating.Rating, rating.Message)
	default:
		fmt.Fprintf(out, "%s: %s\n", messageID, rating.Rating)
	}
	return nil
}
