package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete nodes by id",
	Long: `Delete sessions, conversations or messages by their id property,
together with their relationships. Meant for test fixtures.
Requires confirmation unless --force is used.

Examples:
  neoctl delete conv-test user-test llm-test
  neoctl delete conv-test --force`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	ids := lo.Uniq(lo.Filter(args, func(id string, _ int) bool { return strings.TrimSpace(id) != "" }))

	matched, err := db.MatchByID(ctx, ids)
	if err != nil {
		return fmt.Errorf("match nodes: %w", err)
	}
	if matched == 0 {
		fmt.Fprintln(out, "No matching nodes.")
		return nil
	}

	if !deleteForce {
		fmt.Fprintf(out, "About to delete %d node(s): %s\n", matched, strings.Join(ids, ", "))
		fmt.Fprint(out, "\nContinue? [y/N]: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		response, err := reader.ReadString('\n')
		if err != nil && response == "" {
			return fmt.Errorf("read input: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	res, err := db.DeleteByID(ctx, ids)
	if err != nil {
		return fmt.Errorf("delete nodes: %w", err)
	}

	fmt.Fprintf(out, "Deleted %d node(s), %d relationship(s).\n", res.NodesDeleted, res.RelationshipsDeleted)
	return nil
}
