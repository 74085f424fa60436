package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-neo/backend/internal/domain"
	"agent-neo/backend/internal/graph"
)

type fakeStore struct {
	history *graph.ConversationHistory
	rating  graph.MessageRating
	rated   bool
	matched int
	deleted []string
	seeded  []string
	err     error
}

func (f *fakeStore) RetrieveConversationHistory(_ context.Context, id string) (*graph.ConversationHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.history == nil {
		return &graph.ConversationHistory{ConversationID: id}, nil
	}
	return f.history, nil
}

func (f *fakeStore) GetMessageRating(_ context.Context, _ string) (graph.MessageRating, bool, error) {
	return f.rating, f.rated, f.err
}

func (f *fakeStore) MatchByID(_ context.Context, _ []string) (int, error) {
	return f.matched, f.err
}

func (f *fakeStore) DeleteByID(_ context.Context, ids []string) (graph.WriteResult, error) {
	if f.err != nil {
		return graph.WriteResult{}, f.err
	}
	f.deleted = append(f.deleted, ids...)
	return graph.WriteResult{NodesDeleted: len(ids), RelationshipsDeleted: 1}, nil
}

func (f *fakeStore) SeedNode(_ context.Context, label, key string) (graph.WriteResult, error) {
	f.seeded = append(f.seeded, label+":"+key)
	return graph.WriteResult{NodesCreated: 1}, nil
}

func testCommand(t *testing.T, fake *fakeStore, input string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	db = fake
	t.Cleanup(func() { db = nil })

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetContext(context.Background())
	return cmd, out
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"migrate", "history", "delete", "rating", "seed"} {
		assert.Contains(t, names, want)
	}
}

func TestCommandArgs(t *testing.T) {
	assert.Error(t, historyCmd.Args(historyCmd, nil))
	assert.NoError(t, historyCmd.Args(historyCmd, []string{"conv-1"}))
	assert.Error(t, deleteCmd.Args(deleteCmd, nil))
	assert.Error(t, seedCmd.Args(seedCmd, []string{"Document"}))
	assert.Error(t, migrateCmd.Args(migrateCmd, []string{"extra"}))
}

func TestRunHistory(t *testing.T) {
	fake := &fakeStore{history: &graph.ConversationHistory{
		ConversationID: "conv-1",
		Found:          true,
		Messages: []graph.HistoryMessage{
			{ID: "user-1", Role: "user", Content: "What is GDS?"},
			{ID: "llm-1", Role: "assistant", Content: "A library.", Documents: []domain.Document{{Index: "3"}}},
		},
	}}
	cmd, out := testCommand(t, fake, "")

	require.NoError(t, runHistory(cmd, []string{"conv-1"}))
	assert.Contains(t, out.String(), `"id": "user-1"`)
	assert.Contains(t, out.String(), `"id": "llm-1"`)
	assert.NotContains(t, out.String(), `"graph"`)
}

func TestRunHistory_NotFound(t *testing.T) {
	cmd, _ := testCommand(t, &fakeStore{}, "")
	err := runHistory(cmd, []string{"conv-missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conv-missing")
}

func TestRunRating(t *testing.T) {
	cmd, out := testCommand(t, &fakeStore{rated: true, rating: graph.MessageRating{MessageID: "llm-1", Rating: "Good", Message: "spot on"}}, "")
	require.NoError(t, runRating(cmd, []string{"llm-1"}))
	assert.Equal(t, "llm-1: Good (spot on)\n", out.String())

	cmd, out = testCommand(t, &fakeStore{rated: true}, "")
	require.NoError(t, runRating(cmd, []string{"llm-2"}))
	assert.Equal(t, "llm-2: not rated\n", out.String())

	cmd, _ = testCommand(t, &fakeStore{}, "")
	assert.Error(t, runRating(cmd, []string{"llm-3"}))

	cmd, _ = testCommand(t, &fakeStore{}, "")
	assert.Error(t, runRating(cmd, []string{"conv-1"}), "not a message id")
}

func TestRunDelete(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		fake := &fakeStore{matched: 2}
		cmd, out := testCommand(t, fake, "y\n")
		require.NoError(t, runDelete(cmd, []string{"conv-t", "user-t", "conv-t"}))
		assert.Equal(t, []string{"conv-t", "user-t"}, fake.deleted)
		assert.Contains(t, out.String(), "Deleted 2 node(s)")
	})

	t.Run("cancelled", func(t *testing.T) {
		fake := &fakeStore{matched: 1}
		cmd, out := testCommand(t, fake, "n\n")
		require.NoError(t, runDelete(cmd, []string{"conv-t"}))
		assert.Empty(t, fake.deleted)
		assert.Contains(t, out.String(), "Cancelled.")
	})

	t.Run("force", func(t *testing.T) {
		deleteForce = true
		t.Cleanup(func() { deleteForce = false })

		fake := &fakeStore{matched: 1}
		cmd, out := testCommand(t, fake, "")
		require.NoError(t, runDelete(cmd, []string{"llm-t"}))
		assert.Equal(t, []string{"llm-t"}, fake.deleted)
		assert.NotContains(t, out.String(), "Continue?")
	})

	t.Run("nothing matched", func(t *testing.T) {
		fake := &fakeStore{}
		cmd, out := testCommand(t, fake, "y\n")
		require.NoError(t, runDelete(cmd, []string{"conv-none"}))
		assert.Empty(t, fake.deleted)
		assert.Contains(t, out.String(), "No matching nodes.")
	})

	t.Run("store error", func(t *testing.T) {
		cmd, _ := testCommand(t, &fakeStore{err: errors.New("boom")}, "")
		assert.Error(t, runDelete(cmd, []string{"conv-t"}))
	})
}

func TestRunSeed(t *testing.T) {
	fake := &fakeStore{}
	cmd, out := testCommand(t, fake, "")

	require.NoError(t, runSeed(cmd, []string{"Document", "0", "1"}))
	assert.Equal(t, []string{"Document:0", "Document:1"}, fake.seeded)
	assert.Equal(t, "Seeded 2 new Document node(s).\n", out.String())

	assert.Error(t, runSeed(cmd, []string{"Topic", "x"}))
}
