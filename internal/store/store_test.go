package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(filepath.Join(t.TempDir(), "history.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestArchiveAndListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	edges := []EdgeRecord{
		{FromID: "U1", ToID: "U2", MessageCount: 4, Strength: 5, Label: "general"},
		{FromID: "U2", ToID: "U1", MessageCount: 1, Strength: 2, Label: "random"},
	}
	runID, err := s.ArchiveRun(ctx, RunSummary{
		StartedAt:    time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		WindowDays:   7,
		ChannelCount: 3,
		MessageCount: 120,
		EdgeCount:    2,
	}, edges)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 7, runs[0].WindowDays)
	assert.Equal(t, 120, runs[0].MessageCount)

	got, err := s.RunEdges(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, edges, got)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	older, err := s.ArchiveRun(ctx, RunSummary{StartedAt: time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)
	newer, err := s.ArchiveRun(ctx, RunSummary{StartedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer, runs[0].ID)
	assert.Equal(t, older, runs[1].ID)
}

func TestDiffEdges(t *testing.T) {
	previous := []EdgeRecord{
		{FromID: "U1", ToID: "U2"},
		{FromID: "U2", ToID: "U1"},
	}
	current := []EdgeRecord{
		{FromID: "U1", ToID: "U2"},
		{FromID: "U1", ToID: "U3"},
	}

	added, removed := DiffEdges(previous, current)
	assert.Equal(t, []EdgeRecord{{FromID: "U1", ToID: "U3"}}, added)
	assert.Equal(t, []EdgeRecord{{FromID: "U2", ToID: "U1"}}, removed)

	added, removed = DiffEdges(nil, current)
	assert.Len(t, added, 2)
	assert.Empty(t, removed)
}
