// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "data", "runs.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRows() []types.ResultRow {
	return []types.ResultRow{
		{Title: "Food addiction in adolescents", Author: "Jane Smith", Email: "jane@uni.edu"},
		{Title: "Food addiction in adolescents", Author: "John Doe", Email: "jane@uni.edu"},
		{Title: "Hedonic eating", Author: "Unknown Author", Email: "No email found"},
	}
}

func TestSaveRunAndRows(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	filters := types.DefaultFilterConfig()
	filters.EmailDomainSubstring = ".edu"

	id, err := s.SaveRun(ctx, Run{
		Term:              "food addiction",
		MaxResults:        100,
		Filters:           filters,
		StartedAt:         started,
		FinishedAt:        started.Add(5 * time.Second),
		Status:            "ok",
		Articles:          12,
		DuplicatesRemoved: 1,
		WithEmail:         2,
		Warnings:          []string{"batch 2 failed"},
	}, sampleRows())
	require.NoError(t, err)
	assert.Len(t, id, 36, "run IDs are UUIDs")

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "food addiction", run.Term)
	assert.Equal(t, 100, run.MaxResults)
	assert.Equal(t, filters, run.Filters)
	assert.True(t, run.StartedAt.Equal(started))
	assert.True(t, run.FinishedAt.Equal(started.Add(5*time.Second)))
	assert.Equal(t, "ok", run.Status)
	assert.Equal(t, 12, run.Articles)
	assert.Equal(t, 3, run.Rows)
	assert.Equal(t, 1, run.DuplicatesRemoved)
	assert.Equal(t, 2, run.WithEmail)
	assert.Equal(t, []string{"batch 2 failed"}, run.Warnings)

	rows, err := s.Rows(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}

func TestSaveRun_ReplacesRows(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.SaveRun(ctx, Run{ID: "fixed-id", Term: "obesity", Status: "ok"}, sampleRows())
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	_, err = s.SaveRun(ctx, Run{ID: "fixed-id", Term: "obesity", Status: "no rows"}, nil)
	require.NoError(t, err)

	run, err := s.GetRun(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "no rows", run.Status)
	assert.Zero(t, run.Rows)
	assert.Nil(t, run.Warnings)

	rows, err := s.Rows(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, term := range []string{"first", "second", "third"} {
		_, err := s.SaveRun(ctx, Run{Term: term, Status: "ok", StartedAt: base.Add(time.Duration(i) * time.Hour)}, nil)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "third", runs[0].Term)
	assert.Equal(t, "first", runs[2].Term)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "second", limited[1].Term)
}

func TestListRuns_Empty(t *testing.T) {
	runs, err := testStore(t).ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestGetRun_Prefix(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.SaveRun(ctx, Run{ID: "abc123", Term: "one", Status: "ok"}, nil)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, Run{ID: "abd456", Term: "two", Status: "ok"}, nil)
	require.NoError(t, err)

	run, err := s.GetRun(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "one", run.Term)

	_, err = s.GetRun(ctx, "ab")
	assert.ErrorIs(t, err, ErrAmbiguousID)

	_, err = s.GetRun(ctx, "zzz")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.GetRun(ctx, "")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestDeleteRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.SaveRun(ctx, Run{Term: "obesity", Status: "ok"}, sampleRows())
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(ctx, id))

	_, err = s.GetRun(ctx, id)
	assert.ErrorIs(t, err, ErrRunNotFound)
	rows, err := s.Rows(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, rows, "contact rows cascade with their run")

	assert.ErrorIs(t, s.DeleteRun(ctx, id), ErrRunNotFound)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(types.StoreConfig{Path: path})
	require.NoError(t, err)
	id, err := s.SaveRun(ctx, Run{Term: "persisted", Status: "ok"}, sampleRows())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(types.StoreConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", run.Term)
}
