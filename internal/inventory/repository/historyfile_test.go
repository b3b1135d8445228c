package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistoryRepo(t *testing.T) (*HistoryFileRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	return NewHistoryFileRepository(path), path
}

func entryAt(ts time.Time, action model.Action, name, storeID string) model.HistoryEntry {
	return model.HistoryEntry{
		Timestamp: ts,
		Action:    action,
		Name:      name,
		Meta:      model.HistoryMeta{StoreID: storeID},
	}
}

func TestHistoryAppendAndList(t *testing.T) {
	repo, _ := newHistoryRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx,
		entryAt(base, model.ActionCreate, "cola", "default"),
		entryAt(base.Add(time.Minute), model.ActionIn, "cola", "default"),
		entryAt(base.Add(2*time.Minute), model.ActionOut, "cola", "branch"),
	))

	entries, err := repo.List(ctx, dto.HistoryFilter{Limit: -1})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.ActionOut, entries[0].Action, "newest first")
	assert.Equal(t, model.ActionCreate, entries[2].Action)
}

func TestHistoryListFiltersByStore(t *testing.T) {
	repo, _ := newHistoryRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx,
		entryAt(base, model.ActionIn, "cola", "default"),
		entryAt(base.Add(time.Minute), model.ActionIn, "cola", "branch"),
	))

	entries, err := repo.List(ctx, dto.HistoryFilter{StoreID: "branch", Limit: -1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "branch", entries[0].Meta.StoreID)
}

func TestHistoryListLimit(t *testing.T) {
	repo, _ := newHistoryRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, entryAt(base.Add(time.Duration(i)*time.Minute), model.ActionIn, "cola", "default")))
	}

	entries, err := repo.List(ctx, dto.HistoryFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = repo.List(ctx, dto.HistoryFilter{Limit: 0})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryListSkipsMalformedLines(t *testing.T) {
	repo, path := newHistoryRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, entryAt(base, model.ActionIn, "cola", "default")))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = file.WriteString("{torn line\n\n{\"timestamp\":\"0001-01-01T00:00:00Z\",\"action\":\"in\"}\n")
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.NoError(t, repo.Append(ctx, entryAt(base.Add(time.Minute), model.ActionOut, "cola", "default")))

	entries, err := repo.List(ctx, dto.HistoryFilter{Limit: -1})
	require.NoError(t, err)
	require.Len(t, entries, 2, "torn, blank and zero-timestamp lines are skipped")
	assert.Equal(t, model.ActionOut, entries[0].Action)
}

func TestHistoryListMissingFile(t *testing.T) {
	repo, _ := newHistoryRepo(t)
	entries, err := repo.List(context.Background(), dto.HistoryFilter{Limit: -1})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryClear(t *testing.T) {
	repo, _ := newHistoryRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, entryAt(time.Now().UTC(), model.ActionIn, "cola", "default")))
	require.NoError(t, repo.Clear(ctx))

	entries, err := repo.List(ctx, dto.HistoryFilter{Limit: -1})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
