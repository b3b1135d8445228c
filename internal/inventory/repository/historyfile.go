package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
)

// HistoryFileRepository stores the audit trail as JSON Lines: one entry per
// line, append-only. A torn trailing write can only lose the newest entry,
// never corrupt the older ones, and readers skip anything unparseable.
type HistoryFileRepository struct {
	path string
}

func NewHistoryFileRepository(path string) *HistoryFileRepository {
	return &HistoryFileRepository{path: path}
}

func (r *HistoryFileRepository) Append(_ context.Context, entries ...model.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return model.NewStorage("create history directory", err)
	}
	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return model.NewStorage("encode history entry", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return model.NewStorage("open history log", err)
	}
	defer file.Close()
	if _, err := file.Write(buf.Bytes()); err != nil {
		return model.NewStorage("append history entry", err)
	}
	return nil
}

func (r *HistoryFileRepository) List(_ context.Context, filter dto.HistoryFilter) ([]model.HistoryEntry, error) {
	file, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, model.NewStorage("open history log", err)
	}
	defer file.Close()

	entries := []model.HistoryEntry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry model.HistoryEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Timestamp.IsZero() || entry.Action == "" {
			continue
		}
		if filter.StoreID != "" && entry.Meta.StoreID != filter.StoreID {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, model.NewStorage("read history log", err)
	}

	// Stable sort keeps append order for equal timestamps, so the two legs of
	// a transfer stay adjacent in their commit order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if filter.Limit >= 0 && filter.Limit < len(entries) {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (r *HistoryFileRepository) Clear(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return model.NewStorage("create history directory", err)
	}
	if err := os.WriteFile(r.path, nil, 0o644); err != nil {
		return model.NewStorage("clear history log", err)
	}
	return nil
}
