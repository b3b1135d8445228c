package inventory

import (
	"context"

	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
)

// DocumentRepository owns the serialized ledger document. Load runs the
// idempotent upgrade pass and persists any repairs it makes, so callers always
// see a fully-typed, current-schema document. Save must be atomic: a crash
// mid-write never corrupts the previous good state.
type DocumentRepository interface {
	Load(ctx context.Context) (*model.Document, error)
	Save(ctx context.Context, doc *model.Document) error
}

// HistoryRepository owns the append-only audit trail, stored independently of
// the document so clearing history never touches live stock.
type HistoryRepository interface {
	// Append writes each entry as one record; existing records are never
	// rewritten.
	Append(ctx context.Context, entries ...model.HistoryEntry) error
	// List returns entries sorted by timestamp descending, silently skipping
	// malformed records.
	List(ctx context.Context, filter dto.HistoryFilter) ([]model.HistoryEntry, error)
	// Clear truncates the log. Irreversible.
	Clear(ctx context.Context) error
}
