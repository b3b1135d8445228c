package inventory

import (
	"context"

	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
)

// UseCase is the inventory ledger engine. Every method is synchronous, runs
// under the document's writer lock, and returns value snapshots only.
type UseCase interface {
	ListStores(ctx context.Context) ([]dto.StoreInfo, error)
	CreateStore(ctx context.Context, name string) (dto.StoreInfo, error)
	DeleteStore(ctx context.Context, storeID string, cascade bool, user string) error

	ListCategories(ctx context.Context) ([]dto.CategoryInfo, error)
	CreateCategory(ctx context.Context, name string) (dto.CategoryInfo, error)
	DeleteCategory(ctx context.Context, input dto.DeleteCategoryInput) error

	ListItems(ctx context.Context, storeID, categoryID string) (map[string]model.Item, error)
	GetItem(ctx context.Context, name, storeID string) (model.Item, error)
	SetQuantity(ctx context.Context, input dto.SetQuantityInput) (model.Item, error)
	AdjustQuantity(ctx context.Context, input dto.AdjustQuantityInput) (model.Item, error)
	TransferItem(ctx context.Context, input dto.TransferInput) (model.Item, model.Item, error)
	DeleteItem(ctx context.Context, name, storeID, user string) error

	ImportItems(ctx context.Context, rows []dto.ImportRow, storeID, user string) ([]model.Item, error)
	PreviewImport(ctx context.Context, rows []dto.ImportRow, storeID string) ([]dto.PreviewRow, error)
	ExportItems(ctx context.Context, storeID string) ([]dto.ExportRow, error)

	ListHistory(ctx context.Context, filter dto.HistoryFilter) ([]model.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}
