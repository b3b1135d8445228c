package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qvdang/stockledger/internal/inventory"
	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
	"go.uber.org/zap"
)

// ledgerUseCase is the inventory engine. One mutex serializes every
// load -> mutate -> persist sequence; the document is committed before the
// matching history entries are appended, so a crash between the two can only
// lose trailing audit entries, never corrupt or double-apply stock.
type ledgerUseCase struct {
	documents inventory.DocumentRepository
	history   inventory.HistoryRepository
	logger    *zap.Logger
	mu        sync.Mutex
}

func NewLedgerUseCase(documents inventory.DocumentRepository, history inventory.HistoryRepository, logger *zap.Logger) inventory.UseCase {
	return &ledgerUseCase{
		documents: documents,
		history:   history,
		logger:    logger,
	}
}

// ------------------------------------------------------------------
// Stores
// ------------------------------------------------------------------

func (uc *ledgerUseCase) ListStores(ctx context.Context) ([]dto.StoreInfo, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]dto.StoreInfo, 0, len(doc.Stores))
	for _, id := range sortedStoreIDs(doc.Stores) {
		store := doc.Stores[id]
		infos = append(infos, dto.StoreInfo{
			ID:         id,
			Name:       store.Name,
			CreatedAt:  store.CreatedAt,
			ItemsCount: len(store.Items),
		})
	}
	return infos, nil
}

func (uc *ledgerUseCase) CreateStore(ctx context.Context, name string) (dto.StoreInfo, error) {
	candidate := strings.TrimSpace(name)
	if candidate == "" {
		return dto.StoreInfo{}, model.NewValidation("Store name cannot be empty")
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return dto.StoreInfo{}, err
	}
	for _, store := range doc.Stores {
		if strings.TrimSpace(store.Name) == candidate {
			return dto.StoreInfo{}, model.NewValidation("Store name already exists")
		}
	}
	base := model.Slugify(candidate, "store")
	storeID := model.NextIdentifier(base, func(id string) bool {
		_, taken := doc.Stores[id]
		return taken
	})
	now := time.Now().UTC()
	doc.Stores[storeID] = &model.Store{
		ID:        storeID,
		Name:      candidate,
		CreatedAt: now,
		Items:     map[string]*model.ItemRecord{},
	}
	if _, ok := doc.Stores[doc.Meta.DefaultStore]; !ok {
		doc.Meta.DefaultStore = storeID
	}
	if err := uc.documents.Save(ctx, doc); err != nil {
		return dto.StoreInfo{}, err
	}
	uc.logger.Info("store created", zap.String("store_id", storeID), zap.String("name", candidate))
	return dto.StoreInfo{ID: storeID, Name: candidate, CreatedAt: now, ItemsCount: 0}, nil
}

func (uc *ledgerUseCase) DeleteStore(ctx context.Context, storeID string, cascade bool, user string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return err
	}
	store, ok := doc.Stores[storeID]
	if !ok {
		return model.NewNotFound("Store", storeID)
	}
	if len(doc.Stores) <= 1 {
		return model.NewValidation("At least one store is required")
	}
	if len(store.Items) > 0 && !cascade {
		return model.NewValidation("Store still has inventory items")
	}
	var entries []model.HistoryEntry
	if len(store.Items) > 0 {
		now := time.Now().UTC()
		for _, name := range sortedItemNames(store.Items) {
			record := store.Items[name]
			entries = append(entries, model.HistoryEntry{
				Timestamp: now,
				Action:    model.ActionDelete,
				Name:      name,
				Meta: model.HistoryMeta{
					PreviousQuantity: model.IntPtr(record.Quantity),
					Unit:             record.Unit,
					StoreID:          storeID,
					StoreName:        store.Name,
					CategoryID:       record.Category,
					CategoryName:     categoryName(doc, record.Category),
					User:             user,
				},
			})
		}
	}
	delete(doc.Stores, storeID)
	if doc.Meta.DefaultStore == storeID {
		doc.Meta.DefaultStore = sortedStoreIDs(doc.Stores)[0]
	}
	if err := uc.documents.Save(ctx, doc); err != nil {
		return err
	}
	uc.logger.Info("store deleted", zap.String("store_id", storeID), zap.Bool("cascade", cascade))
	return uc.appendHistory(ctx, entries...)
}

// ------------------------------------------------------------------
// Categories
// ------------------------------------------------------------------

func (uc *ledgerUseCase) ListCategories(ctx context.Context) ([]dto.CategoryInfo, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(doc.Categories))
	for id := range doc.Categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	infos := make([]dto.CategoryInfo, 0, len(ids))
	for _, id := range ids {
		category := doc.Categories[id]
		infos = append(infos, dto.CategoryInfo{ID: id, Name: category.Name, CreatedAt: category.CreatedAt})
	}
	return infos, nil
}

func (uc *ledgerUseCase) CreateCategory(ctx context.Context, name string) (dto.CategoryInfo, error) {
	candidate := strings.TrimSpace(name)
	if candidate == "" {
		return dto.CategoryInfo{}, model.NewValidation("Category name cannot be empty")
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return dto.CategoryInfo{}, err
	}
	for _, category := range doc.Categories {
		if category.Name == candidate {
			return dto.CategoryInfo{}, model.NewValidation("Category name already exists")
		}
	}
	base := model.Slugify(candidate, "category")
	categoryID := model.NextIdentifier(base, func(id string) bool {
		_, taken := doc.Categories[id]
		return taken
	})
	now := time.Now().UTC()
	doc.Categories[categoryID] = &model.Category{ID: categoryID, Name: candidate, CreatedAt: now}
	if err := uc.documents.Save(ctx, doc); err != nil {
		return dto.CategoryInfo{}, err
	}
	uc.logger.Info("category created", zap.String("category_id", categoryID), zap.String("name", candidate))
	return dto.CategoryInfo{ID: categoryID, Name: candidate, CreatedAt: now}, nil
}

func (uc *ledgerUseCase) DeleteCategory(ctx context.Context, input dto.DeleteCategoryInput) error {
	if input.CategoryID == model.UncategorizedID {
		return model.NewValidation("The default category cannot be deleted")
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return err
	}
	category, ok := doc.Categories[input.CategoryID]
	if !ok {
		return model.NewNotFound("Category", input.CategoryID)
	}
	scopedStore := ""
	if input.StoreID != "" {
		scopedStore = resolveStore(doc, input.StoreID)
	}
	var entries []model.HistoryEntry
	now := time.Now().UTC()
	for _, storeID := range sortedStoreIDs(doc.Stores) {
		store := doc.Stores[storeID]
		var toDelete []string
		for _, name := range sortedItemNames(store.Items) {
			record := store.Items[name]
			if record.Category != input.CategoryID {
				continue
			}
			shouldCascade := input.Cascade && (scopedStore == "" || storeID == scopedStore)
			if shouldCascade {
				entries = append(entries, model.HistoryEntry{
					Timestamp: now,
					Action:    model.ActionDelete,
					Name:      name,
					Meta: model.HistoryMeta{
						PreviousQuantity: model.IntPtr(record.Quantity),
						Unit:             record.Unit,
						StoreID:          storeID,
						StoreName:        store.Name,
						CategoryID:       input.CategoryID,
						CategoryName:     category.Name,
						User:             input.User,
					},
				})
				toDelete = append(toDelete, name)
			} else {
				record.Category = model.UncategorizedID
			}
		}
		for _, name := range toDelete {
			delete(store.Items, name)
		}
	}
	delete(doc.Categories, input.CategoryID)
	if err := uc.documents.Save(ctx, doc); err != nil {
		return err
	}
	uc.logger.Info("category deleted",
		zap.String("category_id", input.CategoryID),
		zap.Bool("cascade", input.Cascade))
	return uc.appendHistory(ctx, entries...)
}

// ------------------------------------------------------------------
// History
// ------------------------------------------------------------------

func (uc *ledgerUseCase) ListHistory(ctx context.Context, filter dto.HistoryFilter) ([]model.HistoryEntry, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.history.List(ctx, filter)
}

func (uc *ledgerUseCase) ClearHistory(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if err := uc.history.Clear(ctx); err != nil {
		return err
	}
	uc.logger.Info("history cleared")
	return nil
}

func (uc *ledgerUseCase) appendHistory(ctx context.Context, entries ...model.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := uc.history.Append(ctx, entries...); err != nil {
		uc.logger.Error("failed to append history entries", zap.Error(err), zap.Int("count", len(entries)))
		return err
	}
	return nil
}

// ------------------------------------------------------------------
// Shared helpers
// ------------------------------------------------------------------

// resolveStore maps an optional store id to an existing store: the id itself
// when valid, else the configured default store, else the first store.
func resolveStore(doc *model.Document, storeID string) string {
	if storeID != "" {
		if _, ok := doc.Stores[storeID]; ok {
			return storeID
		}
	}
	if _, ok := doc.Stores[doc.Meta.DefaultStore]; ok {
		return doc.Meta.DefaultStore
	}
	return sortedStoreIDs(doc.Stores)[0]
}

// ensureCategory resolves a category reference to an id, creating the
// category implicitly when the value matches no existing id or name. Used by
// both the committing paths and the dry-run preview (against a throwaway
// document copy).
func ensureCategory(doc *model.Document, category string) string {
	candidate := strings.TrimSpace(category)
	if candidate == "" {
		return model.UncategorizedID
	}
	if _, ok := doc.Categories[candidate]; ok {
		return candidate
	}
	for id, existing := range doc.Categories {
		if existing.Name == candidate {
			return id
		}
	}
	base := model.Slugify(candidate, "category")
	newID := model.NextIdentifier(base, func(id string) bool {
		_, taken := doc.Categories[id]
		return taken
	})
	doc.Categories[newID] = &model.Category{
		ID:        newID,
		Name:      candidate,
		CreatedAt: time.Now().UTC(),
	}
	return newID
}

func categoryName(doc *model.Document, categoryID string) string {
	if category, ok := doc.Categories[categoryID]; ok {
		return category.Name
	}
	return categoryID
}

func sortedStoreIDs(stores map[string]*model.Store) []string {
	ids := make([]string, 0, len(stores))
	for id := range stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedItemNames(items map[string]*model.ItemRecord) []string {
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
