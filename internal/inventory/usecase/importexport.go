package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
	"go.uber.org/zap"
)

// Column aliases accepted for bulk import rows, in priority order.
var (
	thresholdAliases = []string{"threshold", "阈值提醒", "阈值"}
	categoryAliases  = []string{"category", "分类", "库存分类"}
)

// ImportItems applies a best-effort bulk import: rows missing a usable name or
// a non-negative integer quantity are silently skipped, everything else goes
// through the same logic as SetQuantity. When a row carries no threshold
// column, the existing threshold of the record is preserved.
func (uc *ledgerUseCase) ImportItems(ctx context.Context, rows []dto.ImportRow, storeID, user string) ([]model.Item, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return nil, err
	}
	resolved := resolveStore(doc, storeID)
	imported := []model.Item{}
	var entries []model.HistoryEntry
	for _, row := range rows {
		if row == nil {
			continue
		}
		name := strings.TrimSpace(rowString(row["name"]))
		if name == "" {
			continue
		}
		quantity, ok := model.ParseQuantity(row["quantity"])
		if !ok || quantity < 0 {
			continue
		}
		var unit *string
		if rawUnit, present := row["unit"]; present && rawUnit != nil {
			trimmed := strings.TrimSpace(rowString(rawUnit))
			unit = &trimmed
		}
		thresholdRaw, thresholdPresent := rowAlias(row, thresholdAliases)
		categoryValue := ""
		for _, key := range categoryAliases {
			if raw, present := row[key]; present {
				if trimmed := strings.TrimSpace(rowString(raw)); trimmed != "" {
					categoryValue = trimmed
					break
				}
			}
		}
		categoryID := ensureCategory(doc, categoryValue)
		item, entry := applySet(doc, resolved, setArgs{
			name:          name,
			quantity:      quantity,
			unit:          unit,
			threshold:     model.NormalizeThreshold(thresholdRaw),
			keepThreshold: !thresholdPresent,
			categoryID:    categoryID,
			user:          user,
		})
		if entry != nil {
			entries = append(entries, *entry)
		}
		imported = append(imported, item)
	}
	if err := uc.documents.Save(ctx, doc); err != nil {
		return nil, err
	}
	if err := uc.appendHistory(ctx, entries...); err != nil {
		return nil, err
	}
	uc.logger.Info("bulk import applied",
		zap.Int("rows", len(rows)),
		zap.Int("imported", len(imported)),
		zap.String("store_id", resolved))
	return imported, nil
}

// PreviewImport computes what each row would do without committing anything.
// It runs the same category resolution against a deep copy of the loaded
// state and never touches the persisting path.
func (uc *ledgerUseCase) PreviewImport(ctx context.Context, rows []dto.ImportRow, storeID string) ([]dto.PreviewRow, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return nil, err
	}
	scratch := doc.Clone()
	resolved := resolveStore(scratch, storeID)
	items := scratch.Stores[resolved].Items
	preview := make([]dto.PreviewRow, 0, len(rows))
	for index, row := range rows {
		entry := dto.PreviewRow{
			Index:        index + 1,
			CategoryID:   model.UncategorizedID,
			CategoryName: categoryName(scratch, model.UncategorizedID),
			StoreID:      resolved,
			Messages:     []string{},
		}
		if row == nil {
			entry.Messages = append(entry.Messages, "unrecognized row format")
			preview = append(preview, entry)
			continue
		}
		entry.Name = strings.TrimSpace(rowString(row["name"]))
		if entry.Name == "" {
			entry.Messages = append(entry.Messages, "missing item name")
		}
		if quantity, ok := model.ParseQuantity(row["quantity"]); ok && quantity >= 0 {
			entry.Quantity = model.IntPtr(quantity)
		} else {
			entry.Messages = append(entry.Messages, "quantity must be a non-negative integer")
		}
		if rawUnit, present := row["unit"]; present && rawUnit != nil {
			entry.Unit = strings.TrimSpace(rowString(rawUnit))
		}
		thresholdRaw, thresholdPresent := rowAlias(row, thresholdAliases)
		entry.ThresholdFieldPresent = thresholdPresent
		entry.Threshold = model.NormalizeThreshold(thresholdRaw)
		if thresholdPresent {
			rawText := strings.TrimSpace(rowString(thresholdRaw))
			if rawText != "" && entry.Threshold == nil {
				entry.Messages = append(entry.Messages, "invalid threshold format")
			}
		}
		categoryRaw, _ := rowAlias(row, categoryAliases)
		entry.CategoryInput = strings.TrimSpace(rowString(categoryRaw))
		entry.CategoryID = ensureCategory(scratch, entry.CategoryInput)
		entry.CategoryName = categoryName(scratch, entry.CategoryID)
		if entry.Name != "" {
			if existing, ok := items[entry.Name]; ok {
				entry.Existing = true
				entry.ExistingQuantity = model.IntPtr(existing.Quantity)
				entry.ExistingUnit = existing.Unit
				entry.ExistingCategoryID = existing.Category
				entry.ExistingCategoryName = categoryName(scratch, existing.Category)
			}
		}
		if entry.Name != "" && entry.Quantity != nil && len(entry.Messages) == 0 {
			entry.Valid = true
		}
		if entry.Valid {
			if entry.Existing {
				delta := *entry.Quantity - *entry.ExistingQuantity
				entry.QuantityDelta = model.IntPtr(delta)
				entry.QuantityChanged = delta != 0
				entry.UnitChanged = entry.Unit != entry.ExistingUnit
				entry.CategoryChanged = entry.ExistingCategoryID != entry.CategoryID
			} else {
				entry.QuantityDelta = model.IntPtr(*entry.Quantity)
			}
		}
		preview = append(preview, entry)
	}
	return preview, nil
}

// ExportItems flattens every (store, item) pair matching the filter into
// denormalized rows sorted by store name, category name, quantity descending
// and item name.
func (uc *ledgerUseCase) ExportItems(ctx context.Context, storeID string) ([]dto.ExportRow, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return nil, err
	}
	var storeIDs []string
	if storeID != "" {
		storeIDs = []string{resolveStore(doc, storeID)}
	} else {
		storeIDs = sortedStoreIDs(doc.Stores)
	}
	rows := []dto.ExportRow{}
	for _, sid := range storeIDs {
		store := doc.Stores[sid]
		for name, record := range store.Items {
			rows = append(rows, dto.ExportRow{
				Item:         record.Snapshot(name, sid),
				StoreName:    store.Name,
				CategoryName: categoryName(doc, record.Category),
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StoreName != rows[j].StoreName {
			return rows[i].StoreName < rows[j].StoreName
		}
		if rows[i].CategoryName != rows[j].CategoryName {
			return rows[i].CategoryName < rows[j].CategoryName
		}
		if rows[i].Quantity != rows[j].Quantity {
			return rows[i].Quantity > rows[j].Quantity
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// rowAlias returns the first present alias value and whether any alias key
// exists in the row, even with an empty value.
func rowAlias(row dto.ImportRow, aliases []string) (any, bool) {
	for _, key := range aliases {
		if value, present := row[key]; present {
			return value, true
		}
	}
	return nil, false
}

// rowString renders a loosely typed cell as text the way spreadsheet exports
// usually deliver it.
func rowString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
