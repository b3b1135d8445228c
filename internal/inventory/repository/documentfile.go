package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/qvdang/stockledger/internal/model"
)

// DocumentFileRepository persists the whole ledger document as one JSON file.
// Load tolerates legacy and malformed shapes and repairs them in place; Save
// writes to a temp file in the same directory and renames it into place so a
// crash mid-write never corrupts the previous good state.
type DocumentFileRepository struct {
	path string
}

func NewDocumentFileRepository(path string) *DocumentFileRepository {
	return &DocumentFileRepository{path: path}
}

func (r *DocumentFileRepository) Load(ctx context.Context) (*model.Document, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := initialDocument()
		if err := r.Save(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, model.NewStorage("read document", err)
	}
	var payload any
	// A file that is not valid JSON is treated like an empty document and
	// rebuilt by the upgrade pass.
	_ = json.Unmarshal(raw, &payload)
	doc, changed := upgradeDocument(payload)
	if changed {
		if err := r.Save(ctx, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (r *DocumentFileRepository) Save(_ context.Context, doc *model.Document) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.NewStorage("create document directory", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return model.NewStorage("encode document", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return model.NewStorage("create temp document", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return model.NewStorage("write document", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return model.NewStorage("sync document", err)
	}
	if err := tmp.Close(); err != nil {
		return model.NewStorage("close document", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return model.NewStorage("replace document", err)
	}
	return nil
}

func initialDocument() *model.Document {
	now := time.Now().UTC()
	return &model.Document{
		Stores: map[string]*model.Store{
			model.DefaultStoreID: {
				ID:        model.DefaultStoreID,
				Name:      model.DefaultStoreName,
				CreatedAt: now,
				Items:     map[string]*model.ItemRecord{},
			},
		},
		Categories: map[string]*model.Category{
			model.UncategorizedID: {
				ID:        model.UncategorizedID,
				Name:      model.UncategorizedName,
				CreatedAt: now,
			},
		},
		Meta: model.DocumentMeta{DefaultStore: model.DefaultStoreID},
	}
}

// upgradeDocument is the single tolerance-for-malformed-input boundary: it
// turns whatever was persisted into a fully-typed, current-schema document.
// Idempotent; the changed result reports whether a repair was made that should
// be persisted immediately.
func upgradeDocument(raw any) (*model.Document, bool) {
	changed := false
	now := time.Now().UTC()

	state, ok := raw.(map[string]any)
	if !ok {
		state = map[string]any{}
		changed = true
	}

	storesRaw, storesOK := state["stores"].(map[string]any)
	stores := map[string]*model.Store{}
	var legacyItems map[string]any
	if !storesOK {
		// Legacy shape: top-level keys were item names directly inside a
		// single implicit store.
		legacyItems = map[string]any{}
		for key, value := range state {
			if key == "stores" || key == "categories" || key == "meta" {
				continue
			}
			if rec, isMap := value.(map[string]any); isMap {
				legacyItems[key] = rec
			}
		}
		changed = true
	} else {
		for storeID, storeValue := range storesRaw {
			store, storeChanged := upgradeStore(storeID, storeValue, now)
			if storeChanged {
				changed = true
			}
			stores[storeID] = store
		}
	}
	if legacyItems != nil {
		items := map[string]*model.ItemRecord{}
		for name, rec := range legacyItems {
			record, _ := coerceRecord(rec)
			items[name] = record
		}
		stores[model.DefaultStoreID] = &model.Store{
			ID:        model.DefaultStoreID,
			Name:      model.DefaultStoreName,
			CreatedAt: now,
			Items:     items,
		}
	}
	if len(stores) == 0 {
		stores[model.DefaultStoreID] = &model.Store{
			ID:        model.DefaultStoreID,
			Name:      model.DefaultStoreName,
			CreatedAt: now,
			Items:     map[string]*model.ItemRecord{},
		}
		changed = true
	}

	categoriesRaw, categoriesOK := state["categories"].(map[string]any)
	categories := map[string]*model.Category{}
	if !categoriesOK {
		changed = true
	} else {
		for categoryID, categoryValue := range categoriesRaw {
			category, categoryChanged := upgradeCategory(categoryID, categoryValue, now)
			if categoryChanged {
				changed = true
			}
			categories[categoryID] = category
		}
	}
	if _, exists := categories[model.UncategorizedID]; !exists {
		categories[model.UncategorizedID] = &model.Category{
			ID:        model.UncategorizedID,
			Name:      model.UncategorizedName,
			CreatedAt: now,
		}
		changed = true
	}

	// Every category referenced by an item must exist in the registry.
	for _, store := range stores {
		for _, record := range store.Items {
			if record.Category == "" {
				record.Category = model.UncategorizedID
				changed = true
			}
			if _, exists := categories[record.Category]; !exists {
				categories[record.Category] = &model.Category{
					ID:        record.Category,
					Name:      record.Category,
					CreatedAt: now,
				}
				changed = true
			}
		}
	}

	meta := model.DocumentMeta{}
	if metaRaw, metaOK := state["meta"].(map[string]any); metaOK {
		if ds, dsOK := metaRaw["default_store"].(string); dsOK {
			meta.DefaultStore = ds
		}
	} else {
		changed = true
	}
	if _, exists := stores[meta.DefaultStore]; !exists {
		meta.DefaultStore = firstStoreID(stores)
		changed = true
	}

	return &model.Document{Stores: stores, Categories: categories, Meta: meta}, changed
}

func upgradeStore(storeID string, value any, now time.Time) (*model.Store, bool) {
	changed := false
	data, ok := value.(map[string]any)
	if !ok {
		return &model.Store{
			ID:        storeID,
			Name:      storeID,
			CreatedAt: now,
			Items:     map[string]*model.ItemRecord{},
		}, true
	}
	store := &model.Store{ID: storeID, Items: map[string]*model.ItemRecord{}}
	if id, idOK := data["id"].(string); !idOK || id != storeID {
		changed = true
	}
	if name, nameOK := data["name"].(string); nameOK {
		store.Name = name
	} else {
		store.Name = storeID
		changed = true
	}
	if createdRaw, createdOK := data["created_at"].(string); createdOK {
		if parsed := model.ParseTimestamp(createdRaw); parsed != nil {
			store.CreatedAt = *parsed
		} else {
			store.CreatedAt = now
			changed = true
		}
	} else {
		store.CreatedAt = now
		changed = true
	}
	itemsRaw, itemsOK := data["items"].(map[string]any)
	if !itemsOK {
		changed = true
	} else {
		for name, rec := range itemsRaw {
			record, recordChanged := coerceRecord(rec)
			if recordChanged {
				changed = true
			}
			store.Items[name] = record
		}
	}
	return store, changed
}

func upgradeCategory(categoryID string, value any, now time.Time) (*model.Category, bool) {
	changed := false
	data, ok := value.(map[string]any)
	if !ok {
		name := categoryID
		if s, isString := value.(string); isString {
			name = s
		}
		return &model.Category{ID: categoryID, Name: name, CreatedAt: now}, true
	}
	category := &model.Category{ID: categoryID}
	if id, idOK := data["id"].(string); !idOK || id != categoryID {
		changed = true
	}
	if name, nameOK := data["name"].(string); nameOK {
		category.Name = name
	} else {
		category.Name = categoryID
		changed = true
	}
	if createdRaw, createdOK := data["created_at"].(string); createdOK {
		if parsed := model.ParseTimestamp(createdRaw); parsed != nil {
			category.CreatedAt = *parsed
		} else {
			category.CreatedAt = now
			changed = true
		}
	} else {
		category.CreatedAt = now
		changed = true
	}
	return category, changed
}

// coerceRecord normalizes one persisted item record. Records that are not
// objects become {quantity: int(value)}; malformed sub-fields fall back to
// safe defaults rather than failing the load.
func coerceRecord(raw any) (*model.ItemRecord, bool) {
	data, ok := raw.(map[string]any)
	if !ok {
		quantity, _ := model.ParseQuantity(raw)
		return &model.ItemRecord{
			Quantity: quantity,
			Category: model.UncategorizedID,
		}, true
	}
	record := &model.ItemRecord{}
	record.Quantity, _ = model.ParseQuantity(data["quantity"])
	if unit, unitOK := data["unit"].(string); unitOK {
		record.Unit = strings.TrimSpace(unit)
	}
	if category, categoryOK := data["category"].(string); categoryOK {
		record.Category = strings.TrimSpace(category)
	}
	record.LastIn = parseTimeField(data["last_in"])
	record.LastOut = parseTimeField(data["last_out"])
	record.CreatedAt = parseTimeField(data["created_at"])
	if qty, qtyOK := model.ParseQuantity(data["created_quantity"]); qtyOK && data["created_quantity"] != nil {
		record.CreatedQuantity = &qty
	}
	record.LastInDelta = absIntField(data["last_in_delta"])
	record.LastOutDelta = absIntField(data["last_out_delta"])
	record.Threshold = model.NormalizeThreshold(data["threshold"])
	return record, false
}

func parseTimeField(value any) *time.Time {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	return model.ParseTimestamp(s)
}

func absIntField(value any) *int {
	if value == nil {
		return nil
	}
	parsed, ok := model.ParseQuantity(value)
	if !ok {
		return nil
	}
	if parsed < 0 {
		parsed = -parsed
	}
	return &parsed
}

func firstStoreID(stores map[string]*model.Store) string {
	ids := make([]string, 0, len(stores))
	for id := range stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
