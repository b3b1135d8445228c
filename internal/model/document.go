package model

import "time"

const (
	DefaultStoreID    = "default"
	DefaultStoreName  = "默认门店"
	UncategorizedID   = "uncategorized"
	UncategorizedName = "未分类"
)

// Document is the full ledger state for one tenant: every store with its item
// records, the global category registry and the metadata block. It is loaded
// fully into memory before any transaction and persisted as a single JSON file.
type Document struct {
	Stores     map[string]*Store    `json:"stores"`
	Categories map[string]*Category `json:"categories"`
	Meta       DocumentMeta         `json:"meta"`
}

type DocumentMeta struct {
	DefaultStore string `json:"default_store"`
}

// Store is an inventory-holding location owning a name-keyed set of records.
type Store struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	CreatedAt time.Time              `json:"created_at"`
	Items     map[string]*ItemRecord `json:"items"`
}

// Category is a global tag grouping items across stores. The sentinel
// "uncategorized" category always exists and cannot be deleted.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the document. Dry-run previews mutate the copy
// and throw it away, so the copy must share nothing with the original.
func (d *Document) Clone() *Document {
	clone := &Document{
		Stores:     make(map[string]*Store, len(d.Stores)),
		Categories: make(map[string]*Category, len(d.Categories)),
		Meta:       d.Meta,
	}
	for id, store := range d.Stores {
		items := make(map[string]*ItemRecord, len(store.Items))
		for name, rec := range store.Items {
			items[name] = rec.Clone()
		}
		clone.Stores[id] = &Store{
			ID:        store.ID,
			Name:      store.Name,
			CreatedAt: store.CreatedAt,
			Items:     items,
		}
	}
	for id, cat := range d.Categories {
		c := *cat
		clone.Categories[id] = &c
	}
	return clone
}
