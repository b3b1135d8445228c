package dto

// SetQuantityInput carries one create-or-set operation. StoreID empty means
// the document's default store. A set call doubles as the item's edit
// operation: category is always re-resolved and stored.
type SetQuantityInput struct {
	Name     string
	Quantity int
	// Unit nil leaves the stored unit untouched; a non-nil value (including
	// the empty string) overwrites it.
	Unit *string
	// Threshold is ignored when KeepThreshold is true and the record already
	// exists; nil clears the stored threshold otherwise.
	Threshold     *int
	KeepThreshold bool
	// Category accepts an existing category id, an existing category name, or
	// free text (a new category is created implicitly). Empty means
	// uncategorized.
	Category string
	StoreID  string
	User     string
}

// AdjustQuantityInput carries a stock-in (positive delta) or stock-out
// (negative delta) for an existing item.
type AdjustQuantityInput struct {
	Name    string
	Delta   int
	StoreID string
	User    string
}

// TransferInput moves quantity of one item between two different stores.
type TransferInput struct {
	Name          string
	Quantity      int
	SourceStoreID string
	TargetStoreID string
	User          string
}

// DeleteCategoryInput controls category removal. With Cascade false, items in
// the category are reassigned to uncategorized; with Cascade true they are
// deleted (scoped to StoreID when given, otherwise across all stores).
type DeleteCategoryInput struct {
	CategoryID string
	Cascade    bool
	StoreID    string
	User       string
}

// ImportRow is one loosely-typed row of a bulk import, as decoded from CSV or
// JSON. Column aliases for threshold and category are resolved by the engine.
type ImportRow map[string]any
