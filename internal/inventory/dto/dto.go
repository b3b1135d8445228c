package dto

import (
	"time"

	"github.com/qvdang/stockledger/internal/model"
)

// StoreInfo is the caller-facing view of a store.
type StoreInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	ItemsCount int       `json:"items_count"`
}

// CategoryInfo is the caller-facing view of a category.
type CategoryInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryFilter narrows a history listing. StoreID empty means all stores.
// Limit < 0 means unlimited; 0 yields no entries.
type HistoryFilter struct {
	StoreID string
	Limit   int
}

// ExportRow is one denormalized (store, item) pair with the store and
// category names inlined for report-friendly output.
type ExportRow struct {
	model.Item
	StoreName    string `json:"store_name"`
	CategoryName string `json:"category_name"`
}

// PreviewRow describes what one import row would do without committing it:
// validity, resolved category, computed delta against any existing record and
// human-readable rejection reasons.
type PreviewRow struct {
	Index                 int      `json:"index"`
	Valid                 bool     `json:"valid"`
	Name                  string   `json:"name"`
	Quantity              *int     `json:"quantity"`
	Unit                  string   `json:"unit"`
	Threshold             *int     `json:"threshold"`
	ThresholdFieldPresent bool     `json:"threshold_field_present"`
	CategoryID            string   `json:"category_id"`
	CategoryName          string   `json:"category_name"`
	CategoryInput         string   `json:"category_input"`
	StoreID               string   `json:"store_id"`
	Messages              []string `json:"messages"`

	Existing             bool   `json:"existing"`
	ExistingQuantity     *int   `json:"existing_quantity"`
	ExistingUnit         string `json:"existing_unit"`
	ExistingCategoryID   string `json:"existing_category_id"`
	ExistingCategoryName string `json:"existing_category_name"`

	QuantityDelta   *int `json:"quantity_delta"`
	QuantityChanged bool `json:"quantity_changed"`
	UnitChanged     bool `json:"unit_changed"`
	CategoryChanged bool `json:"category_changed"`
}
