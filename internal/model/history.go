package model

import "time"

// Action classifies a single ledger mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionSet    Action = "set"
	ActionIn     Action = "in"
	ActionOut    Action = "out"
	ActionDelete Action = "delete"
)

// HistoryEntry is one immutable audit record. Entries are appended in commit
// order, one JSON object per line, and never rewritten.
type HistoryEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    Action      `json:"action"`
	Name      string      `json:"name"`
	Meta      HistoryMeta `json:"meta"`
}

// HistoryMeta carries the contextual fields of an entry. Which fields are set
// depends on the action; store/category identifiers are captured at mutation
// time and never rewritten when a store or category is later renamed.
type HistoryMeta struct {
	Quantity         *int   `json:"quantity,omitempty"`
	PreviousQuantity *int   `json:"previous_quantity,omitempty"`
	NewQuantity      *int   `json:"new_quantity,omitempty"`
	Delta            *int   `json:"delta,omitempty"`
	Unit             string `json:"unit"`
	PreviousUnit     string `json:"previous_unit,omitempty"`
	StoreID          string `json:"store_id"`
	StoreName        string `json:"store_name"`
	CategoryID       string `json:"category_id"`
	CategoryName     string `json:"category_name"`
	User             string `json:"user,omitempty"`

	Transfer           bool   `json:"transfer,omitempty"`
	TransferSourceID   string `json:"transfer_source_id,omitempty"`
	TransferSourceName string `json:"transfer_source_name,omitempty"`
	TransferTargetID   string `json:"transfer_target_id,omitempty"`
	TransferTargetName string `json:"transfer_target_name,omitempty"`
}

// IntPtr is a small helper for filling optional meta fields.
func IntPtr(n int) *int { return &n }
