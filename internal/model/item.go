package model

import "time"

// ItemRecord is the stored quantity/unit/threshold state of one named item
// within one store. Quantity never goes negative; Threshold is an optional
// non-negative reorder point.
type ItemRecord struct {
	Quantity        int        `json:"quantity"`
	Unit            string     `json:"unit"`
	Category        string     `json:"category"`
	LastIn          *time.Time `json:"last_in"`
	LastOut         *time.Time `json:"last_out"`
	CreatedAt       *time.Time `json:"created_at"`
	CreatedQuantity *int       `json:"created_quantity"`
	LastInDelta     *int       `json:"last_in_delta"`
	LastOutDelta    *int       `json:"last_out_delta"`
	Threshold       *int       `json:"threshold"`
}

func (r *ItemRecord) Clone() *ItemRecord {
	clone := *r
	clone.LastIn = cloneTime(r.LastIn)
	clone.LastOut = cloneTime(r.LastOut)
	clone.CreatedAt = cloneTime(r.CreatedAt)
	clone.CreatedQuantity = cloneInt(r.CreatedQuantity)
	clone.LastInDelta = cloneInt(r.LastInDelta)
	clone.LastOutDelta = cloneInt(r.LastOutDelta)
	clone.Threshold = cloneInt(r.Threshold)
	return &clone
}

// Item is the value snapshot handed to callers. The engine never exposes a
// live *ItemRecord, so callers can serialize or hold snapshots freely.
type Item struct {
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	Unit            string     `json:"unit"`
	Category        string     `json:"category"`
	StoreID         string     `json:"store_id"`
	LastIn          *time.Time `json:"last_in"`
	LastOut         *time.Time `json:"last_out"`
	CreatedAt       *time.Time `json:"created_at"`
	CreatedQuantity *int       `json:"created_quantity"`
	LastInDelta     *int       `json:"last_in_delta"`
	LastOutDelta    *int       `json:"last_out_delta"`
	Threshold       *int       `json:"threshold"`
}

// LowStock reports whether the quantity has fallen to or below the reorder
// point. Derived, never stored.
func (i Item) LowStock() bool {
	return i.Threshold != nil && i.Quantity <= *i.Threshold
}

// Snapshot converts a stored record into a caller-facing value copy.
func (r *ItemRecord) Snapshot(name, storeID string) Item {
	return Item{
		Name:            name,
		Quantity:        r.Quantity,
		Unit:            r.Unit,
		Category:        r.Category,
		StoreID:         storeID,
		LastIn:          cloneTime(r.LastIn),
		LastOut:         cloneTime(r.LastOut),
		CreatedAt:       cloneTime(r.CreatedAt),
		CreatedQuantity: cloneInt(r.CreatedQuantity),
		LastInDelta:     cloneInt(r.LastInDelta),
		LastOutDelta:    cloneInt(r.LastOutDelta),
		Threshold:       cloneInt(r.Threshold),
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
