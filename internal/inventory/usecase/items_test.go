package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestSetQuantityCreatesItem(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	item, err := uc.SetQuantity(ctx, dto.SetQuantityInput{
		Name:      "cola",
		Quantity:  10,
		Unit:      strPtr("瓶"),
		Threshold: model.IntPtr(3),
		Category:  "Drinks",
		User:      "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)
	assert.Equal(t, "瓶", item.Unit)
	assert.Equal(t, "drinks", item.Category)
	require.NotNil(t, item.Threshold)
	assert.Equal(t, 3, *item.Threshold)
	require.NotNil(t, item.CreatedAt)
	require.NotNil(t, item.CreatedQuantity)
	assert.Equal(t, 10, *item.CreatedQuantity)
	require.NotNil(t, item.LastIn, "a positive initial quantity counts as a stock-in")

	entries := allHistory(t, uc)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionCreate, entries[0].Action)
	assert.Equal(t, "alice", entries[0].Meta.User)
	require.NotNil(t, entries[0].Meta.Quantity)
	assert.Equal(t, 10, *entries[0].Meta.Quantity)
}

func TestSetQuantityRejectsNegative(t *testing.T) {
	uc := newTestUseCase(t)
	_, err := uc.SetQuantity(context.Background(), dto.SetQuantityInput{Name: "cola", Quantity: -1})
	assert.True(t, model.IsValidation(err))
}

func TestSetQuantityNoOpSuppressed(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10, Unit: strPtr("瓶")})
	require.NoError(t, err)
	before := allHistory(t, uc)

	// Same quantity, same unit: no audit entry.
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10, Unit: strPtr("瓶"), KeepThreshold: true})
	require.NoError(t, err)
	assert.Len(t, allHistory(t, uc), len(before))

	// A unit change alone is auditable even with an unchanged quantity.
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10, Unit: strPtr("箱"), KeepThreshold: true})
	require.NoError(t, err)
	entries := allHistory(t, uc)
	require.Len(t, entries, len(before)+1)
	assert.Equal(t, model.ActionSet, entries[0].Action)
	assert.Equal(t, "瓶", entries[0].Meta.PreviousUnit)
	assert.Equal(t, "箱", entries[0].Meta.Unit)
	assert.Nil(t, entries[0].Meta.Delta)
}

func TestSetQuantityKeepThreshold(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10, Threshold: model.IntPtr(4)})
	require.NoError(t, err)

	item, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 8, KeepThreshold: true})
	require.NoError(t, err)
	require.NotNil(t, item.Threshold, "keep_threshold preserves the stored value")
	assert.Equal(t, 4, *item.Threshold)

	item, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 8})
	require.NoError(t, err)
	assert.Nil(t, item.Threshold, "without keep_threshold a nil input clears it")
}

func TestSetQuantityMovementStamps(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10})
	require.NoError(t, err)

	item, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 4})
	require.NoError(t, err)
	require.NotNil(t, item.LastOut)
	require.NotNil(t, item.LastOutDelta)
	assert.Equal(t, 6, *item.LastOutDelta)

	item, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 9})
	require.NoError(t, err)
	require.NotNil(t, item.LastInDelta)
	assert.Equal(t, 5, *item.LastInDelta)
}

func TestAdjustQuantity(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10})
	require.NoError(t, err)

	item, err := uc.AdjustQuantity(ctx, dto.AdjustQuantityInput{Name: "cola", Delta: 5, User: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 15, item.Quantity)

	item, err = uc.AdjustQuantity(ctx, dto.AdjustQuantityInput{Name: "cola", Delta: -8, User: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 7, item.Quantity)
	require.NotNil(t, item.LastOutDelta)
	assert.Equal(t, 8, *item.LastOutDelta)

	entries := allHistory(t, uc)
	require.Len(t, entries, 3)
	assert.Equal(t, model.ActionOut, entries[0].Action)
	require.NotNil(t, entries[0].Meta.Delta)
	assert.Equal(t, 8, *entries[0].Meta.Delta, "out deltas are recorded as magnitudes")
	require.NotNil(t, entries[0].Meta.PreviousQuantity)
	assert.Equal(t, 15, *entries[0].Meta.PreviousQuantity)
	require.NotNil(t, entries[0].Meta.NewQuantity)
	assert.Equal(t, 7, *entries[0].Meta.NewQuantity)
}

func TestAdjustQuantityGuards(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.AdjustQuantity(ctx, dto.AdjustQuantityInput{Name: "ghost", Delta: 1})
	assert.True(t, model.IsNotFound(err))

	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 3})
	require.NoError(t, err)

	_, err = uc.AdjustQuantity(ctx, dto.AdjustQuantityInput{Name: "cola", Delta: -4})
	assert.True(t, model.IsValidation(err), "stock never goes negative")

	item, err := uc.GetItem(ctx, "cola", "")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity, "a rejected adjustment changes nothing")
}

func TestAdjustQuantityZeroDeltaIsNoOp(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 3})
	require.NoError(t, err)
	before := allHistory(t, uc)

	item, err := uc.AdjustQuantity(ctx, dto.AdjustQuantityInput{Name: "cola", Delta: 0})
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Len(t, allHistory(t, uc), len(before))
}

func TestTransferItem(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	branch, err := uc.CreateStore(ctx, "Branch")
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{
		Name:      "cola",
		Quantity:  10,
		Unit:      strPtr("瓶"),
		Threshold: model.IntPtr(2),
		Category:  "Drinks",
	})
	require.NoError(t, err)

	source, target, err := uc.TransferItem(ctx, dto.TransferInput{
		Name:          "cola",
		Quantity:      4,
		SourceStoreID: model.DefaultStoreID,
		TargetStoreID: branch.ID,
		User:          "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, source.Quantity)
	assert.Equal(t, 4, target.Quantity)

	// The new target record inherits unit, category and threshold.
	assert.Equal(t, "瓶", target.Unit)
	assert.Equal(t, "drinks", target.Category)
	require.NotNil(t, target.Threshold)
	assert.Equal(t, 2, *target.Threshold)
	require.NotNil(t, target.CreatedAt)

	entries := allHistory(t, uc)
	require.Len(t, entries, 3)
	var out, in *model.HistoryEntry
	for i := range entries {
		if !entries[i].Meta.Transfer {
			continue
		}
		if entries[i].Action == model.ActionOut {
			out = &entries[i]
		} else {
			in = &entries[i]
		}
	}
	require.NotNil(t, out)
	require.NotNil(t, in)
	assert.Equal(t, branch.ID, out.Meta.TransferTargetID)
	assert.Equal(t, model.DefaultStoreID, in.Meta.TransferSourceID)
	assert.Equal(t, 4, *out.Meta.Delta)
	assert.Equal(t, 4, *in.Meta.Delta)
}

func TestTransferItemMergesIntoExistingTarget(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	branch, err := uc.CreateStore(ctx, "Branch")
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10})
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 3, Unit: strPtr("箱"), StoreID: branch.ID})
	require.NoError(t, err)

	_, target, err := uc.TransferItem(ctx, dto.TransferInput{
		Name:          "cola",
		Quantity:      5,
		SourceStoreID: model.DefaultStoreID,
		TargetStoreID: branch.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, target.Quantity)
	assert.Equal(t, "箱", target.Unit, "an existing unit is never overwritten")
}

func TestTransferItemGuards(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	branch, err := uc.CreateStore(ctx, "Branch")
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 3})
	require.NoError(t, err)

	_, _, err = uc.TransferItem(ctx, dto.TransferInput{Name: "cola", Quantity: 0, SourceStoreID: model.DefaultStoreID, TargetStoreID: branch.ID})
	assert.True(t, model.IsValidation(err))

	_, _, err = uc.TransferItem(ctx, dto.TransferInput{Name: "cola", Quantity: 1, SourceStoreID: model.DefaultStoreID, TargetStoreID: model.DefaultStoreID})
	assert.True(t, model.IsValidation(err))

	_, _, err = uc.TransferItem(ctx, dto.TransferInput{Name: "cola", Quantity: 5, SourceStoreID: model.DefaultStoreID, TargetStoreID: branch.ID})
	assert.True(t, model.IsValidation(err), "insufficient source stock")

	_, _, err = uc.TransferItem(ctx, dto.TransferInput{Name: "ghost", Quantity: 1, SourceStoreID: model.DefaultStoreID, TargetStoreID: branch.ID})
	assert.True(t, model.IsNotFound(err))

	// A failed transfer must leave both stores untouched.
	item, err := uc.GetItem(ctx, "cola", model.DefaultStoreID)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	_, err = uc.GetItem(ctx, "cola", branch.ID)
	assert.True(t, model.IsNotFound(err))
}

func TestDeleteItem(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 5, Unit: strPtr("瓶")})
	require.NoError(t, err)

	require.NoError(t, uc.DeleteItem(ctx, "cola", "", "alice"))
	_, err = uc.GetItem(ctx, "cola", "")
	assert.True(t, model.IsNotFound(err))

	err = uc.DeleteItem(ctx, "cola", "", "alice")
	assert.True(t, model.IsNotFound(err))

	entries := allHistory(t, uc)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionDelete, entries[0].Action)
	require.NotNil(t, entries[0].Meta.PreviousQuantity)
	assert.Equal(t, 5, *entries[0].Meta.PreviousQuantity)
}

func TestListItemsFiltersByCategory(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 5, Category: "Drinks"})
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "chips", Quantity: 3})
	require.NoError(t, err)

	items, err := uc.ListItems(ctx, "", "drinks")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items, "cola")

	items, err = uc.ListItems(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestUnknownStoreFallsBackToDefault(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	item, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 5, StoreID: "no-such-store"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultStoreID, item.StoreID)
}

func TestConcurrentAdjustmentsConserveStock(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 100})
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		delta := 1
		if i%2 == 1 {
			delta = -1
		}
		go func(d int) {
			defer wg.Done()
			_, err := uc.AdjustQuantity(ctx, dto.AdjustQuantityInput{Name: "cola", Delta: d})
			assert.NoError(t, err)
		}(delta)
	}
	wg.Wait()

	item, err := uc.GetItem(ctx, "cola", "")
	require.NoError(t, err)
	assert.Equal(t, 100, item.Quantity, "equal numbers of +1 and -1 adjustments cancel out")

	entries, err := uc.ListHistory(ctx, dto.HistoryFilter{Limit: -1})
	require.NoError(t, err)
	assert.Len(t, entries, workers+1)
}
