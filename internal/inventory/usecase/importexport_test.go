package usecase

import (
	"context"
	"testing"

	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportItems(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	rows := []dto.ImportRow{
		{"name": "可乐", "quantity": float64(24), "unit": "瓶", "category": "饮料", "threshold": float64(6)},
		{"name": "薯片", "quantity": "12", "分类": "零食"},
		{"name": "", "quantity": 5},
		{"name": "bad", "quantity": "abc"},
		nil,
	}

	imported, err := uc.ImportItems(ctx, rows, "", "importer")
	require.NoError(t, err)
	require.Len(t, imported, 2, "unusable rows are skipped, not fatal")

	cola, err := uc.GetItem(ctx, "可乐", "")
	require.NoError(t, err)
	assert.Equal(t, 24, cola.Quantity)
	assert.Equal(t, "瓶", cola.Unit)
	require.NotNil(t, cola.Threshold)
	assert.Equal(t, 6, *cola.Threshold)

	chips, err := uc.GetItem(ctx, "薯片", "")
	require.NoError(t, err)
	assert.Equal(t, 12, chips.Quantity)
	assert.NotEqual(t, model.UncategorizedID, chips.Category, "the 分类 alias resolves the category")

	entries := allHistory(t, uc)
	assert.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, "importer", entry.Meta.User)
	}
}

func TestImportPreservesThresholdWhenColumnAbsent(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10, Threshold: model.IntPtr(3)})
	require.NoError(t, err)

	_, err = uc.ImportItems(ctx, []dto.ImportRow{{"name": "cola", "quantity": float64(20)}}, "", "")
	require.NoError(t, err)

	item, err := uc.GetItem(ctx, "cola", "")
	require.NoError(t, err)
	require.NotNil(t, item.Threshold, "no threshold column means keep the stored one")
	assert.Equal(t, 3, *item.Threshold)

	// An explicit empty threshold column clears it.
	_, err = uc.ImportItems(ctx, []dto.ImportRow{{"name": "cola", "quantity": float64(20), "threshold": ""}}, "", "")
	require.NoError(t, err)
	item, err = uc.GetItem(ctx, "cola", "")
	require.NoError(t, err)
	assert.Nil(t, item.Threshold)
}

func TestPreviewImportDoesNotPersist(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 10, Unit: strPtr("瓶")})
	require.NoError(t, err)
	before := allHistory(t, uc)

	rows := []dto.ImportRow{
		{"name": "cola", "quantity": float64(15), "unit": "箱", "category": "饮料"},
		{"name": "new-item", "quantity": float64(4)},
		{"name": "", "quantity": float64(1)},
		{"name": "broken", "quantity": "x"},
	}
	preview, err := uc.PreviewImport(ctx, rows, "")
	require.NoError(t, err)
	require.Len(t, preview, 4)

	existing := preview[0]
	assert.True(t, existing.Valid)
	assert.True(t, existing.Existing)
	require.NotNil(t, existing.QuantityDelta)
	assert.Equal(t, 5, *existing.QuantityDelta)
	assert.True(t, existing.QuantityChanged)
	assert.True(t, existing.UnitChanged)
	assert.True(t, existing.CategoryChanged)

	fresh := preview[1]
	assert.True(t, fresh.Valid)
	assert.False(t, fresh.Existing)
	require.NotNil(t, fresh.QuantityDelta)
	assert.Equal(t, 4, *fresh.QuantityDelta)

	assert.False(t, preview[2].Valid)
	assert.Contains(t, preview[2].Messages, "missing item name")
	assert.False(t, preview[3].Valid)
	assert.Contains(t, preview[3].Messages, "quantity must be a non-negative integer")

	// Nothing was committed: no new category, no new item, no history.
	assert.Len(t, allHistory(t, uc), len(before))
	_, err = uc.GetItem(ctx, "new-item", "")
	assert.True(t, model.IsNotFound(err))
	categories, err := uc.ListCategories(ctx)
	require.NoError(t, err)
	for _, c := range categories {
		assert.NotEqual(t, "饮料", c.Name)
	}
}

func TestPreviewImportThresholdMessages(t *testing.T) {
	uc := newTestUseCase(t)

	preview, err := uc.PreviewImport(context.Background(), []dto.ImportRow{
		{"name": "a", "quantity": float64(1), "threshold": "oops"},
		{"name": "b", "quantity": float64(1), "threshold": ""},
	}, "")
	require.NoError(t, err)
	require.Len(t, preview, 2)

	assert.Contains(t, preview[0].Messages, "invalid threshold format")
	assert.False(t, preview[0].Valid)

	assert.True(t, preview[1].ThresholdFieldPresent)
	assert.Nil(t, preview[1].Threshold)
	assert.True(t, preview[1].Valid, "an empty threshold cell is not an error")
}

func TestExportItemsOrdering(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	branch, err := uc.CreateStore(ctx, "Aranch")
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 5, Category: "Drinks"})
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "fanta", Quantity: 9, Category: "Drinks"})
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "apple", Quantity: 9, Category: "Drinks"})
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "chips", Quantity: 2, StoreID: branch.ID})
	require.NoError(t, err)

	rows, err := uc.ExportItems(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Store name first ("Aranch" < default), then category name, quantity
	// descending, item name.
	assert.Equal(t, "chips", rows[0].Name)
	assert.Equal(t, "apple", rows[1].Name)
	assert.Equal(t, "fanta", rows[2].Name)
	assert.Equal(t, "cola", rows[3].Name)
	assert.Equal(t, "Drinks", rows[1].CategoryName)
}

func TestExportItemsSingleStore(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	branch, err := uc.CreateStore(ctx, "Branch")
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "cola", Quantity: 5})
	require.NoError(t, err)
	_, err = uc.SetQuantity(ctx, dto.SetQuantityInput{Name: "chips", Quantity: 2, StoreID: branch.ID})
	require.NoError(t, err)

	rows, err := uc.ExportItems(ctx, branch.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "chips", rows[0].Name)
	assert.Equal(t, "Branch", rows[0].StoreName)
}

func TestImportThenExportRoundTrip(t *testing.T) {
	uc := newTestUseCase(t)
	ctx := context.Background()

	rows := []dto.ImportRow{
		{"name": "可乐", "quantity": float64(24), "unit": "瓶", "category": "饮料", "阈值提醒": float64(6)},
	}
	_, err := uc.ImportItems(ctx, rows, "", "")
	require.NoError(t, err)

	exported, err := uc.ExportItems(ctx, "")
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, "可乐", exported[0].Name)
	assert.Equal(t, 24, exported[0].Quantity)
	assert.Equal(t, "瓶", exported[0].Unit)
	assert.Equal(t, "饮料", exported[0].CategoryName)
	require.NotNil(t, exported[0].Threshold)
	assert.Equal(t, 6, *exported[0].Threshold)
}
