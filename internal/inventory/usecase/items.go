package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
	"go.uber.org/zap"
)

func (uc *ledgerUseCase) ListItems(ctx context.Context, storeID, categoryID string) (map[string]model.Item, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return nil, err
	}
	resolved := resolveStore(doc, storeID)
	store := doc.Stores[resolved]
	items := make(map[string]model.Item, len(store.Items))
	for name, record := range store.Items {
		if categoryID != "" && record.Category != categoryID {
			continue
		}
		items[name] = record.Snapshot(name, resolved)
	}
	return items, nil
}

func (uc *ledgerUseCase) GetItem(ctx context.Context, name, storeID string) (model.Item, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return model.Item{}, err
	}
	resolved := resolveStore(doc, storeID)
	record, ok := doc.Stores[resolved].Items[name]
	if !ok {
		return model.Item{}, model.NewNotFound("Item", name)
	}
	return record.Snapshot(name, resolved), nil
}

func (uc *ledgerUseCase) SetQuantity(ctx context.Context, input dto.SetQuantityInput) (model.Item, error) {
	if input.Quantity < 0 {
		return model.Item{}, model.NewValidation("Quantity cannot be negative")
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return model.Item{}, err
	}
	resolved := resolveStore(doc, input.StoreID)
	categoryID := ensureCategory(doc, input.Category)
	item, entry := applySet(doc, resolved, setArgs{
		name:          input.Name,
		quantity:      input.Quantity,
		unit:          input.Unit,
		threshold:     input.Threshold,
		keepThreshold: input.KeepThreshold,
		categoryID:    categoryID,
		user:          input.User,
	})
	if err := uc.documents.Save(ctx, doc); err != nil {
		return model.Item{}, err
	}
	if entry != nil {
		if err := uc.appendHistory(ctx, *entry); err != nil {
			return model.Item{}, err
		}
	}
	return item, nil
}

func (uc *ledgerUseCase) AdjustQuantity(ctx context.Context, input dto.AdjustQuantityInput) (model.Item, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return model.Item{}, err
	}
	resolved := resolveStore(doc, input.StoreID)
	store := doc.Stores[resolved]
	record, ok := store.Items[input.Name]
	if !ok {
		return model.Item{}, model.NewNotFound("Item", input.Name)
	}
	previous := record.Quantity
	next := previous + input.Delta
	if next < 0 {
		return model.Item{}, model.NewValidation("Insufficient stock for this operation")
	}
	if input.Delta == 0 {
		// Literal zero delta is a no-op: no write, no audit noise.
		return record.Snapshot(input.Name, resolved), nil
	}
	now := time.Now().UTC()
	record.Quantity = next
	meta := model.HistoryMeta{
		NewQuantity:      model.IntPtr(next),
		PreviousQuantity: model.IntPtr(previous),
		Unit:             record.Unit,
		StoreID:          resolved,
		StoreName:        store.Name,
		CategoryID:       record.Category,
		CategoryName:     categoryName(doc, record.Category),
		User:             input.User,
	}
	action := model.ActionIn
	if input.Delta > 0 {
		record.LastIn = &now
		record.LastInDelta = model.IntPtr(input.Delta)
		meta.Delta = model.IntPtr(input.Delta)
	} else {
		action = model.ActionOut
		record.LastOut = &now
		record.LastOutDelta = model.IntPtr(-input.Delta)
		meta.Delta = model.IntPtr(-input.Delta)
	}
	if err := uc.documents.Save(ctx, doc); err != nil {
		return model.Item{}, err
	}
	entry := model.HistoryEntry{Timestamp: now, Action: action, Name: input.Name, Meta: meta}
	if err := uc.appendHistory(ctx, entry); err != nil {
		return model.Item{}, err
	}
	return record.Snapshot(input.Name, resolved), nil
}

func (uc *ledgerUseCase) TransferItem(ctx context.Context, input dto.TransferInput) (model.Item, model.Item, error) {
	if input.Quantity <= 0 {
		return model.Item{}, model.Item{}, model.NewValidation("Transfer quantity must be greater than zero")
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return model.Item{}, model.Item{}, err
	}
	sourceID := resolveStore(doc, input.SourceStoreID)
	targetID := resolveStore(doc, input.TargetStoreID)
	if sourceID == targetID {
		return model.Item{}, model.Item{}, model.NewValidation("Source and target stores must be different")
	}
	sourceStore := doc.Stores[sourceID]
	targetStore := doc.Stores[targetID]
	sourceRecord, ok := sourceStore.Items[input.Name]
	if !ok {
		return model.Item{}, model.Item{}, model.NewNotFound("Item", input.Name)
	}
	previousSource := sourceRecord.Quantity
	if input.Quantity > previousSource {
		return model.Item{}, model.Item{}, model.NewValidation("Insufficient stock for transfer")
	}

	now := time.Now().UTC()
	sourceRecord.Quantity = previousSource - input.Quantity
	sourceRecord.LastOut = &now
	sourceRecord.LastOutDelta = model.IntPtr(input.Quantity)

	targetRecord, targetExists := targetStore.Items[input.Name]
	previousTarget := 0
	if !targetExists {
		targetRecord = &model.ItemRecord{Category: model.UncategorizedID}
		targetStore.Items[input.Name] = targetRecord
	} else {
		previousTarget = targetRecord.Quantity
	}
	targetRecord.Quantity = previousTarget + input.Quantity
	targetRecord.LastIn = &now
	targetRecord.LastInDelta = model.IntPtr(input.Quantity)
	if !targetExists {
		targetRecord.CreatedAt = &now
		targetRecord.CreatedQuantity = model.IntPtr(targetRecord.Quantity)
	}
	// The target record inherits unit, category and threshold from the source
	// when it has none of its own.
	if targetRecord.Unit == "" && sourceRecord.Unit != "" {
		targetRecord.Unit = sourceRecord.Unit
	}
	if strings.TrimSpace(targetRecord.Category) == "" {
		targetRecord.Category = sourceRecord.Category
	}
	if targetRecord.Category == "" {
		targetRecord.Category = model.UncategorizedID
	}
	if sourceRecord.Threshold != nil && (!targetExists || targetRecord.Threshold == nil) {
		targetRecord.Threshold = model.IntPtr(*sourceRecord.Threshold)
	}

	sourceEntry := model.HistoryEntry{
		Timestamp: now,
		Action:    model.ActionOut,
		Name:      input.Name,
		Meta: model.HistoryMeta{
			PreviousQuantity:   model.IntPtr(previousSource),
			NewQuantity:        model.IntPtr(sourceRecord.Quantity),
			Delta:              model.IntPtr(input.Quantity),
			Unit:               sourceRecord.Unit,
			StoreID:            sourceID,
			StoreName:          sourceStore.Name,
			CategoryID:         sourceRecord.Category,
			CategoryName:       categoryName(doc, sourceRecord.Category),
			User:               input.User,
			Transfer:           true,
			TransferTargetID:   targetID,
			TransferTargetName: targetStore.Name,
		},
	}
	targetEntry := model.HistoryEntry{
		Timestamp: now,
		Action:    model.ActionIn,
		Name:      input.Name,
		Meta: model.HistoryMeta{
			PreviousQuantity:   model.IntPtr(previousTarget),
			NewQuantity:        model.IntPtr(targetRecord.Quantity),
			Delta:              model.IntPtr(input.Quantity),
			Unit:               targetRecord.Unit,
			StoreID:            targetID,
			StoreName:          targetStore.Name,
			CategoryID:         targetRecord.Category,
			CategoryName:       categoryName(doc, targetRecord.Category),
			User:               input.User,
			Transfer:           true,
			TransferSourceID:   sourceID,
			TransferSourceName: sourceStore.Name,
		},
	}

	if err := uc.documents.Save(ctx, doc); err != nil {
		return model.Item{}, model.Item{}, err
	}
	if err := uc.appendHistory(ctx, sourceEntry, targetEntry); err != nil {
		return model.Item{}, model.Item{}, err
	}
	uc.logger.Debug("item transferred",
		zap.String("name", input.Name),
		zap.String("source", sourceID),
		zap.String("target", targetID),
		zap.Int("quantity", input.Quantity))
	return sourceRecord.Snapshot(input.Name, sourceID), targetRecord.Snapshot(input.Name, targetID), nil
}

func (uc *ledgerUseCase) DeleteItem(ctx context.Context, name, storeID, user string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	doc, err := uc.documents.Load(ctx)
	if err != nil {
		return err
	}
	resolved := resolveStore(doc, storeID)
	store := doc.Stores[resolved]
	record, ok := store.Items[name]
	if !ok {
		return model.NewNotFound("Item", name)
	}
	entry := model.HistoryEntry{
		Timestamp: time.Now().UTC(),
		Action:    model.ActionDelete,
		Name:      name,
		Meta: model.HistoryMeta{
			PreviousQuantity: model.IntPtr(record.Quantity),
			Unit:             record.Unit,
			StoreID:          resolved,
			StoreName:        store.Name,
			CategoryID:       record.Category,
			CategoryName:     categoryName(doc, record.Category),
			User:             user,
		},
	}
	delete(store.Items, name)
	if err := uc.documents.Save(ctx, doc); err != nil {
		return err
	}
	return uc.appendHistory(ctx, entry)
}

type setArgs struct {
	name          string
	quantity      int
	unit          *string
	threshold     *int
	keepThreshold bool
	categoryID    string
	user          string
}

// applySet mutates the in-memory document for one create-or-set and returns
// the resulting snapshot plus the history entry to append (nil when the write
// changed nothing observable). Persisting is the caller's job, which is what
// lets bulk import batch many sets into one save.
func applySet(doc *model.Document, storeID string, args setArgs) (model.Item, *model.HistoryEntry) {
	store := doc.Stores[storeID]
	record, exists := store.Items[args.name]
	if !exists {
		record = &model.ItemRecord{Category: model.UncategorizedID}
		store.Items[args.name] = record
	}
	previousQuantity := record.Quantity
	previousUnit := record.Unit
	record.Quantity = args.quantity
	if args.unit != nil {
		record.Unit = strings.TrimSpace(*args.unit)
	}
	record.Category = args.categoryID
	if record.Category == "" {
		record.Category = model.UncategorizedID
	}
	if !args.keepThreshold {
		record.Threshold = model.NormalizeThreshold(args.threshold)
	} else if !exists && record.Threshold == nil {
		record.Threshold = model.NormalizeThreshold(args.threshold)
	}

	now := time.Now().UTC()
	if !exists {
		record.CreatedAt = &now
		record.CreatedQuantity = model.IntPtr(args.quantity)
	}
	switch {
	case args.quantity > previousQuantity:
		record.LastIn = &now
		record.LastInDelta = model.IntPtr(args.quantity - previousQuantity)
	case args.quantity < previousQuantity:
		record.LastOut = &now
		record.LastOutDelta = model.IntPtr(previousQuantity - args.quantity)
	case args.quantity > 0 && record.LastIn == nil && record.LastOut == nil:
		// A freshly imported record with no movement yet should not look like
		// it never moved; backfill last_in once.
		record.LastIn = &now
	}

	var entry *model.HistoryEntry
	if !exists {
		entry = &model.HistoryEntry{
			Timestamp: now,
			Action:    model.ActionCreate,
			Name:      args.name,
			Meta: model.HistoryMeta{
				Quantity:         model.IntPtr(args.quantity),
				PreviousQuantity: model.IntPtr(previousQuantity),
				Unit:             record.Unit,
				StoreID:          storeID,
				StoreName:        store.Name,
				CategoryID:       record.Category,
				CategoryName:     categoryName(doc, record.Category),
				User:             args.user,
			},
		}
	} else {
		delta := args.quantity - previousQuantity
		unitChanged := record.Unit != previousUnit
		if delta != 0 || unitChanged {
			meta := model.HistoryMeta{
				NewQuantity:      model.IntPtr(args.quantity),
				PreviousQuantity: model.IntPtr(previousQuantity),
				Unit:             record.Unit,
				StoreID:          storeID,
				StoreName:        store.Name,
				CategoryID:       record.Category,
				CategoryName:     categoryName(doc, record.Category),
				User:             args.user,
			}
			if unitChanged {
				meta.PreviousUnit = previousUnit
			}
			if delta != 0 {
				meta.Delta = model.IntPtr(delta)
			}
			entry = &model.HistoryEntry{
				Timestamp: now,
				Action:    model.ActionSet,
				Name:      args.name,
				Meta:      meta,
			}
		}
	}
	return record.Snapshot(args.name, storeID), entry
}
