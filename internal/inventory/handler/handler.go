package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/qvdang/stockledger/internal/auth"
	"github.com/qvdang/stockledger/internal/inventory"
	"github.com/qvdang/stockledger/internal/inventory/dto"
	"github.com/qvdang/stockledger/internal/model"
	"go.uber.org/zap"
)

// Handler exposes the ledger engine over HTTP.
type Handler struct {
	uc     inventory.UseCase
	logger *zap.Logger
}

func New(uc inventory.UseCase, logger *zap.Logger) *Handler {
	return &Handler{uc: uc, logger: logger}
}

type setItemRequest struct {
	Name          string  `json:"name"`
	Quantity      *int    `json:"quantity"`
	Unit          *string `json:"unit"`
	Threshold     any     `json:"threshold"`
	KeepThreshold bool    `json:"keep_threshold"`
	Category      string  `json:"category"`
	StoreID       string  `json:"store_id"`
}

type adjustRequest struct {
	Quantity *int   `json:"quantity"`
	StoreID  string `json:"store_id"`
}

type transferRequest struct {
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	SourceStoreID string `json:"source_store_id"`
	TargetStoreID string `json:"target_store_id"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type importRequest struct {
	Rows    []dto.ImportRow `json:"rows"`
	StoreID string          `json:"store_id"`
}

// ListItems returns the item map of one store, optionally filtered by category.
func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.uc.ListItems(c.Request.Context(), c.Query("store"), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetItem returns a single item snapshot.
func (h *Handler) GetItem(c *gin.Context) {
	item, err := h.uc.GetItem(c.Request.Context(), c.Param("name"), c.Query("store"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// CreateItem creates or overwrites an item via the set operation.
func (h *Handler) CreateItem(c *gin.Context) {
	var req setItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.applySet(c, req)
}

// UpdateItem is the same set operation with the name taken from the path.
func (h *Handler) UpdateItem(c *gin.Context) {
	var req setItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.Name = c.Param("name")
	h.applySet(c, req)
}

func (h *Handler) applySet(c *gin.Context, req setItemRequest) {
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Item name is required"})
		return
	}
	if req.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity is required"})
		return
	}
	item, err := h.uc.SetQuantity(c.Request.Context(), dto.SetQuantityInput{
		Name:          req.Name,
		Quantity:      *req.Quantity,
		Unit:          req.Unit,
		Threshold:     model.NormalizeThreshold(req.Threshold),
		KeepThreshold: req.KeepThreshold,
		Category:      req.Category,
		StoreID:       req.StoreID,
		User:          auth.CurrentUser(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// StockIn increases an existing item's quantity.
func (h *Handler) StockIn(c *gin.Context) {
	h.adjust(c, 1)
}

// StockOut decreases an existing item's quantity.
func (h *Handler) StockOut(c *gin.Context) {
	h.adjust(c, -1)
}

func (h *Handler) adjust(c *gin.Context, sign int) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Quantity == nil || *req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be a positive integer"})
		return
	}
	item, err := h.uc.AdjustQuantity(c.Request.Context(), dto.AdjustQuantityInput{
		Name:    c.Param("name"),
		Delta:   sign * *req.Quantity,
		StoreID: req.StoreID,
		User:    auth.CurrentUser(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// Transfer moves quantity of one item between two stores.
func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	source, target, err := h.uc.TransferItem(c.Request.Context(), dto.TransferInput{
		Name:          req.Name,
		Quantity:      req.Quantity,
		SourceStoreID: req.SourceStoreID,
		TargetStoreID: req.TargetStoreID,
		User:          auth.CurrentUser(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": source, "target": target})
}

// DeleteItem removes an item from a store.
func (h *Handler) DeleteItem(c *gin.Context) {
	err := h.uc.DeleteItem(c.Request.Context(), c.Param("name"), c.Query("store"), auth.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

// ListStores returns every store with its item count.
func (h *Handler) ListStores(c *gin.Context) {
	stores, err := h.uc.ListStores(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

// CreateStore adds a new empty store.
func (h *Handler) CreateStore(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	store, err := h.uc.CreateStore(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"store": store})
}

// DeleteStore removes a store; with cascade=true its items go too.
func (h *Handler) DeleteStore(c *gin.Context) {
	cascade, _ := strconv.ParseBool(c.Query("cascade"))
	err := h.uc.DeleteStore(c.Request.Context(), c.Param("id"), cascade, auth.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Store deleted"})
}

// ListCategories returns the category registry with per-category item counts.
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.uc.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory registers a new category.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	category, err := h.uc.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// DeleteCategory removes a category, reassigning or cascading its items.
func (h *Handler) DeleteCategory(c *gin.Context) {
	cascade, _ := strconv.ParseBool(c.Query("cascade"))
	err := h.uc.DeleteCategory(c.Request.Context(), dto.DeleteCategoryInput{
		CategoryID: c.Param("id"),
		Cascade:    cascade,
		StoreID:    c.Query("store"),
		User:       auth.CurrentUser(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// ListHistory returns audit entries, newest first. Without a limit parameter
// the full history is returned.
func (h *Handler) ListHistory(c *gin.Context) {
	limit := -1
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	entries, err := h.uc.ListHistory(c.Request.Context(), dto.HistoryFilter{
		StoreID: c.Query("store"),
		Limit:   limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// ClearHistory erases the audit log.
func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.uc.ClearHistory(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}

// Import applies a bulk import of loosely typed rows.
func (h *Handler) Import(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	items, err := h.uc.ImportItems(c.Request.Context(), req.Rows, req.StoreID, auth.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": len(items), "items": items})
}

// PreviewImport reports what a bulk import would do without committing it.
func (h *Handler) PreviewImport(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	rows, err := h.uc.PreviewImport(c.Request.Context(), req.Rows, req.StoreID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// Export returns the denormalized export rows as JSON.
func (h *Handler) Export(c *gin.Context) {
	rows, err := h.uc.ExportItems(c.Request.Context(), c.Query("store"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// ExportCSV streams the export rows as a CSV attachment.
func (h *Handler) ExportCSV(c *gin.Context) {
	rows, err := h.uc.ExportItems(c.Request.Context(), c.Query("store"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="inventory_export.csv"`)
	writer := csv.NewWriter(c.Writer)
	header := []string{"store", "category", "name", "quantity", "unit", "threshold"}
	if err := writer.Write(header); err != nil {
		h.logger.Error("failed to write csv header", zap.Error(err))
		return
	}
	for _, row := range rows {
		threshold := ""
		if row.Threshold != nil {
			threshold = strconv.Itoa(*row.Threshold)
		}
		record := []string{
			row.StoreName,
			row.CategoryName,
			row.Name,
			strconv.Itoa(row.Quantity),
			row.Unit,
			threshold,
		}
		if err := writer.Write(record); err != nil {
			h.logger.Error("failed to write csv row", zap.Error(err))
			return
		}
	}
	writer.Flush()
}

func respondError(c *gin.Context, err error) {
	switch {
	case model.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case model.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
