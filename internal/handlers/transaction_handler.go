package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"finance-tracker-backend/internal/repository"
	"finance-tracker-backend/internal/services/transactions"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type TransactionHandler struct {
	service *transactions.Service
}

func NewTransactionHandler(service *transactions.Service) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// BulkCreate is the import endpoint. count is the number of rows actually inserted.
func (h *TransactionHandler) BulkCreate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var payload struct {
		Transactions []transactions.CreateInput `json:"transactions" binding:"required"`
	}
	if !bindJSON(c, &payload) {
		return
	}

	source := c.GetHeader("X-Import-Source")
	if source == "" {
		source = "api"
	}
	res, err := h.service.BulkCreate(c.Request.Context(), userID, source, payload.Transactions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Transactions imported",
		"count":      res.Inserted,
		"duplicates": res.Duplicates,
		"batchId":    res.BatchID,
	})
}

func (h *TransactionHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var payload transactions.CreateInput
	if !bindJSON(c, &payload) {
		return
	}
	tx, err := h.service.Create(c.Request.Context(), userID, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *TransactionHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	f := repository.ListFilter{
		Search: c.Query("search"),
		Cursor: c.Query("cursor"),
		Limit:  defaultPageSize,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		f.Limit = min(n, maxPageSize)
	}
	if v := c.Query("reviewed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reviewed filter"})
			return
		}
		f.Reviewed = &b
	}
	for param, dst := range map[string]**uuid.UUID{
		"categoryId": &f.CategoryID,
		"merchantId": &f.MerchantID,
		"batchId":    &f.BatchID,
	} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
			return
		}
		*dst = &id
	}

	page, err := h.service.List(c.Request.Context(), userID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *TransactionHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}
	tx, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *TransactionHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}
	var payload struct {
		CategoryID    *uuid.UUID `json:"categoryId"`
		ClearCategory bool       `json:"clearCategory"`
		MerchantID    *uuid.UUID `json:"merchantId"`
		ClearMerchant bool       `json:"clearMerchant"`
		DisplayVendor *string    `json:"displayVendor"`
		Reviewed      *bool      `json:"reviewed"`
		Notes         *string    `json:"notes"`
		Description   *string    `json:"description"`
	}
	if !bindJSON(c, &payload) {
		return
	}

	tx, err := h.service.Update(c.Request.Context(), userID, id, transactions.UpdateInput{
		CategoryID:    payload.CategoryID,
		ClearCategory: payload.ClearCategory,
		MerchantID:    payload.MerchantID,
		ClearMerchant: payload.ClearMerchant,
		DisplayVendor: payload.DisplayVendor,
		Reviewed:      payload.Reviewed,
		Notes:         payload.Notes,
		Description:   payload.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *TransactionHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction deleted"})
}

func (h *TransactionHandler) Split(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}
	var payload struct {
		SplitAmount int64 `json:"splitAmount"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	res, err := h.service.Split(c.Request.Context(), userID, id, payload.SplitAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TransactionHandler) Review(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}
	tx, err := h.service.MarkReviewed(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction reviewed", "transaction": tx})
}

func (h *TransactionHandler) Reject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}
	tx, err := h.service.ClearSuggestion(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "suggestion rejected", "transaction": tx})
}

func (h *TransactionHandler) Recommend(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "transaction")
	if !ok {
		return
	}
	apply, _ := strconv.ParseBool(c.Query("apply"))
	res, err := h.service.Recommend(c.Request.Context(), userID, id, apply)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TransactionHandler) RecommendDescription(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var payload struct {
		Description string `json:"description"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	rec, err := h.service.RecommendDescription(c.Request.Context(), userID, payload.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *TransactionHandler) Summary(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	sum, err := h.service.Summary(c.Request.Context(), userID, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *TransactionHandler) GetBatch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	batchID, ok := pathID(c, "batchId", "batch")
	if !ok {
		return
	}
	batch, err := h.service.GetBatch(c.Request.Context(), userID, batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// BulkReview marks every unreviewed transaction of an import batch as reviewed.
func (h *TransactionHandler) BulkReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	batchID, ok := pathID(c, "batchId", "batch")
	if !ok {
		return
	}
	n, err := h.service.BulkMarkReviewed(c.Request.Context(), userID, batchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "batch reviewed", "reviewedCount": n})
}
