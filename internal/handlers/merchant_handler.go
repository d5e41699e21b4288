package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"finance-tracker-backend/internal/services/merchants"
)

type MerchantHandler struct {
	service *merchants.Service
}

func NewMerchantHandler(service *merchants.Service) *MerchantHandler {
	return &MerchantHandler{service: service}
}

func (h *MerchantHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"merchants": list})
}

func (h *MerchantHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "merchant")
	if !ok {
		return
	}
	m, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Create responds with the merchant and, when keywords were given, how many transactions were reassigned.
func (h *MerchantHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var payload struct {
		Name                  string     `json:"name" binding:"required"`
		Keywords              []string   `json:"keywords"`
		RecommendedCategoryID *uuid.UUID `json:"recommendedCategoryId"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	res, err := h.service.Create(c.Request.Context(), userID, merchants.CreateInput{
		Name:                  payload.Name,
		Keywords:              payload.Keywords,
		RecommendedCategoryID: payload.RecommendedCategoryID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *MerchantHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "merchant")
	if !ok {
		return
	}
	var payload struct {
		Name                     *string    `json:"name"`
		Keywords                 *[]string  `json:"keywords"`
		RecommendedCategoryID    *uuid.UUID `json:"recommendedCategoryId"`
		ClearRecommendedCategory bool       `json:"clearRecommendedCategory"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	res, err := h.service.Update(c.Request.Context(), userID, id, merchants.UpdateInput{
		Name:                     payload.Name,
		Keywords:                 payload.Keywords,
		RecommendedCategoryID:    payload.RecommendedCategoryID,
		ClearRecommendedCategory: payload.ClearRecommendedCategory,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MerchantHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "merchant")
	if !ok {
		return
	}
	n, err := h.service.Delete(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "merchant deleted", "detachedCount": n})
}

func (h *MerchantHandler) Propagate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "merchant")
	if !ok {
		return
	}
	res, err := h.service.Propagate(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Merge folds the merchant in the path into targetId.
func (h *MerchantHandler) Merge(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "merchant")
	if !ok {
		return
	}
	var payload struct {
		TargetID uuid.UUID `json:"targetId" binding:"required"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	res, err := h.service.Merge(c.Request.Context(), userID, id, payload.TargetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
