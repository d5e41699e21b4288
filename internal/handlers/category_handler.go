package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"finance-tracker-backend/internal/services/categories"
)

const maxPaletteSize = 64

type CategoryHandler struct {
	service *categories.Service
}

func NewCategoryHandler(service *categories.Service) *CategoryHandler {
	return &CategoryHandler{service: service}
}

func (h *CategoryHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

func (h *CategoryHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var payload categories.Input
	if !bindJSON(c, &payload) {
		return
	}
	cat, err := h.service.Create(c.Request.Context(), userID, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "category")
	if !ok {
		return
	}
	var payload categories.Input
	if !bindJSON(c, &payload) {
		return
	}
	cat, err := h.service.Update(c.Request.Context(), userID, id, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "category")
	if !ok {
		return
	}
	res, err := h.service.Delete(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted", "detached": res})
}

// Palette returns n colours; without a seed a time-based one is used.
func (h *CategoryHandler) Palette(c *gin.Context) {
	n := 8
	if v := c.Query("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > maxPaletteSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be between 1 and 64"})
			return
		}
		n = parsed
	}
	seed := time.Now().UnixNano()
	if v := c.Query("seed"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seed"})
			return
		}
		seed = parsed
	}
	c.JSON(http.StatusOK, gin.H{"colors": categories.GeneratePalette(n, seed), "seed": seed})
}
