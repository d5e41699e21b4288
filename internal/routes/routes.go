package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	handler "finance-tracker-backend/internal/handlers"
	"finance-tracker-backend/internal/middleware"
	"finance-tracker-backend/internal/repository"
	"finance-tracker-backend/internal/services/categories"
	"finance-tracker-backend/internal/services/matching"
	"finance-tracker-backend/internal/services/merchants"
	"finance-tracker-backend/internal/services/transactions"
)

type Options struct {
	FuzzyThreshold   float64
	SimilarityScorer string
	MaxBatchSize     int
}

func RegisterRoutes(r *gin.Engine, db *gorm.DB, log zerolog.Logger, opts Options) {
	engine := matching.NewEngine(
		repository.NewMatchingStore(db),
		matching.NewFuzzyMatcher(matching.NewScorer(opts.SimilarityScorer), opts.FuzzyThreshold),
	)

	txHandler := handler.NewTransactionHandler(transactions.NewService(db, engine, opts.MaxBatchSize, log))
	merchantHandler := handler.NewMerchantHandler(merchants.NewService(db, log))
	categoryHandler := handler.NewCategoryHandler(categories.NewService(db, log))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := api.Group("", middleware.Auth(repository.NewAPIKeyRepository(db)))

	tx := authed.Group("/transactions")
	tx.POST("", txHandler.BulkCreate)
	tx.POST("/single", txHandler.Create)
	tx.GET("", txHandler.List)
	tx.GET("/summary", txHandler.Summary)
	tx.POST("/recommend", txHandler.RecommendDescription)
	tx.GET("/:id", txHandler.Get)
	tx.PATCH("/:id", txHandler.Update)
	tx.DELETE("/:id", txHandler.Delete)
	tx.POST("/:id/split", txHandler.Split)
	tx.POST("/:id/review", txHandler.Review)
	tx.POST("/:id/reject", txHandler.Reject)
	tx.POST("/:id/recommend", txHandler.Recommend)

	imports := authed.Group("/imports")
	imports.GET("/:batchId", txHandler.GetBatch)
	imports.POST("/:batchId/bulk-review", txHandler.BulkReview)

	m := authed.Group("/merchants")
	m.GET("", merchantHandler.List)
	m.POST("", merchantHandler.Create)
	m.GET("/:id", merchantHandler.Get)
	m.PATCH("/:id", merchantHandler.Update)
	m.DELETE("/:id", merchantHandler.Delete)
	m.POST("/:id/propagate", merchantHandler.Propagate)
	m.POST("/:id/merge", merchantHandler.Merge)

	cats := authed.Group("/categories")
	{
		cats.GET("", categoryHandler.List)
		cats.POST("", categoryHandler.Create)
		cats.GET("/palette", categoryHandler.Palette)
		cats.PATCH("/:id", categoryHandler.Update)
		cats.DELETE("/:id", categoryHandler.Delete)
	}
}
