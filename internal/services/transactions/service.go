package transactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
	"finance-tracker-backend/internal/repository"
	"finance-tracker-backend/internal/services/matching"
)

const DefaultMaxBatchSize = 100

type Service struct {
	db           *gorm.DB
	engine       *matching.Engine
	maxBatchSize int
	log          zerolog.Logger
}

func NewService(db *gorm.DB, engine *matching.Engine, maxBatchSize int, log zerolog.Logger) *Service {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &Service{db: db, engine: engine, maxBatchSize: maxBatchSize, log: log}
}

type repos struct {
	transactions *repository.TransactionRepository
	batches      *repository.ImportBatchRepository
	categories   *repository.CategoryRepository
	merchants    *repository.MerchantRepository
	logs         *repository.ReassignmentLogRepository
}

func reposFor(db *gorm.DB) repos {
	return repos{
		transactions: repository.NewTransactionRepository(db),
		batches:      repository.NewImportBatchRepository(db),
		categories:   repository.NewCategoryRepository(db),
		merchants:    repository.NewMerchantRepository(db),
		logs:         repository.NewReassignmentLogRepository(db),
	}
}

// CreateInput is one record of the import contract. Date accepts YYYY-MM-DD or an RFC 3339 timestamp.
type CreateInput struct {
	Amount             int64      `json:"amount"`
	Date               string     `json:"date"`
	TransactionDetails string     `json:"transactionDetails"`
	MerchantID         *uuid.UUID `json:"merchantId,omitempty"`
	CategoryID         *uuid.UUID `json:"categoryId,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	Description        string     `json:"description,omitempty"`
	ExternalID         string     `json:"externalId,omitempty"`
}

type ImportResult struct {
	BatchID    uuid.UUID `json:"batchId"`
	Submitted  int       `json:"submitted"`
	Inserted   int64     `json:"inserted"`
	Duplicates int64     `json:"duplicates"`
}

// NormalizeDate returns raw as YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("date is required")
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t.Format(models.DateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", raw)
	}
	return t.Format(models.DateLayout), nil
}

// BulkCreate imports records for userID. Records whose external id the user already has are skipped;
// Inserted counts only the rows actually written.
func (s *Service) BulkCreate(ctx context.Context, userID uuid.UUID, source string, inputs []CreateInput) (*ImportResult, error) {
	if len(inputs) == 0 {
		return nil, apperrors.NewValidationError("transactions must not be empty")
	}
	if len(inputs) > s.maxBatchSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("at most %d transactions per request", s.maxBatchSize))
	}

	snap, categories, err := s.prepare(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]models.Transaction, 0, len(inputs))
	verrs := &apperrors.ValidationErrors{}
	for i, in := range inputs {
		if strings.TrimSpace(in.ExternalID) == "" {
			verrs.Add(apperrors.NewIndexedValidationError(i, "externalId is required"))
			continue
		}
		row, err := buildRow(userID, in, snap, categories)
		if err != nil {
			verrs.Add(apperrors.NewIndexedValidationError(i, err.Error()))
			continue
		}
		rows = append(rows, row)
	}
	if err := verrs.ErrOrNil(); err != nil {
		return nil, err
	}

	batch := &models.ImportBatch{
		UserID:         userID,
		Source:         source,
		SubmittedCount: len(inputs),
		Status:         models.ImportStatusProcessing,
		StartedAt:      time.Now(),
	}

	var inserted int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		if err := r.batches.Create(ctx, batch); err != nil {
			return fmt.Errorf("create import batch: %w", err)
		}
		for i := range rows {
			rows[i].ImportBatchID = &batch.ID
		}

		n, err := r.transactions.InsertIgnoringDuplicates(ctx, rows)
		if err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}
		inserted = n

		now := time.Now()
		batch.InsertedCount = int(n)
		batch.DuplicateCount = len(rows) - int(n)
		batch.Status = models.ImportStatusCompleted
		batch.CompletedAt = &now
		return tx.WithContext(ctx).Save(batch).Error
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID.String()).Msg("import failed")
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("batch_id", batch.ID.String()).
		Str("source", source).
		Int("submitted", len(inputs)).
		Int64("inserted", inserted).
		Msg("import batch completed")

	return &ImportResult{
		BatchID:    batch.ID,
		Submitted:  len(inputs),
		Inserted:   inserted,
		Duplicates: int64(len(rows)) - inserted,
	}, nil
}

// Create stores a single manually entered transaction. A reused external id is a conflict.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Transaction, error) {
	snap, categories, err := s.prepare(ctx, userID)
	if err != nil {
		return nil, err
	}
	row, err := buildRow(userID, in, snap, categories)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	rows := []models.Transaction{row}
	n, err := reposFor(s.db).transactions.InsertIgnoringDuplicates(ctx, rows)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("external id %q already imported: %w", in.ExternalID, apperrors.ErrConflict)
	}
	return &rows[0], nil
}

func (s *Service) prepare(ctx context.Context, userID uuid.UUID) (*matching.Snapshot, map[uuid.UUID]bool, error) {
	snap, err := s.engine.Snapshot(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load recommendation data: %w", err)
	}
	list, err := reposFor(s.db).categories.List(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load categories: %w", err)
	}
	categories := make(map[uuid.UUID]bool, len(list))
	for _, c := range list {
		categories[c.ID] = true
	}
	return snap, categories, nil
}

// buildRow validates in and fills merchant and category from the snapshot where the caller left them out.
func buildRow(userID uuid.UUID, in CreateInput, snap *matching.Snapshot, categories map[uuid.UUID]bool) (models.Transaction, error) {
	vendor := strings.TrimSpace(in.TransactionDetails)
	if vendor == "" {
		return models.Transaction{}, fmt.Errorf("transactionDetails is required")
	}
	date, err := NormalizeDate(in.Date)
	if err != nil {
		return models.Transaction{}, err
	}

	row := models.Transaction{
		UserID:      userID,
		Amount:      in.Amount,
		Date:        date,
		Vendor:      vendor,
		Notes:       in.Notes,
		Description: in.Description,
		MerchantID:  in.MerchantID,
		CategoryID:  in.CategoryID,
	}
	if ext := strings.TrimSpace(in.ExternalID); ext != "" {
		row.ExternalID = &ext
	}

	if in.CategoryID != nil && !categories[*in.CategoryID] {
		return models.Transaction{}, fmt.Errorf("categoryId does not reference one of your categories")
	}
	if in.MerchantID != nil {
		m := snap.Merchant(*in.MerchantID)
		if m == nil {
			return models.Transaction{}, fmt.Errorf("merchantId does not reference one of your merchants")
		}
		if row.CategoryID == nil {
			row.CategoryID = m.RecommendedCategoryID
		}
		return row, nil
	}

	rec := snap.Recommend(vendor)
	if rec.Empty() {
		return row, nil
	}
	row.MerchantID = rec.MerchantID
	if row.CategoryID == nil {
		row.CategoryID = rec.CategoryID
	}
	row.MatchDetails = rec.Details()
	return row, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	return reposFor(s.db).transactions.GetByID(ctx, userID, id)
}

type Page struct {
	Transactions []models.Transaction `json:"transactions"`
	NextCursor   string               `json:"nextCursor,omitempty"`
	HasMore      bool                 `json:"hasMore"`
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f repository.ListFilter) (*Page, error) {
	if f.Cursor != "" {
		if _, err := uuid.Parse(f.Cursor); err != nil {
			return nil, apperrors.NewValidationError("invalid cursor")
		}
	}
	txs, next, more, err := reposFor(s.db).transactions.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return &Page{Transactions: txs, NextCursor: next, HasMore: more}, nil
}

func (s *Service) GetBatch(ctx context.Context, userID, batchID uuid.UUID) (*models.ImportBatch, error) {
	return reposFor(s.db).batches.GetByID(ctx, userID, batchID)
}

// RecommendDescription runs the engine for a description that is not stored yet.
func (s *Service) RecommendDescription(ctx context.Context, userID uuid.UUID, description string) (matching.Recommendation, error) {
	if strings.TrimSpace(description) == "" {
		return matching.Recommendation{Source: matching.SourceNone}, apperrors.NewValidationError("description is required")
	}
	return s.engine.Recommend(ctx, userID, description)
}
