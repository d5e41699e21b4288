package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
	"finance-tracker-backend/internal/services/matching"
)

// idChunk bounds the size of IN (...) lists in batched updates.
const idChunk = 500

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) DB() *gorm.DB {
	return r.db
}

// WithTx returns a repository bound to an open transaction.
func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// InsertIgnoringDuplicates inserts txs, silently skipping rows whose (user, external id)
// already exists. It returns the number of rows actually inserted.
func (r *TransactionRepository) InsertIgnoringDuplicates(ctx context.Context, txs []models.Transaction) (int64, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&txs)
	return result.RowsAffected, result.Error
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).First(&tx, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, apperrors.NotFound(err, "transaction")
	}
	return &tx, nil
}

func (r *TransactionRepository) Save(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}

func (r *TransactionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Transaction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(gorm.ErrRecordNotFound, "transaction")
	}
	return nil
}

type ListFilter struct {
	Reviewed   *bool
	CategoryID *uuid.UUID
	MerchantID *uuid.UUID
	BatchID    *uuid.UUID
	Search     string
	Cursor     string
	Limit      int
}

// List pages through a user's transactions ordered by id.
func (r *TransactionRepository) List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]models.Transaction, string, bool, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	var txs []models.Transaction
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Limit(f.Limit + 1)

	if f.Reviewed != nil {
		query = query.Where("reviewed = ?", *f.Reviewed)
	}
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if f.MerchantID != nil {
		query = query.Where("merchant_id = ?", *f.MerchantID)
	}
	if f.BatchID != nil {
		query = query.Where("import_batch_id = ?", *f.BatchID)
	}
	if f.Cursor != "" {
		query = query.Where("id > ?", f.Cursor)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(vendor) LIKE ? OR LOWER(notes) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}

	if err := query.Find(&txs).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(txs) > f.Limit {
		hasMore = true
		nextCursor = txs[f.Limit-1].ID.String()
		txs = txs[:f.Limit]
	}
	return txs, nextCursor, hasMore, nil
}

// ReviewedHistory returns the user's reviewed, categorized transactions, most recent first.
func (r *TransactionRepository) ReviewedHistory(ctx context.Context, userID uuid.UUID) ([]matching.HistoryEntry, error) {
	var rows []struct {
		Vendor     string
		CategoryID uuid.UUID
		Date       string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("vendor, category_id, date").
		Where("user_id = ? AND reviewed = ? AND category_id IS NOT NULL", userID, true).
		Order("date DESC, created_at DESC, id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	history := make([]matching.HistoryEntry, len(rows))
	for i, row := range rows {
		history[i] = matching.HistoryEntry{Vendor: row.Vendor, CategoryID: row.CategoryID, Date: row.Date}
	}
	return history, nil
}

// ListUnreviewedMatching returns the id, vendor and current assignment of every unreviewed
// transaction whose vendor contains one of keywords, ignoring case. Blank keywords are skipped
// and no keywords means no rows.
func (r *TransactionRepository) ListUnreviewedMatching(ctx context.Context, userID uuid.UUID, keywords []string) ([]models.Transaction, error) {
	var (
		conds []string
		args  []interface{}
	)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		conds = append(conds, `LOWER(vendor) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(kw)+"%")
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Select("id, vendor, merchant_id, category_id").
		Where("user_id = ? AND reviewed = ?", userID, false).
		Where("("+strings.Join(conds, " OR ")+")", args...).
		Order("id ASC").
		Find(&txs).Error
	return txs, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// AssignMerchant sets merchant_id (and category_id when categoryID is non-nil) on the given rows.
func (r *TransactionRepository) AssignMerchant(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, merchantID uuid.UUID, categoryID *uuid.UUID) (int64, error) {
	updates := map[string]interface{}{"merchant_id": merchantID}
	if categoryID != nil {
		updates["category_id"] = *categoryID
	}

	var total int64
	for start := 0; start < len(ids); start += idChunk {
		end := min(start+idChunk, len(ids))
		result := r.db.WithContext(ctx).Model(&models.Transaction{}).
			Where("user_id = ? AND id IN ?", userID, ids[start:end]).
			Updates(updates)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}

// RefreshMerchantCategory sets category_id on every transaction of the merchant whose category differs.
func (r *TransactionRepository) RefreshMerchantCategory(ctx context.Context, userID, merchantID, categoryID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND merchant_id = ?", userID, merchantID).
		Where("category_id IS NULL OR category_id <> ?", categoryID).
		Update("category_id", categoryID)
	return result.RowsAffected, result.Error
}

// RepointMerchant moves every transaction from one merchant to another.
func (r *TransactionRepository) RepointMerchant(ctx context.Context, userID, from, to uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND merchant_id = ?", userID, from).
		Update("merchant_id", to)
	return result.RowsAffected, result.Error
}

// ClearMerchant nulls merchant_id on the merchant's transactions.
func (r *TransactionRepository) ClearMerchant(ctx context.Context, userID, merchantID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND merchant_id = ?", userID, merchantID).
		Update("merchant_id", nil)
	return result.RowsAffected, result.Error
}

// ClearCategory nulls category_id on the category's transactions.
func (r *TransactionRepository) ClearCategory(ctx context.Context, userID, categoryID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Update("category_id", nil)
	return result.RowsAffected, result.Error
}

// MarkBatchReviewed marks every unreviewed transaction of an import batch as reviewed.
func (r *TransactionRepository) MarkBatchReviewed(ctx context.Context, userID, batchID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND import_batch_id = ? AND reviewed = ?", userID, batchID, false).
		Update("reviewed", true)
	return result.RowsAffected, result.Error
}

type CategoryTotalRow struct {
	CategoryID *uuid.UUID
	Count      int64
	Income     int64
	Expense    int64
}

// CategoryTotals groups the user's transactions dated in [from, to] by category.
// Income sums positive amounts and Expense negative ones.
func (r *TransactionRepository) CategoryTotals(ctx context.Context, userID uuid.UUID, from, to string) ([]CategoryTotalRow, error) {
	var rows []CategoryTotalRow
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select(`category_id,
			COUNT(*) AS count,
			COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN amount < 0 THEN amount ELSE 0 END), 0) AS expense`).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Group("category_id").
		Scan(&rows).Error
	return rows, err
}
