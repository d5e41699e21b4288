package transactions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
	"finance-tracker-backend/internal/repository"
	"finance-tracker-backend/internal/services/matching"
	"finance-tracker-backend/internal/testutil"
)

type fixture struct {
	db   *gorm.DB
	svc  *Service
	user uuid.UUID
	ctx  context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	engine := matching.NewEngine(repository.NewMatchingStore(db), nil)
	return &fixture{
		db:   db,
		svc:  NewService(db, engine, 0, zerolog.Nop()),
		user: uuid.New(),
		ctx:  context.Background(),
	}
}

func (f *fixture) category(t *testing.T, name string, mutate ...func(*models.Category)) *models.Category {
	t.Helper()
	c := &models.Category{UserID: f.user, Name: name}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) transaction(t *testing.T, tx models.Transaction) *models.Transaction {
	t.Helper()
	tx.UserID = f.user
	if tx.Date == "" {
		tx.Date = "2024-01-15"
	}
	require.NoError(t, f.db.Create(&tx).Error)
	return &tx
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Where("user_id = ?", f.user).Count(&n).Error)
	return n
}

func statement() []CreateInput {
	return []CreateInput{
		{Amount: -450, Date: "2024-01-15", TransactionDetails: "STARBUCKS #4521", ExternalID: "FIT-1"},
		{Amount: -1599, Date: "2024-01-16T00:00:00.000Z", TransactionDetails: "NETFLIX.COM", ExternalID: "FIT-2", Notes: "monthly"},
		{Amount: 250000, Date: "2024-01-31", TransactionDetails: "ACME PAYROLL", ExternalID: "FIT-3"},
	}
}

func TestBulkCreate_ReimportIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.BulkCreate(f.ctx, f.user, "qfx", statement())
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.Inserted)
	assert.Equal(t, int64(0), first.Duplicates)

	second, err := f.svc.BulkCreate(f.ctx, f.user, "qfx", statement())
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Inserted)
	assert.Equal(t, int64(3), second.Duplicates)
	assert.NotEqual(t, first.BatchID, second.BatchID)

	assert.Equal(t, int64(3), f.count(t))

	batch, err := f.svc.GetBatch(f.ctx, f.user, second.BatchID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, batch.Status)
	assert.Equal(t, 3, batch.SubmittedCount)
	assert.Equal(t, 3, batch.DuplicateCount)
	assert.NotNil(t, batch.CompletedAt)
}

func TestBulkCreate_NormalizesDates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BulkCreate(f.ctx, f.user, "api", statement())
	require.NoError(t, err)

	var tx models.Transaction
	require.NoError(t, f.db.First(&tx, "external_id = ?", "FIT-2").Error)
	assert.Equal(t, "2024-01-16", tx.Date)
	assert.Equal(t, "monthly", tx.Notes)
	assert.False(t, tx.Reviewed)
}

func TestBulkCreate_ValidationErrorsAreIndexed(t *testing.T) {
	f := newFixture(t)
	inputs := statement()
	inputs[1].ExternalID = ""
	inputs[2].Date = "yesterday"

	_, err := f.svc.BulkCreate(f.ctx, f.user, "api", inputs)
	require.Error(t, err)
	require.True(t, apperrors.IsValidationErrors(err))

	var verrs *apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{
		"Validation error at transaction 1: externalId is required",
		`Validation error at transaction 2: invalid date "yesterday"`,
	}, verrs.Messages())
	assert.Zero(t, f.count(t))
}

func TestBulkCreate_RejectsOversizedBatch(t *testing.T) {
	f := newFixture(t)
	f.svc.maxBatchSize = 2

	_, err := f.svc.BulkCreate(f.ctx, f.user, "api", statement())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestBulkCreate_RejectsForeignCategory(t *testing.T) {
	f := newFixture(t)
	foreign := &models.Category{UserID: uuid.New(), Name: "Theirs"}
	require.NoError(t, f.db.Create(foreign).Error)

	inputs := statement()[:1]
	inputs[0].CategoryID = &foreign.ID
	_, err := f.svc.BulkCreate(f.ctx, f.user, "api", inputs)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationErrors(err))
}

func TestBulkCreate_PrefillsFromMerchantKeywords(t *testing.T) {
	f := newFixture(t)
	streaming := f.category(t, "Streaming")
	merchant := &models.Merchant{
		UserID:                f.user,
		Name:                  "Netflix",
		RecommendedCategoryID: &streaming.ID,
		Keywords:              []models.MerchantKeyword{{Keyword: "netflix"}},
	}
	require.NoError(t, f.db.Create(merchant).Error)

	_, err := f.svc.BulkCreate(f.ctx, f.user, "qfx", statement())
	require.NoError(t, err)

	var tx models.Transaction
	require.NoError(t, f.db.First(&tx, "external_id = ?", "FIT-2").Error)
	require.NotNil(t, tx.MerchantID)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, merchant.ID, *tx.MerchantID)
	assert.Equal(t, streaming.ID, *tx.CategoryID)
	assert.Contains(t, string(tx.MatchDetails), `"source":"keyword"`)

	var other models.Transaction
	require.NoError(t, f.db.First(&other, "external_id = ?", "FIT-1").Error)
	assert.Nil(t, other.MerchantID)
	assert.Nil(t, other.CategoryID)
}

func TestCreate_DuplicateExternalIDConflicts(t *testing.T) {
	f := newFixture(t)
	in := CreateInput{Amount: -100, Date: "2024-02-01", TransactionDetails: "CORNER SHOP", ExternalID: "M-1"}

	created, err := f.svc.Create(f.ctx, f.user, in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	_, err = f.svc.Create(f.ctx, f.user, in)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	in.ExternalID = ""
	_, err = f.svc.Create(f.ctx, f.user, in)
	require.NoError(t, err)
	_, err = f.svc.Create(f.ctx, f.user, in)
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.count(t))
}

func TestRecommend_UsesReviewedHistory(t *testing.T) {
	f := newFixture(t)
	coffee := f.category(t, "Coffee")
	f.transaction(t, models.Transaction{Vendor: "STARBUCKS #4521", Amount: -450, CategoryID: &coffee.ID, Reviewed: true})
	pending := f.transaction(t, models.Transaction{Vendor: "STARBUCKS #4521", Amount: -520, Date: "2024-02-01"})

	res, err := f.svc.Recommend(f.ctx, f.user, pending.ID, true)
	require.NoError(t, err)
	require.NotNil(t, res.Recommendation.CategoryID)
	assert.Equal(t, coffee.ID, *res.Recommendation.CategoryID)
	assert.Equal(t, matching.SourceExactVendor, res.Recommendation.Source)
	assert.True(t, res.Applied)

	stored, err := f.svc.Get(f.ctx, f.user, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CategoryID)
	assert.Equal(t, coffee.ID, *stored.CategoryID)
}

func TestRecommend_UncategorizedReviewedRowsAreNotHistory(t *testing.T) {
	f := newFixture(t)
	coffee := f.category(t, "Coffee")
	f.transaction(t, models.Transaction{Vendor: "STARBUCKS #4521", Amount: -450, CategoryID: &coffee.ID, Reviewed: true, Date: "2024-01-10"})
	// newer exact-vendor row, reviewed but left without a category
	f.transaction(t, models.Transaction{Vendor: "STARBUCKS #4521", Amount: -480, Reviewed: true, Date: "2024-01-20"})
	pending := f.transaction(t, models.Transaction{Vendor: "STARBUCKS #4521", Amount: -520, Date: "2024-02-01"})

	res, err := f.svc.Recommend(f.ctx, f.user, pending.ID, false)
	require.NoError(t, err)
	assert.Equal(t, matching.SourceExactVendor, res.Recommendation.Source)
	require.NotNil(t, res.Recommendation.CategoryID)
	assert.Equal(t, coffee.ID, *res.Recommendation.CategoryID)
	assert.False(t, res.Applied)
}

func TestRecommend_IgnoresUnreviewedHistory(t *testing.T) {
	f := newFixture(t)
	coffee := f.category(t, "Coffee")
	f.transaction(t, models.Transaction{Vendor: "STARBUCKS #4521", Amount: -450, CategoryID: &coffee.ID})
	pending := f.transaction(t, models.Transaction{Vendor: "STARBUCKS #4521", Amount: -520})

	res, err := f.svc.Recommend(f.ctx, f.user, pending.ID, true)
	require.NoError(t, err)
	assert.Equal(t, matching.SourceNone, res.Recommendation.Source)
	assert.False(t, res.Applied)
	assert.Nil(t, res.Transaction.CategoryID)
}

func TestRecommend_ApplyRequiresUnreviewed(t *testing.T) {
	f := newFixture(t)
	done := f.transaction(t, models.Transaction{Vendor: "ACME", Amount: -1, Reviewed: true})

	_, err := f.svc.Recommend(f.ctx, f.user, done.ID, true)
	assert.True(t, apperrors.IsValidationError(err))

	res, err := f.svc.Recommend(f.ctx, f.user, done.ID, false)
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestSplit_ConservesAmount(t *testing.T) {
	f := newFixture(t)
	groceries := f.category(t, "Groceries")
	orig := f.transaction(t, models.Transaction{
		Vendor: "COSTCO", Amount: -5000, Date: "2024-03-02", ExternalID: strPtr("FIT-9"), CategoryID: &groceries.ID,
	})

	res, err := f.svc.Split(f.ctx, f.user, orig.ID, -2000)
	require.NoError(t, err)

	assert.Equal(t, orig.ID, res.Original.ID)
	assert.Equal(t, int64(-2000), res.Original.Amount)
	assert.Equal(t, int64(-3000), res.Split.Amount)
	assert.Equal(t, int64(-5000), res.Original.Amount+res.Split.Amount)
	assert.Equal(t, "COSTCO", res.Split.Vendor)
	assert.Equal(t, "2024-03-02", res.Split.Date)
	assert.Equal(t, groceries.ID, *res.Split.CategoryID)
	assert.Equal(t, "FIT-9", *res.Original.ExternalID)
	assert.Nil(t, res.Split.ExternalID)
	assert.Equal(t, int64(2), f.count(t))

	var logs []models.ReassignmentLog
	require.NoError(t, f.db.Where("action = ?", models.ActionSplit).Find(&logs).Error)
	assert.Len(t, logs, 1)
}

func TestSplit_ReimportDoesNotResurrectOriginal(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BulkCreate(f.ctx, f.user, "qfx", statement())
	require.NoError(t, err)

	var tx models.Transaction
	require.NoError(t, f.db.First(&tx, "external_id = ?", "FIT-1").Error)
	_, err = f.svc.Split(f.ctx, f.user, tx.ID, -200)
	require.NoError(t, err)

	res, err := f.svc.BulkCreate(f.ctx, f.user, "qfx", statement())
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Inserted)
	assert.Equal(t, int64(4), f.count(t))
}

func TestSplit_Validation(t *testing.T) {
	f := newFixture(t)
	orig := f.transaction(t, models.Transaction{Vendor: "COSTCO", Amount: -5000})

	for name, amount := range map[string]int64{
		"zero":          0,
		"opposite sign": 2000,
		"same amount":   -5000,
		"larger":        -6000,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Split(f.ctx, f.user, orig.ID, amount)
			assert.True(t, apperrors.IsValidationError(err))
		})
	}

	stored, err := f.svc.Get(f.ctx, f.user, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), stored.Amount)
	assert.Equal(t, int64(1), f.count(t))
}

func TestSplit_OtherUsersTransactionIsNotFound(t *testing.T) {
	f := newFixture(t)
	orig := f.transaction(t, models.Transaction{Vendor: "COSTCO", Amount: -5000})

	_, err := f.svc.Split(f.ctx, uuid.New(), orig.ID, -1000)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdate_ManualCategoryClearsMatchDetails(t *testing.T) {
	f := newFixture(t)
	coffee := f.category(t, "Coffee")
	tx := f.transaction(t, models.Transaction{Vendor: "BLUE BOTTLE", Amount: -600, MatchDetails: []byte(`{"source":"fuzzy_vendor"}`)})

	notes := "with Sam"
	reviewed := true
	updated, err := f.svc.Update(f.ctx, f.user, tx.ID, UpdateInput{CategoryID: &coffee.ID, Notes: &notes, Reviewed: &reviewed})
	require.NoError(t, err)
	assert.Equal(t, coffee.ID, *updated.CategoryID)
	assert.Empty(t, updated.MatchDetails)
	assert.Equal(t, "BLUE BOTTLE", updated.Vendor)
	assert.True(t, updated.Reviewed)

	missing := uuid.New()
	_, err = f.svc.Update(f.ctx, f.user, tx.ID, UpdateInput{MerchantID: &missing})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestClearSuggestion(t *testing.T) {
	f := newFixture(t)
	coffee := f.category(t, "Coffee")
	tx := f.transaction(t, models.Transaction{Vendor: "BLUE BOTTLE", Amount: -600, CategoryID: &coffee.ID})

	cleared, err := f.svc.ClearSuggestion(f.ctx, f.user, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.CategoryID)

	_, err = f.svc.MarkReviewed(f.ctx, f.user, tx.ID)
	require.NoError(t, err)
	_, err = f.svc.ClearSuggestion(f.ctx, f.user, tx.ID)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestBulkMarkReviewed(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.BulkCreate(f.ctx, f.user, "qfx", statement())
	require.NoError(t, err)

	n, err := f.svc.BulkMarkReviewed(f.ctx, f.user, res.BatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = f.svc.BulkMarkReviewed(f.ctx, uuid.New(), res.BatchID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	salary := f.category(t, "Salary", func(c *models.Category) { c.TreatAsIncome = true })
	groceries := f.category(t, "Groceries")
	transfers := f.category(t, "Transfers", func(c *models.Category) { c.HideFromInsights = true })

	f.transaction(t, models.Transaction{Vendor: "ACME PAYROLL", Amount: 300000, CategoryID: &salary.ID})
	f.transaction(t, models.Transaction{Vendor: "COSTCO", Amount: -5000, CategoryID: &groceries.ID})
	f.transaction(t, models.Transaction{Vendor: "COSTCO REFUND", Amount: 1000, CategoryID: &groceries.ID})
	f.transaction(t, models.Transaction{Vendor: "ATM", Amount: -2000})
	f.transaction(t, models.Transaction{Vendor: "TO SAVINGS", Amount: -100000, CategoryID: &transfers.ID})
	f.transaction(t, models.Transaction{Vendor: "OLD", Amount: -999, Date: "2023-12-31"})

	sum, err := f.svc.Summary(f.ctx, f.user, "2024-01-01", "2024-01-31")
	require.NoError(t, err)

	assert.Equal(t, int64(301000), sum.IncomeTotal)
	assert.Equal(t, int64(-7000), sum.ExpenseTotal)
	assert.Equal(t, int64(294000), sum.Net)
	assert.InDelta(t, 294000.0/301000.0, sum.SavingsRate, 1e-9)

	require.Len(t, sum.Income, 1)
	assert.Equal(t, "Salary", sum.Income[0].Name)

	require.Len(t, sum.Spending, 2)
	assert.Equal(t, "Groceries", sum.Spending[0].Name)
	assert.Equal(t, int64(2), sum.Spending[0].Count)
	assert.Equal(t, int64(-4000), sum.Spending[0].Net)
	assert.Equal(t, uncategorizedName, sum.Spending[1].Name)
	assert.Nil(t, sum.Spending[1].CategoryID)

	_, err = f.svc.Summary(f.ctx, f.user, "2024-02-01", "2024-01-01")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024-01-15", want: "2024-01-15"},
		{in: " 2024-01-15 ", want: "2024-01-15"},
		{in: "2024-01-15T10:30:00Z", want: "2024-01-15"},
		{in: "2024-01-15T23:30:00.000-05:00", want: "2024-01-15"},
		{in: "", wantErr: true},
		{in: "01/15/2024", wantErr: true},
		{in: "2024-02-30", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeDate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func strPtr(s string) *string { return &s }
