package transactions

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
)

const uncategorizedName = "Uncategorized"

type CategoryGroup struct {
	CategoryID *uuid.UUID `json:"categoryId"`
	Name       string     `json:"name"`
	Count      int64      `json:"count"`
	Income     int64      `json:"income"`
	Expense    int64      `json:"expense"`
	Net        int64      `json:"net"`
}

// Summary reports totals over a date range. Amount sign decides income vs expense;
// TreatAsIncome only places a category under Income instead of Spending.
type Summary struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	IncomeTotal  int64           `json:"incomeTotal"`
	ExpenseTotal int64           `json:"expenseTotal"`
	Net          int64           `json:"net"`
	SavingsRate  float64         `json:"savingsRate"`
	Income       []CategoryGroup `json:"income"`
	Spending     []CategoryGroup `json:"spending"`
}

// Summary groups the user's transactions dated in [from, to] by category. Empty bounds are open.
// Categories hidden from insights are left out entirely.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, from, to string) (*Summary, error) {
	var err error
	lo, hi := "0000-01-01", "9999-12-31"
	if from != "" {
		if lo, err = NormalizeDate(from); err != nil {
			return nil, apperrors.NewValidationError("invalid from date")
		}
	}
	if to != "" {
		if hi, err = NormalizeDate(to); err != nil {
			return nil, apperrors.NewValidationError("invalid to date")
		}
	}
	if lo > hi {
		return nil, apperrors.NewValidationError("from must not be after to")
	}

	r := reposFor(s.db)
	rows, err := r.transactions.CategoryTotals(ctx, userID, lo, hi)
	if err != nil {
		return nil, err
	}
	list, err := r.categories.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	categories := make(map[uuid.UUID]models.Category, len(list))
	for _, c := range list {
		categories[c.ID] = c
	}

	sum := &Summary{From: from, To: to, Income: []CategoryGroup{}, Spending: []CategoryGroup{}}
	for _, row := range rows {
		group := CategoryGroup{
			CategoryID: row.CategoryID,
			Name:       uncategorizedName,
			Count:      row.Count,
			Income:     row.Income,
			Expense:    row.Expense,
			Net:        row.Income + row.Expense,
		}

		asIncome := false
		if row.CategoryID != nil {
			c, ok := categories[*row.CategoryID]
			if ok && c.HideFromInsights {
				continue
			}
			if ok {
				group.Name = c.Name
				asIncome = c.TreatAsIncome
			}
		}

		sum.IncomeTotal += row.Income
		sum.ExpenseTotal += row.Expense
		if asIncome {
			sum.Income = append(sum.Income, group)
		} else {
			sum.Spending = append(sum.Spending, group)
		}
	}

	sum.Net = sum.IncomeTotal + sum.ExpenseTotal
	if sum.IncomeTotal > 0 {
		sum.SavingsRate = float64(sum.Net) / float64(sum.IncomeTotal)
	}
	sortGroups(sum.Income)
	sortGroups(sum.Spending)
	return sum, nil
}

func sortGroups(groups []CategoryGroup) {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Name != groups[j].Name {
			return groups[i].Name < groups[j].Name
		}
		return idString(groups[i].CategoryID) < idString(groups[j].CategoryID)
	})
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
