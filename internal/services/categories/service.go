package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
	"finance-tracker-backend/internal/repository"
)

type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

type Input struct {
	Name             *string    `json:"name"`
	Color            *string    `json:"color"`
	Icon             *string    `json:"icon"`
	TreatAsIncome    *bool      `json:"treatAsIncome"`
	HideFromInsights *bool      `json:"hideFromInsights"`
	ParentCategoryID *uuid.UUID `json:"parentCategoryId"`
	ClearParent      bool       `json:"clearParent"`
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	return repository.NewCategoryRepository(s.db).List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Category, error) {
	return repository.NewCategoryRepository(s.db).GetByID(ctx, userID, id)
}

// Create adds a category. Without a colour, one is picked from the palette by category count.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*models.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.NewValidationError("name is required")
	}

	c := &models.Category{UserID: userID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewCategoryRepository(tx)
		if err := apply(ctx, repo, c, in); err != nil {
			return err
		}
		if c.Color == "" {
			n, err := repo.Count(ctx, userID)
			if err != nil {
				return err
			}
			c.Color = GeneratePalette(int(n)+1, 0)[n]
		}
		return repo.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in Input) (*models.Category, error) {
	var c *models.Category
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := repository.NewCategoryRepository(tx)
		var err error
		if c, err = repo.GetByID(ctx, userID, id); err != nil {
			return err
		}
		if err := apply(ctx, repo, c, in); err != nil {
			return err
		}
		return repo.Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// apply copies in onto c, enforcing name uniqueness and the one-level hierarchy.
func apply(ctx context.Context, repo *repository.CategoryRepository, c *models.Category, in Input) error {
	var self *uuid.UUID
	if c.ID != uuid.Nil {
		self = &c.ID
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperrors.NewValidationError("name is required")
		}
		taken, err := repo.NameTaken(ctx, c.UserID, name, self)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("category %q: %w", name, apperrors.ErrConflict)
		}
		c.Name = name
	}
	if in.Color != nil {
		c.Color = strings.TrimSpace(*in.Color)
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.TreatAsIncome != nil {
		c.TreatAsIncome = *in.TreatAsIncome
	}
	if in.HideFromInsights != nil {
		c.HideFromInsights = *in.HideFromInsights
	}

	switch {
	case in.ClearParent:
		c.ParentCategoryID = nil
	case in.ParentCategoryID != nil:
		if err := checkParent(ctx, repo, c, *in.ParentCategoryID); err != nil {
			return err
		}
		parent := *in.ParentCategoryID
		c.ParentCategoryID = &parent
	}
	return nil
}

func checkParent(ctx context.Context, repo *repository.CategoryRepository, c *models.Category, parentID uuid.UUID) error {
	if c.ID != uuid.Nil && parentID == c.ID {
		return apperrors.NewValidationError("a category cannot be its own parent")
	}
	parent, err := repo.GetByID(ctx, c.UserID, parentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewValidationError("parentCategoryId does not reference one of your categories")
	}
	if err != nil {
		return err
	}
	if parent.ParentCategoryID != nil {
		return apperrors.NewValidationError("parent category must be a top-level category")
	}
	if c.ID != uuid.Nil {
		children, err := repo.CountChildren(ctx, c.UserID, c.ID)
		if err != nil {
			return err
		}
		if children > 0 {
			return apperrors.NewValidationError("a category with subcategories cannot have a parent")
		}
	}
	return nil
}

type DeleteResult struct {
	Transactions int64 `json:"transactions"`
	Merchants    int64 `json:"merchants"`
}

// Delete removes a category. Transactions and merchants referencing it are kept with the link cleared,
// and its subcategories become top-level.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) (*DeleteResult, error) {
	var res DeleteResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		categories := repository.NewCategoryRepository(tx)
		c, err := categories.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if res.Transactions, err = repository.NewTransactionRepository(tx).ClearCategory(ctx, userID, id); err != nil {
			return err
		}
		if res.Merchants, err = repository.NewMerchantRepository(tx).ClearRecommendedCategory(ctx, userID, id); err != nil {
			return err
		}
		if err := categories.Delete(ctx, userID, id); err != nil {
			return err
		}
		details := map[string]interface{}{"categoryId": id, "name": c.Name, "merchants": res.Merchants}
		return repository.NewReassignmentLogRepository(tx).Record(ctx, userID, nil, models.ActionDeleteCategory, res.Transactions, details)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("category_id", id.String()).
		Int64("transactions", res.Transactions).
		Int64("merchants", res.Merchants).
		Msg("category deleted")
	return &res, nil
}
