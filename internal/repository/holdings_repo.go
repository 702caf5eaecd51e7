package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-market/internal/models"
)

// HoldingsRepository reads and mutates the user_cards table
type HoldingsRepository interface {
	// FetchHoldings returns every owned (not sold) holding of a user
	FetchHoldings(ctx context.Context, userID string) ([]models.Holding, error)
	GetHolding(ctx context.Context, id string) (*models.Holding, error)
	CreateHolding(ctx context.Context, holding *models.Holding) error
	SetPrice(ctx context.Context, id string, price decimal.NullDecimal, forSale *bool) (*models.Holding, error)
	MarkSold(ctx context.Context, id string) (*models.Holding, error)
	// ListUserIDs returns every user with at least one owned holding
	ListUserIDs(ctx context.Context) ([]string, error)
}

type holdingsRepository struct {
	db *gorm.DB
}

func NewHoldingsRepository(db *gorm.DB) HoldingsRepository {
	return &holdingsRepository{db: db}
}

func (r *holdingsRepository) FetchHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	holdings := make([]models.Holding, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.HoldingOwned).
		Order("added_at ASC").
		Find(&holdings).Error
	if err != nil {
		return nil, fmt.Errorf("fetch holdings for user %s: %w", userID, err)
	}
	return holdings, nil
}

func (r *holdingsRepository) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	var holding models.Holding
	if err := r.db.WithContext(ctx).First(&holding, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get holding %s: %w", id, err)
	}
	return &holding, nil
}

func (r *holdingsRepository) CreateHolding(ctx context.Context, holding *models.Holding) error {
	if holding.ID == "" {
		holding.ID = uuid.New().String()
	}
	if holding.Status == "" {
		holding.Status = models.HoldingOwned
	}
	if holding.Condition == "" {
		holding.Condition = models.ConditionNearMint
	}
	if holding.AddedAt.IsZero() {
		holding.AddedAt = time.Now()
	}

	if err := r.db.WithContext(ctx).Create(holding).Error; err != nil {
		return fmt.Errorf("create holding: %w", err)
	}
	return nil
}

func (r *holdingsRepository) SetPrice(ctx context.Context, id string, price decimal.NullDecimal, forSale *bool) (*models.Holding, error) {
	holding, err := r.GetHolding(ctx, id)
	if err != nil {
		return nil, err
	}
	if holding.Status == models.HoldingSold {
		return nil, ErrAlreadySold
	}

	holding.Price = price
	if forSale != nil {
		holding.ForSale = *forSale
	}

	// Select forces the NULL write when the price is cleared
	err = r.db.WithContext(ctx).Model(holding).
		Select("price", "for_sale", "updated_at").
		Updates(holding).Error
	if err != nil {
		return nil, fmt.Errorf("set price on holding %s: %w", id, err)
	}
	return holding, nil
}

func (r *holdingsRepository) MarkSold(ctx context.Context, id string) (*models.Holding, error) {
	holding, err := r.GetHolding(ctx, id)
	if err != nil {
		return nil, err
	}
	if holding.Status == models.HoldingSold {
		return holding, ErrAlreadySold
	}

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Holding{}).
		Where("id = ? AND status = ?", id, models.HoldingOwned).
		Updates(map[string]any{
			"status":     models.HoldingSold,
			"for_sale":   false,
			"sold_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("mark holding %s sold: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost a race with a concurrent sale
		return holding, ErrAlreadySold
	}

	holding.Status = models.HoldingSold
	holding.ForSale = false
	holding.SoldAt = &now
	holding.UpdatedAt = now
	return holding, nil
}

func (r *holdingsRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).Model(&models.Holding{}).
		Where("status = ?", models.HoldingOwned).
		Distinct().
		Order("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return userIDs, nil
}
