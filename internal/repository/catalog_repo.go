package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-market/internal/models"
)

// CatalogRepository reads and seeds the cards and editions tables
type CatalogRepository interface {
	FetchCards(ctx context.Context, ids []string) ([]models.Card, error)
	FetchEditions(ctx context.Context, ids []string) ([]models.Edition, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	// SearchCards matches card names case-insensitively, ordered by name
	SearchCards(ctx context.Context, query string, limit int) ([]models.Card, error)
	UpsertEditions(ctx context.Context, editions []models.Edition) error
	UpsertCards(ctx context.Context, cards []models.Card) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) FetchCards(ctx context.Context, ids []string) ([]models.Card, error) {
	cards := make([]models.Card, 0)
	if len(ids) == 0 {
		return cards, nil
	}

	unique := uniqueStrings(ids)
	for start := 0; start < len(unique); start += maxIDsPerQuery {
		end := min(start+maxIDsPerQuery, len(unique))
		var batch []models.Card
		if err := r.db.WithContext(ctx).Where("id IN ?", unique[start:end]).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("fetch cards: %w", err)
		}
		cards = append(cards, batch...)
	}
	return cards, nil
}

func (r *catalogRepository) FetchEditions(ctx context.Context, ids []string) ([]models.Edition, error) {
	editions := make([]models.Edition, 0)
	if len(ids) == 0 {
		return editions, nil
	}

	unique := uniqueStrings(ids)
	for start := 0; start < len(unique); start += maxIDsPerQuery {
		end := min(start+maxIDsPerQuery, len(unique))
		var batch []models.Edition
		if err := r.db.WithContext(ctx).Where("id IN ?", unique[start:end]).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("fetch editions: %w", err)
		}
		editions = append(editions, batch...)
	}
	return editions, nil
}

func (r *catalogRepository) GetCard(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	if err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get card %s: %w", id, err)
	}
	return &card, nil
}

func (r *catalogRepository) SearchCards(ctx context.Context, query string, limit int) ([]models.Card, error) {
	cards := make([]models.Card, 0)
	query = strings.TrimSpace(query)
	if query == "" {
		return cards, nil
	}

	pattern := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", pattern).
		Order("name ASC, id ASC").
		Limit(limit).
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	return cards, nil
}

func (r *catalogRepository) UpsertEditions(ctx context.Context, editions []models.Edition) error {
	if len(editions) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "series", "release_date", "total", "updated_at"}),
	}).CreateInBatches(&editions, 200).Error
	if err != nil {
		return fmt.Errorf("upsert editions: %w", err)
	}
	return nil
}

func (r *catalogRepository) UpsertCards(ctx context.Context, cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "edition_id", "number", "rarity", "image_url", "image_url_large", "updated_at"}),
	}).CreateInBatches(&cards, 200).Error
	if err != nil {
		return fmt.Errorf("upsert cards: %w", err)
	}
	return nil
}
