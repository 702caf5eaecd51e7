package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-market/internal/metrics"
	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
)

const maxSearchResults = 50

// releaseDateLayouts are tried in order when parsing set release dates
var releaseDateLayouts = []string{"2006/01/02", "2006-01-02"}

type localSet struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      string `json:"series"`
	ReleaseDate string `json:"releaseDate"`
	Total       int    `json:"total"`
}

type localCard struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Number string          `json:"number"`
	Rarity string          `json:"rarity"`
	Images localCardImages `json:"images"`
}

type localCardImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// CatalogService seeds the card catalog from a local pokemon-tcg-data
// checkout (sets/en.json and cards/en/<set>.json).
type CatalogService struct {
	catalog repository.CatalogRepository
	log     *zap.Logger
}

func NewCatalogService(catalog repository.CatalogRepository, log *zap.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, log: log}
}

// LoadFromDir upserts every edition and card found under dataDir and returns
// the counts loaded. Unreadable card files are logged and skipped.
func (s *CatalogService) LoadFromDir(ctx context.Context, dataDir string) (editions, cards int, err error) {
	root := resolveDataRoot(dataDir)

	setsData, err := os.ReadFile(filepath.Join(root, "sets", "en.json"))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read sets file: %w", err)
	}
	var sets []localSet
	if err := json.Unmarshal(setsData, &sets); err != nil {
		return 0, 0, fmt.Errorf("failed to parse sets: %w", err)
	}

	known := make(map[string]struct{}, len(sets))
	editionRows := make([]models.Edition, 0, len(sets))
	for _, set := range sets {
		known[set.ID] = struct{}{}
		editionRows = append(editionRows, models.Edition{
			ID:          set.ID,
			Name:        set.Name,
			Series:      set.Series,
			ReleaseDate: parseReleaseDate(set.ReleaseDate),
			Total:       set.Total,
		})
	}
	if err := s.catalog.UpsertEditions(ctx, editionRows); err != nil {
		return 0, 0, err
	}

	cardsDir := filepath.Join(root, "cards", "en")
	files, err := os.ReadDir(cardsDir)
	if err != nil {
		return len(editionRows), 0, fmt.Errorf("failed to read cards directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return len(editionRows), cards, err
		}

		setID := strings.TrimSuffix(file.Name(), ".json")
		if _, ok := known[setID]; !ok {
			s.log.Warn("card file has no matching set", zap.String("set_id", setID))
			continue
		}

		cardFile := filepath.Join(cardsDir, file.Name())
		rows, err := readCardFile(cardFile, setID)
		if err != nil {
			s.log.Warn("skipping card file", zap.String("file", cardFile), zap.Error(err))
			continue
		}
		if err := s.catalog.UpsertCards(ctx, rows); err != nil {
			return len(editionRows), cards, err
		}
		cards += len(rows)
	}

	metrics.CatalogEditions.Set(float64(len(editionRows)))
	metrics.CatalogCards.Set(float64(cards))
	s.log.Info("catalog loaded",
		zap.String("dir", root),
		zap.Int("editions", len(editionRows)),
		zap.Int("cards", cards))

	return len(editionRows), cards, nil
}

// GetCard returns a catalog card by ID
func (s *CatalogService) GetCard(ctx context.Context, id string) (*models.Card, error) {
	return s.catalog.GetCard(ctx, id)
}

// SearchCards finds cards whose name contains query. limit is clamped to
// [1, maxSearchResults].
func (s *CatalogService) SearchCards(ctx context.Context, query string, limit int) ([]models.Card, error) {
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}
	return s.catalog.SearchCards(ctx, query, limit)
}

func readCardFile(path, setID string) ([]models.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var local []localCard
	if err := json.Unmarshal(data, &local); err != nil {
		return nil, err
	}

	rows := make([]models.Card, 0, len(local))
	for _, lc := range local {
		if lc.ID == "" {
			continue
		}
		rows = append(rows, models.Card{
			ID:            lc.ID,
			Name:          lc.Name,
			EditionID:     setID,
			Number:        lc.Number,
			Rarity:        lc.Rarity,
			ImageURL:      lc.Images.Small,
			ImageURLLarge: lc.Images.Large,
		})
	}
	return rows, nil
}

// resolveDataRoot accepts either the data root itself or a directory holding
// an extracted pokemon-tcg-data-master archive.
func resolveDataRoot(dataDir string) string {
	nested := filepath.Join(dataDir, "pokemon-tcg-data-master")
	if info, err := os.Stat(nested); err == nil && info.IsDir() {
		return nested
	}
	return dataDir
}

// parseReleaseDate returns nil for empty or unparseable dates
func parseReleaseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
