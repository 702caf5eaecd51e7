// import-prices appends market price snapshots from a JSON export.
//
// Usage: import-prices -db=<path> -file=<prices.json> [-dry-run]
//
// The file holds an array of objects:
//
//	[{"card_id": "base1-4", "date": "2024-06-15", "price_low": 90, "price_mid": "100.50", "price_high": null}]
//
// Price fields may be numbers, numeric strings or null. Non-numeric values
// are imported as 0. Rows without a card_id or with an unparseable date are
// skipped and reported. Existing snapshots are never modified.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-market/internal/database"
	"github.com/codyseavey/tcg-market/internal/logger"
	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
	"github.com/codyseavey/tcg-market/internal/valuation"
)

// priceRow is one entry of the import file
type priceRow struct {
	CardID    string          `json:"card_id"`
	Date      string          `json:"date"`
	PriceLow  json.RawMessage `json:"price_low"`
	PriceMid  json.RawMessage `json:"price_mid"`
	PriceHigh json.RawMessage `json:"price_high"`
}

// skippedRow records why a row was not imported
type skippedRow struct {
	Index  int
	CardID string
	Reason string
}

func main() {
	dbPath := flag.String("db", "", "Path to SQLite database, or a postgres URL with -driver=postgres (required)")
	driver := flag.String("driver", database.DriverSQLite, "Database driver: sqlite or postgres")
	file := flag.String("file", "", "Path to the JSON price export (required)")
	dryRun := flag.Bool("dry-run", false, "Parse and report without writing to the database")
	flag.Parse()

	if *dbPath == "" || *file == "" {
		fmt.Println("Usage: import-prices -db=<path> -file=<prices.json> [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Println("  # Preview what would be imported")
		fmt.Println("  import-prices -db=./tcg_market.db -file=./prices.json -dry-run")
		os.Exit(1)
	}

	zlog, err := logger.New("info", "local")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(context.Background(), zlog, *driver, *dbPath, *file, *dryRun); err != nil {
		zlog.Fatal("import failed", zap.Error(err))
	}
}

func run(ctx context.Context, zlog *zap.Logger, driver, dsn, path string, dryRun bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	snapshots, skipped, err := parseRows(f)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		zlog.Warn("skipping row", zap.Int("index", s.Index), zap.String("card_id", s.CardID), zap.String("reason", s.Reason))
	}
	zlog.Info("parsed price file",
		zap.String("file", path),
		zap.Int("snapshots", len(snapshots)),
		zap.Int("skipped", len(skipped)))

	if dryRun {
		zlog.Info("dry run, nothing written")
		return nil
	}

	db, err := database.Open(database.Options{Driver: driver, DSN: dsn}, zlog)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	written, err := repository.NewPriceRepository(db).AppendSnapshots(ctx, snapshots)
	if err != nil {
		return err
	}
	zlog.Info("import complete", zap.Int("written", written))
	return nil
}

// parseRows decodes the export and converts valid rows to snapshots
func parseRows(r io.Reader) ([]models.PriceSnapshot, []skippedRow, error) {
	var rows []priceRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, nil, fmt.Errorf("decode price file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("price file holds no rows")
	}

	snapshots := make([]models.PriceSnapshot, 0, len(rows))
	var skipped []skippedRow
	for i, row := range rows {
		cardID := strings.TrimSpace(row.CardID)
		if cardID == "" {
			skipped = append(skipped, skippedRow{Index: i, Reason: "missing card_id"})
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(row.Date))
		if err != nil {
			skipped = append(skipped, skippedRow{Index: i, CardID: cardID, Reason: fmt.Sprintf("invalid date %q", row.Date)})
			continue
		}

		snapshots = append(snapshots, models.PriceSnapshot{
			CardID:    cardID,
			Date:      date,
			PriceLow:  valuation.ParseJSONPrice(row.PriceLow),
			PriceMid:  valuation.ParseJSONPrice(row.PriceMid),
			PriceHigh: valuation.ParseJSONPrice(row.PriceHigh),
		})
	}
	return snapshots, skipped, nil
}
