package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunMigrations runs custom data migrations after schema changes.
// Every step is safe to run multiple times.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if err := migrateHoldingStatus(db, log); err != nil {
		return err
	}
	if err := migrateHoldingCondition(db, log); err != nil {
		return err
	}
	return nil
}

// migrateHoldingStatus backfills rows written before the status column existed
func migrateHoldingStatus(db *gorm.DB, log *zap.Logger) error {
	if !db.Migrator().HasColumn("user_cards", "status") {
		return nil
	}

	result := db.Exec(`UPDATE user_cards SET status = 'owned' WHERE status IS NULL OR status = ''`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("backfilled holding status", zap.Int64("rows", result.RowsAffected))
	}

	// A sold holding is never listed for sale
	result = db.Exec(`UPDATE user_cards SET for_sale = ? WHERE status = 'sold' AND for_sale = ?`, false, true)
	if result.Error != nil {
		log.Warn("failed to clear for_sale on sold holdings", zap.Error(result.Error))
	}
	return nil
}

// migrateHoldingCondition normalizes empty conditions to Near Mint
func migrateHoldingCondition(db *gorm.DB, log *zap.Logger) error {
	if !db.Migrator().HasColumn("user_cards", "condition") {
		return nil
	}

	result := db.Exec(`UPDATE user_cards SET condition = 'NM' WHERE condition IS NULL OR condition = ''`)
	if result.Error != nil {
		log.Warn("failed to normalize holding conditions", zap.Error(result.Error))
	}
	return nil
}
