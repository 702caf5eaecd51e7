package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/tcg-market/internal/models"
)

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Options{Driver: "mysql", DSN: "x"}, zap.NewNop())
	assert.Error(t, err)
}

func TestMigrationsBackfillHoldings(t *testing.T) {
	db, err := Open(Options{
		Driver:   DriverSQLite,
		DSN:      "file:TestMigrationsBackfillHoldings?mode=memory&cache=shared",
		LogLevel: logger.Silent,
	}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	for _, table := range []string{"editions", "cards", "user_cards", "market_prices", "collection_value_snapshots"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	require.NoError(t, db.Exec(
		`INSERT INTO user_cards (id, user_id, card_id, condition, for_sale, status) VALUES
			('h1', 'ash', 'A', '', false, ''),
			('h2', 'ash', 'B', 'LP', true, 'sold')`).Error)

	require.NoError(t, RunMigrations(db, zap.NewNop()))

	var h1, h2 models.Holding
	require.NoError(t, db.First(&h1, "id = ?", "h1").Error)
	require.NoError(t, db.First(&h2, "id = ?", "h2").Error)

	assert.Equal(t, models.HoldingOwned, h1.Status)
	assert.Equal(t, models.ConditionNearMint, h1.Condition)
	assert.Equal(t, models.HoldingSold, h2.Status)
	assert.Equal(t, models.ConditionLightPlay, h2.Condition)
	assert.False(t, h2.ForSale, "sold holdings are never for sale")

	// Running again is a no-op
	require.NoError(t, RunMigrations(db, zap.NewNop()))
}
