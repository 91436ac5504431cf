package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

// newTestDatabase opens a migrated in-memory sqlite database
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestProduct(t *testing.T, code string) *asset.Product {
	t.Helper()
	p, err := asset.NewProduct(code, "Electric Point Machine")
	require.NoError(t, err)
	p.Category = "Signalling"
	p.Condition = asset.ConditionGood
	p.Status = asset.StatusOperational
	p.LastMaintenance = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	p.NextMaintenance = time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	p.SetSpecifications(map[string]string{"operatingVoltage": "110V DC", "throwTime": "4.5s"})
	p.AppendHistory(
		asset.MaintenanceEntry{
			Date:      time.Date(2023, 7, 10, 0, 0, 0, 0, time.UTC),
			Type:      asset.TypeInspection,
			Inspector: "Meera",
			Notes:     "Routine check",
		},
		asset.MaintenanceEntry{
			Date:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Type:      asset.TypePreventiveMaintenance,
			Inspector: "Anil",
			Notes:     "Lubricated slide chairs",
			Issues:    []string{"Wear and Tear"},
		},
	)
	return p
}
