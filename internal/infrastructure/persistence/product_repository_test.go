package persistence

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/railinspect/backend/internal/domain/asset"
	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func inspectionFor(date time.Time) asset.Inspection {
	return asset.Inspection{
		Condition: asset.ConditionPoor,
		Status:    asset.StatusRepairRequired,
		Type:      asset.TypeCorrectiveMaintenance,
		Inspector: "Rohit",
		Date:      date,
		Notes:     "Detector contacts pitted",
		Issues:    []string{"Electrical Fault"},
		Priority:  asset.PriorityHigh,
	}
}

func TestGormProductRepository_CreateAndFind(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormProductRepository(db.DB)
	ctx := context.Background()

	p := newTestProduct(t, "PROD001")
	require.NoError(t, repo.Create(ctx, p))

	found, err := repo.FindByCode(ctx, "PROD001")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, "Electric Point Machine", found.Name)
	assert.Equal(t, asset.ConditionGood, found.Condition)
	assert.Equal(t, 1, found.GetVersion())
	require.Len(t, found.Specifications, 2)
	assert.Equal(t, "operatingVoltage", found.Specifications[0].Key)

	require.Len(t, found.History, 2)
	assert.Equal(t, "Meera", found.History[0].Inspector)
	assert.Equal(t, 1, found.History[1].Sequence)
	assert.Equal(t, []string{"Wear and Tear"}, found.History[1].Issues)
	assert.True(t, found.History[1].Date.Equal(p.History[1].Date))

	exists, err := repo.ExistsByCode(ctx, "PROD001")
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGormProductRepository_FindByCode_NotFound(t *testing.T) {
	repo := NewGormProductRepository(newTestDatabase(t).DB)

	_, err := repo.FindByCode(context.Background(), "PROD999")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProductRepository_Create_Duplicate(t *testing.T) {
	repo := NewGormProductRepository(newTestDatabase(t).DB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD001")))
	err := repo.Create(ctx, newTestProduct(t, "PROD001"))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormProductRepository_FindAll(t *testing.T) {
	repo := NewGormProductRepository(newTestDatabase(t).DB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD002")))
	require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD001")))

	products, err := repo.FindAll(ctx, asset.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "PROD001", products[0].Code)
	assert.Len(t, products[1].History, 2)
}

func TestGormProductRepository_FindAllFiltered(t *testing.T) {
	repo := NewGormProductRepository(newTestDatabase(t).DB)
	ctx := context.Background()

	relay := newTestProduct(t, "PROD002")
	relay.Category = "Track Circuits"
	relay.Condition = asset.ConditionFair
	relay.NextMaintenance = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD001")))
	require.NoError(t, repo.Create(ctx, relay))
	require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD003")))

	codes := func(products []asset.Product) []string {
		out := make([]string, len(products))
		for i := range products {
			out[i] = products[i].Code
		}
		return out
	}

	tests := []struct {
		name   string
		filter asset.ProductFilter
		want   []string
	}{
		{"category is case-insensitive", asset.ProductFilter{Category: "signalling"}, []string{"PROD001", "PROD003"}},
		{"condition", asset.ProductFilter{Condition: asset.ConditionFair}, []string{"PROD002"}},
		{"status", asset.ProductFilter{Status: asset.StatusOperational}, []string{"PROD001", "PROD002", "PROD003"}},
		{"descending identifier", asset.ProductFilter{SortBy: "product_id", SortOrder: "desc"}, []string{"PROD003", "PROD002", "PROD001"}},
		{"by next maintenance then identifier", asset.ProductFilter{SortBy: "next_maintenance"}, []string{"PROD002", "PROD001", "PROD003"}},
		{"unknown sort field", asset.ProductFilter{SortBy: "1; DROP TABLE products"}, []string{"PROD001", "PROD002", "PROD003"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.FindAll(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes(products))
		})
	}
}

func TestGormProductRepository_Update(t *testing.T) {
	t.Run("appends entry and mirrors condition", func(t *testing.T) {
		repo := NewGormProductRepository(newTestDatabase(t).DB)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD001")))

		p, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)
		date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, p.RecordInspection(inspectionFor(date)))
		require.NoError(t, repo.Update(ctx, p))

		reloaded, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)
		assert.Equal(t, asset.ConditionPoor, reloaded.Condition)
		assert.Equal(t, asset.StatusRepairRequired, reloaded.Status)
		assert.True(t, reloaded.LastMaintenance.Equal(date))
		assert.Equal(t, 2, reloaded.GetVersion())
		require.Len(t, reloaded.History, 3)
		assert.Equal(t, "Meera", reloaded.History[0].Inspector)
		assert.Equal(t, asset.TypeCorrectiveMaintenance, reloaded.History[2].Type)
		assert.Equal(t, asset.PriorityHigh, reloaded.History[2].Priority)
	})

	t.Run("stale copy is rejected", func(t *testing.T) {
		repo := NewGormProductRepository(newTestDatabase(t).DB)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD001")))

		first, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)
		second, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)

		date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		firstInspection := inspectionFor(date)
		firstInspection.Notes = "first"
		require.NoError(t, first.RecordInspection(firstInspection))
		require.NoError(t, repo.Update(ctx, first))

		secondInspection := inspectionFor(date.AddDate(0, 0, 1))
		secondInspection.Condition = asset.ConditionExcellent
		secondInspection.Status = asset.StatusOperational
		secondInspection.Notes = "second"
		require.NoError(t, second.RecordInspection(secondInspection))
		assert.ErrorIs(t, repo.Update(ctx, second), shared.ErrConcurrencyConflict)

		reloaded, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)
		require.Len(t, reloaded.History, 3)
		latest, _ := reloaded.LatestEntry()
		assert.Equal(t, "first", latest.Notes)
		assert.Equal(t, asset.ConditionPoor, reloaded.Condition)
		assert.Equal(t, asset.StatusRepairRequired, reloaded.Status)
		assert.True(t, reloaded.LastMaintenance.Equal(date))
		assert.Equal(t, 2, reloaded.GetVersion())

		// the reloaded product can record the second inspection
		require.NoError(t, reloaded.RecordInspection(secondInspection))
		require.NoError(t, repo.Update(ctx, reloaded))

		final, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)
		require.Len(t, final.History, 4)
		latest, _ = final.LatestEntry()
		assert.Equal(t, "second", latest.Notes)
		assert.Equal(t, asset.ConditionExcellent, final.Condition)
		assert.Equal(t, 3, final.GetVersion())
	})

	t.Run("saved product can be updated again", func(t *testing.T) {
		repo := NewGormProductRepository(newTestDatabase(t).DB)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD001")))

		p, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)
		date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, p.RecordInspection(inspectionFor(date)))
		require.NoError(t, repo.Update(ctx, p))
		assert.Equal(t, 3, p.PersistedEntries())
		assert.Equal(t, 2, p.PersistedVersion())

		require.NoError(t, p.RecordInspection(inspectionFor(date.AddDate(0, 0, 1))))
		require.NoError(t, repo.Update(ctx, p))

		reloaded, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)
		assert.Len(t, reloaded.History, 4)
		assert.Equal(t, 3, reloaded.GetVersion())
	})

	t.Run("unsaved product is a conflict", func(t *testing.T) {
		repo := NewGormProductRepository(newTestDatabase(t).DB)
		ctx := context.Background()
		p := newTestProduct(t, "PROD001")
		require.NoError(t, repo.Create(ctx, p))

		other := newTestProduct(t, "PROD001")
		other.ID = p.ID
		assert.ErrorIs(t, repo.Update(ctx, other), shared.ErrConcurrencyConflict)
	})

	t.Run("concurrent updates never lose the mirror invariant", func(t *testing.T) {
		repo := NewGormProductRepository(newTestDatabase(t).DB)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newTestProduct(t, "PROD001")))

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(day int) {
				defer wg.Done()
				p, err := repo.FindByCode(ctx, "PROD001")
				if err != nil {
					return
				}
				_ = p.RecordInspection(inspectionFor(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)))
				_ = repo.Update(ctx, p)
			}(i + 1)
		}
		wg.Wait()

		reloaded, err := repo.FindByCode(ctx, "PROD001")
		require.NoError(t, err)
		latest, ok := reloaded.LatestEntry()
		require.True(t, ok)
		assert.Equal(t, len(reloaded.History)-2+1, reloaded.GetVersion())
		assert.True(t, reloaded.LastMaintenance.Equal(latest.Date))
	})
}

func newMockProductRepository(t *testing.T) (*GormProductRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewGormProductRepository(gormDB), mock, mockDB
}

func TestGormProductRepository_DriverErrors(t *testing.T) {
	t.Run("find propagates driver error", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "products"`).
			WillReturnError(sql.ErrConnDone)

		_, err := repo.FindByCode(context.Background(), "PROD001")
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count reads driver result", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
