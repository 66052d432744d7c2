package testhelpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"klunkaz/pkg/db"
	"klunkaz/pkg/registry"
)

var uniqueCounter int64

func nextSuffix() int64 {
	return atomic.AddInt64(&uniqueCounter, 1)
}

// SchemaPath locates pkg/db/schema.sql regardless of the test's working directory.
func SchemaPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "db", "schema.sql")
}

// TestPool connects to DATABASE_URL_FOR_TEST, applies the schema and empties
// the registry tables. The test is skipped when the variable is unset.
func TestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL_FOR_TEST")
	if dsn == "" {
		t.Skip("DATABASE_URL_FOR_TEST not set; skipping database tests")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, db.Config{URL: dsn, ApplySchema: true, SchemaPath: SchemaPath()})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE TABLE transactions, reviews, bikes")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "UPDATE registry_counters SET next_bike_id = 1, next_review_id = 1, next_seq = 1")
	require.NoError(t, err)
	return pool
}

// BikeInput returns a valid listing for a sale bike with a unique title.
func BikeInput(price int64) registry.ListInput {
	suffix := nextSuffix()
	return registry.ListInput{
		Price: price,
		Details: registry.Details{
			Brand: "Trek",
			Title: fmt.Sprintf("test-bike-%d", suffix),
			Size:  "M",
			Color: "Red",
			Frame: "Aluminum",
			Fork:  "RockShox",
			Shock: "Fox",
		},
		Metadata: registry.Metadata{
			Category: "Mountain",
			Images:   "ipfs://bike",
			Address:  "Berlin",
			Features: "Hydraulic brakes",
		},
	}
}

// RentalInput returns a valid listing for a bike offered for rent.
func RentalInput(dailyRate, minDays int64) registry.ListInput {
	in := BikeInput(0)
	in.Listing = registry.ListingInput{Mode: registry.ModeRent, DailyRate: dailyRate, MinRentalDays: minDays}
	return in
}

// ListTestBike lists a sale bike for owner and returns its ID.
func ListTestBike(t *testing.T, r *registry.Registry, owner registry.Identity, price int64) registry.BikeID {
	t.Helper()

	id, err := r.List(context.Background(), owner, BikeInput(price))
	require.NoError(t, err)
	return id
}
