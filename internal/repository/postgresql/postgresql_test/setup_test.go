package postgresql_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// newTestDB connects to TEST_DATABASE_URL, applies the schema once per run and
// empties every table. Tests are skipped when the variable is not set.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	db, err := database.NewPostgreSQLDB(dsn)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(db.Close)

	ctx := context.Background()
	migrateOnce.Do(func() {
		var schema []byte
		schema, migrateErr = os.ReadFile(migrationPath())
		if migrateErr != nil {
			return
		}
		_, migrateErr = db.Exec(ctx, string(schema))
	})
	require.NoError(t, migrateErr, "failed to apply migrations")

	_, err = db.Exec(ctx, `TRUNCATE TABLE loyalty_transactions, customers, shift_sessions,
		remote_approvals, tasks, employees, shops CASCADE`)
	require.NoError(t, err, "failed to truncate tables")

	return db
}

func migrationPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations", "001_init.sql")
}

func createTestShop(t *testing.T, db *database.DB, rewardPointsNeeded int) string {
	t.Helper()
	var id string
	err := db.QueryRow(context.Background(), `
		INSERT INTO shops (name, latitude, longitude, geofence_radius_m, timezone, reward_points_needed, reward_description)
		VALUES ('Corner Cafe', 51.5007, -0.1246, 100, 'Europe/London', $1, 'Free coffee')
		RETURNING id
	`, rewardPointsNeeded).Scan(&id)
	require.NoError(t, err)
	return id
}

func createTestEmployee(t *testing.T, db *database.DB, shopID, name, pin string, pinSetAt time.Time) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)

	var id string
	err = db.QueryRow(context.Background(), `
		INSERT INTO employees (shop_id, display_name, pin_hash, pin_set_at, pin_expires_at, pin_change_required)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id
	`, shopID, name, string(hash), pinSetAt, pinSetAt.Add(30*24*time.Hour)).Scan(&id)
	require.NoError(t, err)
	return id
}

func createTestTask(t *testing.T, db *database.DB, shopID, name string, sortOrder int, assignedTo *string) string {
	t.Helper()
	var id string
	err := db.QueryRow(context.Background(), `
		INSERT INTO tasks (shop_id, name, assigned_to, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, shopID, name, assignedTo, sortOrder).Scan(&id)
	require.NoError(t, err)
	return id
}

// testClock is a settable clock shared by the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
