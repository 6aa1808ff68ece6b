package cache

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuscan/menuscan/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, c.Open(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleMenu(name string) *model.RestaurantMenu {
	price := 145.0
	return &model.RestaurantMenu{
		RestaurantName: name,
		Date:           time.Now().Format(model.DateLayout),
		DayOfWeek:      "pondělí",
		MenuItems: []model.MenuItem{
			{Name: "Svíčková na smetaně", Price: &price, Category: model.CategoryMain},
		},
		DailyMenu: true,
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	today := time.Now().Format(model.DateLayout)

	require.NoError(t, c.Put(ctx, "https://example.com/menu", today, sampleMenu("U Lípy")))

	got, err := c.Get(ctx, "https://example.com/menu", today)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "U Lípy", got.RestaurantName)
	require.Len(t, got.MenuItems, 1)
	require.NotNil(t, got.MenuItems[0].Price)
	assert.Equal(t, 145.0, *got.MenuItems[0].Price)
	assert.True(t, got.DailyMenu)
	assert.Nil(t, got.RecommendedMeal)
}

func TestGet_MissReturnsNilNil(t *testing.T) {
	c := openTestCache(t)

	got, err := c.Get(context.Background(), "https://nowhere.example", "2099-01-01")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGet_DateScoped(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	d1 := time.Now().Format(model.DateLayout)
	d2 := time.Now().AddDate(0, 0, 1).Format(model.DateLayout)

	require.NoError(t, c.Put(ctx, "https://example.com", d1, sampleMenu("Day One")))

	// Same URL, different date: must be a miss, never a cross-date hit.
	got, err := c.Get(ctx, "https://example.com", d2)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, "https://example.com", d1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Day One", got.RestaurantName)
}

func TestPut_UpsertsSameKey(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	today := time.Now().Format(model.DateLayout)

	require.NoError(t, c.Put(ctx, "https://example.com", today, sampleMenu("First")))
	require.NoError(t, c.Put(ctx, "https://example.com", today, sampleMenu("Second")))

	got, err := c.Get(ctx, "https://example.com", today)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Second", got.RestaurantName)

	db, err := sql.Open("sqlite", c.dsn)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM menu_cache`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGet_CorruptedEntrySelfHeals(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	today := time.Now().Format(model.DateLayout)

	db, err := c.handle()
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO menu_cache (id, url, date, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		"broken", "https://example.com", today, "{not json", time.Now(),
	)
	require.NoError(t, err)

	got, err := c.Get(ctx, "https://example.com", today)
	require.NoError(t, err)
	assert.Nil(t, got)

	// The corrupted row must be gone.
	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM menu_cache WHERE url = ?`, "https://example.com",
	).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestInvalidateOld(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	today := time.Now().Format(model.DateLayout)
	yesterday := time.Now().AddDate(0, 0, -1).Format(model.DateLayout)
	tomorrow := time.Now().AddDate(0, 0, 1).Format(model.DateLayout)

	require.NoError(t, c.Put(ctx, "https://a.example", yesterday, sampleMenu("Old")))
	require.NoError(t, c.Put(ctx, "https://b.example", today, sampleMenu("Today")))
	require.NoError(t, c.Put(ctx, "https://c.example", tomorrow, sampleMenu("Tomorrow")))

	removed, err := c.InvalidateOld(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := c.Get(ctx, "https://a.example", yesterday)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, "https://b.example", today)
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = c.Get(ctx, "https://c.example", tomorrow)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestOpenSweepsStaleEntries(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	yesterday := time.Now().AddDate(0, 0, -1).Format(model.DateLayout)

	c := New(dsn)
	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Put(ctx, "https://example.com", yesterday, sampleMenu("Stale")))
	require.NoError(t, c.Close())

	// Reopening runs the initial invalidation pass.
	c = New(dsn)
	require.NoError(t, c.Open(ctx))
	defer c.Close()

	got, err := c.Get(ctx, "https://example.com", yesterday)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLifecycle_NotInitialized(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()

	_, err := c.Get(ctx, "https://example.com", "2025-11-24")
	assert.ErrorIs(t, err, ErrNotInitialized)

	err = c.Put(ctx, "https://example.com", "2025-11-24", sampleMenu("X"))
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Close())

	_, err = c.Get(ctx, "https://example.com", "2025-11-24")
	assert.ErrorIs(t, err, ErrNotInitialized)

	// Close on a closed cache is a no-op.
	require.NoError(t, c.Close())
}
