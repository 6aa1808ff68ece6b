// Package cache persists resolved menus keyed by (url, calendar date).
// Validity is bound to the exact date string, not elapsed time: a menu
// cached for 2025-11-24 is never served on 2025-11-25.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/menuscan/menuscan/internal/model"
)

// ErrNotInitialized is returned by any cache call before Open or after Close.
var ErrNotInitialized = errors.New("cache: not initialized")

const migration = `
CREATE TABLE IF NOT EXISTS menu_cache (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	date       TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE(url, date)
);

CREATE INDEX IF NOT EXISTS idx_menu_cache_date ON menu_cache(date);
`

// Cache is a date-scoped menu store backed by modernc.org/sqlite. It owns
// its rows exclusively; callers only go through Get/Put. Lifecycle is
// uninitialized → open → closed; Close returns it to the uninitialized-
// equivalent state.
type Cache struct {
	dsn string

	mu   sync.RWMutex
	db   *sql.DB
	stop chan struct{}
	done chan struct{}
}

// New creates an unopened Cache for the sqlite database at dsn.
func New(dsn string) *Cache {
	return &Cache{dsn: dsn}
}

// Open opens the store, ensures the (url, date)-unique table exists, runs an
// initial invalidation sweep, and schedules the midnight sweeper.
func (c *Cache) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", c.dsn)
	if err != nil {
		return eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	if _, err := db.ExecContext(ctx, migration); err != nil {
		db.Close()
		return eris.Wrap(err, "cache: migrate")
	}

	c.db = db
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	if n, err := c.invalidateOld(ctx, db); err != nil {
		zap.L().Warn("cache: initial sweep failed", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("cache: initial sweep", zap.Int("removed", n))
	}

	go c.sweepAtMidnight(c.stop, c.done)

	return nil
}

// Close stops the sweeper and releases the database. Subsequent calls fail
// with ErrNotInitialized until Open is called again.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.db == nil {
		c.mu.Unlock()
		return nil
	}
	db, stop, done := c.db, c.stop, c.done
	c.db, c.stop, c.done = nil, nil, nil
	c.mu.Unlock()

	close(stop)
	<-done

	return eris.Wrap(db.Close(), "cache: close")
}

func (c *Cache) handle() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrNotInitialized
	}
	return c.db, nil
}

// Get looks up the menu for an exact (url, date) pair. A miss returns
// (nil, nil) — there is no cross-date fallback. A payload that no longer
// deserializes is deleted as a side effect and reported as a miss:
// corrupted rows are stale data decay, not a live fault, so they are
// self-healed rather than surfaced.
func (c *Cache) Get(ctx context.Context, url, date string) (*model.RestaurantMenu, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}

	var data string
	row := db.QueryRowContext(ctx,
		`SELECT data FROM menu_cache WHERE url = ? AND date = ?`,
		url, date,
	)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "cache: get")
	}

	var menu model.RestaurantMenu
	if err := json.Unmarshal([]byte(data), &menu); err != nil {
		zap.L().Warn("cache: corrupted entry, deleting",
			zap.String("url", url),
			zap.String("date", date),
			zap.Error(err),
		)
		if _, delErr := db.ExecContext(ctx,
			`DELETE FROM menu_cache WHERE url = ? AND date = ?`, url, date,
		); delErr != nil {
			zap.L().Warn("cache: delete corrupted entry failed", zap.Error(delErr))
		}
		return nil, nil
	}
	return &menu, nil
}

// Put upserts the menu for (url, date), replacing any existing entry for
// the exact key. The creation timestamp is local time.
func (c *Cache) Put(ctx context.Context, url, date string, menu *model.RestaurantMenu) error {
	db, err := c.handle()
	if err != nil {
		return err
	}

	data, err := json.Marshal(menu)
	if err != nil {
		return eris.Wrap(err, "cache: marshal menu")
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO menu_cache (id, url, date, data, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url, date) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		uuid.New().String(), url, date, string(data), time.Now(),
	)
	return eris.Wrap(err, "cache: put")
}

// InvalidateOld deletes every entry dated strictly before today's local
// calendar date. Lexicographic comparison is correct for YYYY-MM-DD.
func (c *Cache) InvalidateOld(ctx context.Context) (int, error) {
	db, err := c.handle()
	if err != nil {
		return 0, err
	}
	return c.invalidateOld(ctx, db)
}

func (c *Cache) invalidateOld(ctx context.Context, db *sql.DB) (int, error) {
	today := time.Now().Format(model.DateLayout)
	res, err := db.ExecContext(ctx,
		`DELETE FROM menu_cache WHERE date < ?`, today,
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: invalidate old records")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "cache: rows affected")
}

// sweepAtMidnight runs the invalidation pass at every local midnight until
// stopped. It holds no lock beyond the DELETE itself, so concurrent reads
// and writes are unaffected.
func (c *Cache) sweepAtMidnight(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		db, err := c.handle()
		if err != nil {
			return
		}
		if n, err := c.invalidateOld(context.Background(), db); err != nil {
			zap.L().Warn("cache: midnight sweep failed", zap.Error(err))
		} else {
			zap.L().Info("cache: midnight sweep", zap.Int("removed", n))
		}
	}
}
