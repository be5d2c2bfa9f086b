package encoder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/liliang-cn/semrouter/internal/logging"
	"github.com/liliang-cn/semrouter/pkg/vector"
)

// Errors returned by SQLiteCache.
var (
	// ErrCacheClosed is returned when using a closed cache
	ErrCacheClosed = errors.New("cache is closed")

	// ErrCacheNotInitialized is returned when Init has not been called
	ErrCacheNotInitialized = errors.New("cache not initialized")
)

// Encoder is the contract shared with semanticrouter.Encoder.
type Encoder interface {
	Encode(ctx context.Context, inputs []string) ([]vector.Vector, error)
}

// SQLiteCacheConfig configures a SQLiteCache.
type SQLiteCacheConfig struct {
	// Path is the database file; ":memory:" keeps the cache in process
	Path string

	// Namespace separates vectors of different models in one database.
	// It must change whenever the wrapped encoder's output would.
	Namespace string

	Logger logging.Logger
}

// CacheStats describes the contents of a SQLiteCache.
type CacheStats struct {
	Namespace string `json:"namespace"`
	Entries   int64  `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
}

// SQLiteCache wraps an encoder and persists its output in SQLite.
//
// Cached texts are served from the database; the remaining texts of a call
// are encoded in a single call to the wrapped encoder and stored in a single
// transaction. SQLiteCache is safe for concurrent use.
type SQLiteCache struct {
	encoder Encoder
	config  SQLiteCacheConfig
	logger  logging.Logger

	mu     sync.RWMutex
	db     *sql.DB
	closed bool

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewSQLiteCache creates a cache around encoder. Call Init before use.
func NewSQLiteCache(encoder Encoder, config SQLiteCacheConfig) (*SQLiteCache, error) {
	if encoder == nil {
		return nil, fmt.Errorf("sqlite cache: encoder cannot be nil")
	}
	if config.Path == "" {
		return nil, fmt.Errorf("sqlite cache: database path cannot be empty")
	}
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}

	return &SQLiteCache{
		encoder: encoder,
		config:  config,
		logger:  config.Logger.With("component", "sqlite-cache", "namespace", config.Namespace),
	}, nil
}

// Init opens the database and creates the cache table.
func (c *SQLiteCache) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("sqlite cache: init: %w", ErrCacheClosed)
	}
	if c.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", c.config.Path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("sqlite cache: init: failed to open database: %w", err)
	}

	if c.config.Path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if _, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS embedding_cache (
		namespace TEXT NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, text)
	);
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite cache: init: failed to create tables: %w", err)
	}

	c.db = db
	return nil
}

// handle returns the open database or the reason it is unusable.
func (c *SQLiteCache) handle() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrCacheClosed
	}
	if c.db == nil {
		return nil, ErrCacheNotInitialized
	}
	return c.db, nil
}

// Encode implements semanticrouter.Encoder.
func (c *SQLiteCache) Encode(ctx context.Context, inputs []string) ([]vector.Vector, error) {
	db, err := c.handle()
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: encode: %w", err)
	}

	out := make([]vector.Vector, len(inputs))
	found, err := c.lookup(ctx, db, inputs)
	if err != nil {
		return nil, err
	}

	pending := make(map[string][]int)
	var missing []string
	for i, text := range inputs {
		if v, ok := found[text]; ok {
			out[i] = v
			c.hits.Add(1)
			continue
		}
		if _, seen := pending[text]; !seen {
			missing = append(missing, text)
		}
		pending[text] = append(pending[text], i)
	}

	if len(missing) == 0 {
		return out, nil
	}
	c.misses.Add(uint64(len(missing)))

	encoded, err := c.encoder.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(encoded) != len(missing) {
		return nil, fmt.Errorf("sqlite cache: got %d vectors for %d inputs", len(encoded), len(missing))
	}

	for i, text := range missing {
		for _, pos := range pending[text] {
			out[pos] = encoded[i]
		}
	}

	if err := c.store(ctx, db, missing, encoded); err != nil {
		// the vectors are still good; only persistence failed
		c.logger.Warn("failed to persist embeddings", "count", len(missing), "error", err)
	}

	return out, nil
}

func (c *SQLiteCache) lookup(ctx context.Context, db *sql.DB, texts []string) (map[string]vector.Vector, error) {
	stmt, err := db.PrepareContext(ctx, "SELECT vector FROM embedding_cache WHERE namespace = ? AND text = ?")
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: failed to prepare lookup: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	found := make(map[string]vector.Vector, len(texts))
	for _, text := range texts {
		if _, ok := found[text]; ok {
			continue
		}

		var blob []byte
		err := stmt.QueryRowContext(ctx, c.config.Namespace, text).Scan(&blob)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite cache: failed to read cached vector: %w", err)
		}

		var v vector.Vector
		if err := v.UnmarshalBinary(blob); err != nil {
			c.logger.Warn("discarding corrupt cached vector", "error", err)
			continue
		}
		found[text] = v
	}
	return found, nil
}

func (c *SQLiteCache) store(ctx context.Context, db *sql.DB, texts []string, vectors []vector.Vector) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO embedding_cache (namespace, text, vector, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, text := range texts {
		blob, err := vectors[i].MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode vector %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, c.config.Namespace, text, blob); err != nil {
			return fmt.Errorf("failed to insert vector %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stats returns the number of cached vectors in the namespace and the hit
// and miss counters of this process.
func (c *SQLiteCache) Stats(ctx context.Context) (CacheStats, error) {
	db, err := c.handle()
	if err != nil {
		return CacheStats{}, fmt.Errorf("sqlite cache: stats: %w", err)
	}

	stats := CacheStats{
		Namespace: c.config.Namespace,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
	}
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embedding_cache WHERE namespace = ?", c.config.Namespace).Scan(&stats.Entries)
	if err != nil {
		return CacheStats{}, fmt.Errorf("sqlite cache: stats: %w", err)
	}
	return stats, nil
}

// Purge deletes every cached vector in the namespace.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	db, err := c.handle()
	if err != nil {
		return 0, fmt.Errorf("sqlite cache: purge: %w", err)
	}

	res, err := db.ExecContext(ctx, "DELETE FROM embedding_cache WHERE namespace = ?", c.config.Namespace)
	if err != nil {
		return 0, fmt.Errorf("sqlite cache: purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
