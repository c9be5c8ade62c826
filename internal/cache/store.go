package cache

import (
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Per-operation TTLs. Read results go stale at different rates: schemas
// change rarely, query results often.
var operationTTLs = map[string]time.Duration{
	"list_databases": 5 * time.Minute,
	"get_database":   3 * time.Minute,
	"query_database": 1 * time.Minute,
	"list_views":     5 * time.Minute,
	"get_view":       5 * time.Minute,
	"search_pages":   2 * time.Minute,
	"get_page":       3 * time.Minute,
}

const defaultTTL = 2 * time.Minute

// writeOperations invalidate an account's cached reads when they complete.
var writeOperations = map[string]bool{
	"create_page":  true,
	"update_page":  true,
	"archive_page": true,
	"save_view":    true,
	"delete_view":  true,
}

// Store is a disk cache for remote read operations, keyed by account,
// operation, and a stable hash of the operation parameters.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed initializes) the cache database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key builds the cache key for an operation and its parameters. Parameter
// maps marshal with sorted keys, so equal parameters hash equally.
func Key(accountID, operation string, params any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to hash cache parameters: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%s", accountID, operation, hex.EncodeToString(sum[:8])), nil
}

// Get returns the cached payload for an operation, or ok=false on a miss.
// Expired entries are deleted on read.
func (s *Store) Get(accountID, operation string, params any) ([]byte, bool, error) {
	key, err := Key(accountID, operation, params)
	if err != nil {
		return nil, false, err
	}

	var (
		data       []byte
		createdAt  int64
		ttlSeconds int64
	)
	row := s.db.QueryRow(`
		SELECT data, created_at, ttl_seconds
		FROM cache_entries
		WHERE cache_key = ?`, key)
	if err := row.Scan(&data, &createdAt, &ttlSeconds); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	if ttlSeconds > 0 && time.Now().Unix()-createdAt > ttlSeconds {
		_, _ = s.db.Exec(`DELETE FROM cache_entries WHERE cache_key = ?`, key)
		return nil, false, nil
	}

	return data, true, nil
}

// Set stores the payload for an operation using the operation's TTL.
func (s *Store) Set(accountID, operation string, params any, data []byte) error {
	key, err := Key(accountID, operation, params)
	if err != nil {
		return err
	}

	ttl, ok := operationTTLs[operation]
	if !ok {
		ttl = defaultTTL
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO cache_entries
		(cache_key, account_id, operation, data, created_at, ttl_seconds)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key, accountID, operation, data, time.Now().Unix(), int64(ttl.Seconds()),
	)
	return err
}

// Invalidate removes all cached entries for an account.
func (s *Store) Invalidate(accountID string) error {
	_, err := s.db.Exec(`DELETE FROM cache_entries WHERE account_id = ?`, accountID)
	return err
}

// InvalidateAfterWrite clears the account's cache if operation mutates
// remote state; reads leave the cache alone.
func (s *Store) InvalidateAfterWrite(accountID, operation string) error {
	if !writeOperations[operation] {
		return nil
	}
	return s.Invalidate(accountID)
}

// Purge deletes all expired entries.
func (s *Store) Purge() error {
	_, err := s.db.Exec(`
		DELETE FROM cache_entries
		WHERE ttl_seconds > 0 AND ? - created_at > ttl_seconds`,
		time.Now().Unix(),
	)
	return err
}
