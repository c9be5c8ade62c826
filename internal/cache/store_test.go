package cache

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSetAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	params := map[string]any{"database": "db1", "limit": 10}

	if err := s.Set("default", "query_database", params, []byte(`{"rows":1}`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	data, ok, err := s.Get("default", "query_database", params)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(data) != `{"rows":1}` {
		t.Errorf("data = %s", data)
	}
}

func TestGetMissOnDifferentParams(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.Set("default", "query_database", map[string]any{"limit": 10}, []byte("a")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	_, ok, err := s.Get("default", "query_database", map[string]any{"limit": 20})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok {
		t.Error("expected cache miss for different params")
	}

	_, ok, _ = s.Get("other", "query_database", map[string]any{"limit": 10})
	if ok {
		t.Error("expected cache miss for different account")
	}
}

func TestKeyIsStable(t *testing.T) {
	// Map key order must not influence the key; JSON marshaling sorts keys.
	k1, err := Key("default", "op", map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Key returned error: %v", err)
	}
	k2, err := Key("default", "op", map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("Key returned error: %v", err)
	}
	if k1 != k2 {
		t.Errorf("keys differ: %s vs %s", k1, k2)
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	s, path := newTestStore(t)
	params := map[string]any{"database": "db1"}

	if err := s.Set("default", "get_database", params, []byte("stale")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	// Age the entry past its TTL directly in the database.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Exec(`UPDATE cache_entries SET created_at = created_at - 3600`); err != nil {
		t.Fatalf("update returned error: %v", err)
	}

	_, ok, err := s.Get("default", "get_database", params)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if ok {
		t.Error("expected expired entry to miss")
	}
}

func TestInvalidateAfterWrite(t *testing.T) {
	s, _ := newTestStore(t)
	params := map[string]any{"database": "db1"}

	if err := s.Set("default", "query_database", params, []byte("x")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set("other", "query_database", params, []byte("y")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	// Reads leave the cache alone.
	if err := s.InvalidateAfterWrite("default", "get_database"); err != nil {
		t.Fatalf("InvalidateAfterWrite returned error: %v", err)
	}
	if _, ok, _ := s.Get("default", "query_database", params); !ok {
		t.Error("read operation should not invalidate")
	}

	// Writes clear the account's entries, and only that account's.
	if err := s.InvalidateAfterWrite("default", "create_page"); err != nil {
		t.Fatalf("InvalidateAfterWrite returned error: %v", err)
	}
	if _, ok, _ := s.Get("default", "query_database", params); ok {
		t.Error("write operation should invalidate account cache")
	}
	if _, ok, _ := s.Get("other", "query_database", params); !ok {
		t.Error("other account's cache should survive")
	}
}

func TestPurge(t *testing.T) {
	s, path := newTestStore(t)

	if err := s.Set("default", "list_databases", map[string]any{}, []byte("x")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open returned error: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Exec(`UPDATE cache_entries SET created_at = created_at - 86400`); err != nil {
		t.Fatalf("update returned error: %v", err)
	}

	if err := s.Purge(); err != nil {
		t.Fatalf("Purge returned error: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		t.Fatalf("count returned error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 entries after purge, got %d", count)
	}
}
