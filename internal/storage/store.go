// Package storage persists balances, purchases, design history, provider
// settings and cached bills of quantities in SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/raine/room-design-studio/internal/ledger"
	"github.com/raine/room-design-studio/internal/provider"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the ledger, purchase history, design history,
// provider settings and BOQ cache on one SQLite database. Provider API keys
// are stored encrypted.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

var (
	_ ledger.Ledger           = (*SQLiteStore)(nil)
	_ ledger.PurchaseRecorder = (*SQLiteStore)(nil)
	_ provider.BOQCache       = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// encryptionKey encrypts provider API keys at rest; see DeriveKey.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// WAL mode and a busy timeout let concurrent requests share the file
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Only effective once the file exists, which init guarantees
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to restrict database permissions: %w", err)
	}

	return store, nil
}

var schema = []struct {
	name  string
	query string
}{
	{"token_balances", `
	CREATE TABLE IF NOT EXISTS token_balances (
		owner_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL CHECK (balance >= 0),
		updated_at DATETIME NOT NULL
	);`},
	{"purchases", `
	CREATE TABLE IF NOT EXISTS purchases (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		package_id TEXT NOT NULL,
		tokens INTEGER NOT NULL,
		price REAL NOT NULL,
		currency TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`},
	{"designs", `
	CREATE TABLE IF NOT EXISTS designs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		request_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		provider TEXT,
		created_at DATETIME NOT NULL
	);`},
	{"provider_settings", `
	CREATE TABLE IF NOT EXISTS provider_settings (
		owner_id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		encrypted_api_key TEXT NOT NULL,
		model_id TEXT,
		updated_at DATETIME NOT NULL
	);`},
	{"boq_cache", `
	CREATE TABLE IF NOT EXISTS boq_cache (
		prompt_hash TEXT PRIMARY KEY,
		items_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`},
}

func (s *SQLiteStore) init() error {
	for _, t := range schema {
		if _, err := s.db.Exec(t.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_designs_owner ON designs(owner_id, created_at)"); err != nil {
		return fmt.Errorf("failed to create designs index: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_purchases_owner ON purchases(owner_id, created_at)"); err != nil {
		return fmt.Errorf("failed to create purchases index: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
