package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/raine/room-design-studio/internal/design"
)

// GetBOQCache returns cached line items for a prompt hash.
// Returns nil, nil on a miss.
func (s *SQLiteStore) GetBOQCache(ctx context.Context, hash string) ([]design.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var itemsJSON string
	err := s.db.QueryRowContext(ctx, "SELECT items_json FROM boq_cache WHERE prompt_hash = ?", hash).Scan(&itemsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query boq cache: %w", err)
	}

	var items []design.LineItem
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal boq cache entry: %w", err)
	}
	return items, nil
}

// SetBOQCache stores line items for a prompt hash.
func (s *SQLiteStore) SetBOQCache(ctx context.Context, hash string, items []design.LineItem) error {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal boq cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO boq_cache (prompt_hash, items_json)
		VALUES (?, ?)
		ON CONFLICT(prompt_hash) DO UPDATE SET
			items_json = excluded.items_json,
			created_at = CURRENT_TIMESTAMP
	`, hash, string(itemsJSON))
	if err != nil {
		return fmt.Errorf("failed to save boq cache entry: %w", err)
	}
	return nil
}
