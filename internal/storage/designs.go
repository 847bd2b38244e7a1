package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raine/room-design-studio/internal/design"
)

// RecordDesign stores a settled design in the owner's history. Missing ids
// and timestamps are filled in.
func (s *SQLiteStore) RecordDesign(ctx context.Context, rec design.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	reqJSON, err := json.Marshal(rec.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal design request: %w", err)
	}
	resJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal design result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO designs (id, owner_id, request_json, result_json, provider, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, string(reqJSON), string(resJSON), rec.Result.Provider, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record design: %w", err)
	}

	return nil
}

// DesignsByOwner returns up to limit designs for an owner, newest first.
// A limit of 0 or less returns all of them.
func (s *SQLiteStore) DesignsByOwner(ctx context.Context, owner string, limit int) ([]design.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, request_json, result_json, created_at FROM designs
		WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query designs: %w", err)
	}
	defer rows.Close()

	var records []design.Record
	for rows.Next() {
		var rec design.Record
		var reqJSON, resJSON string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &reqJSON, &resJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan design: %w", err)
		}
		if err := json.Unmarshal([]byte(reqJSON), &rec.Request); err != nil {
			return nil, fmt.Errorf("failed to unmarshal design request %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(resJSON), &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal design result %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteDesignsOlderThan prunes history rows created before cutoff and
// returns how many were removed.
func (s *SQLiteStore) DeleteDesignsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM designs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune designs: %w", err)
	}
	return res.RowsAffected()
}
