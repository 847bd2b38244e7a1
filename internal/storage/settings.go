package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/raine/room-design-studio/internal/design"
)

// SetProviderSettings stores the owner's preferred provider. The API key is
// encrypted before it is written.
func (s *SQLiteStore) SetProviderSettings(ctx context.Context, owner string, pc design.ProviderConfig) error {
	encryptedKey, err := Encrypt([]byte(pc.APIKey), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO provider_settings (owner_id, provider_id, encrypted_api_key, model_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			provider_id = excluded.provider_id,
			encrypted_api_key = excluded.encrypted_api_key,
			model_id = excluded.model_id,
			updated_at = excluded.updated_at
	`, owner, pc.ProviderID, encryptedKey, pc.ModelID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save provider settings: %w", err)
	}

	return nil
}

// GetProviderSettings returns the owner's stored provider settings.
// Returns nil, nil if none are stored.
func (s *SQLiteStore) GetProviderSettings(ctx context.Context, owner string) (*design.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var providerID, encryptedKey string
	var modelID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT provider_id, encrypted_api_key, model_id FROM provider_settings WHERE owner_id = ?",
		owner,
	).Scan(&providerID, &encryptedKey, &modelID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query provider settings: %w", err)
	}

	apiKey, err := Decrypt(encryptedKey, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt api key: %w", err)
	}

	return &design.ProviderConfig{
		ProviderID: providerID,
		APIKey:     string(apiKey),
		ModelID:    modelID.String,
	}, nil
}

// DeleteProviderSettings removes the owner's stored provider settings.
func (s *SQLiteStore) DeleteProviderSettings(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM provider_settings WHERE owner_id = ?", owner); err != nil {
		return fmt.Errorf("failed to delete provider settings: %w", err)
	}
	return nil
}
