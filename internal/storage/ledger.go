package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/raine/room-design-studio/internal/design"
	"github.com/raine/room-design-studio/internal/ledger"
)

// Open creates the owner's balance row with grant tokens unless it exists.
func (s *SQLiteStore) Open(ctx context.Context, owner string, grant int) (int, error) {
	if grant < 0 {
		return 0, fmt.Errorf("%w: negative signup grant", design.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_balances (owner_id, balance, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO NOTHING
	`, owner, grant, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to open account: %w", err)
	}

	return s.balance(ctx, owner)
}

// Balance returns the owner's token count, 0 for unknown owners.
func (s *SQLiteStore) Balance(ctx context.Context, owner string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance(ctx, owner)
}

func (s *SQLiteStore) balance(ctx context.Context, owner string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT balance FROM token_balances WHERE owner_id = ?", owner).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return count, nil
}

// Debit subtracts amount only if the balance covers it, so concurrent
// processes sharing the database cannot overdraw an account.
func (s *SQLiteStore) Debit(ctx context.Context, owner string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: token amount must be positive, got %d", design.ErrInvalidRequest, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE token_balances SET balance = balance - ?, updated_at = ?
		WHERE owner_id = ? AND balance >= ?
	`, amount, time.Now(), owner, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to debit tokens: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to debit tokens: %w", err)
	}

	balance, err := s.balance(ctx, owner)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return balance, design.ErrInsufficientTokens
	}
	return balance, nil
}

// Credit adds amount to the owner's balance, opening the account if needed.
func (s *SQLiteStore) Credit(ctx context.Context, owner string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: token amount must be positive, got %d", design.ErrInvalidRequest, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_balances (owner_id, balance, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			balance = balance + excluded.balance,
			updated_at = excluded.updated_at
	`, owner, amount, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to credit tokens: %w", err)
	}

	return s.balance(ctx, owner)
}

// RecordPurchase stores a completed purchase.
func (s *SQLiteStore) RecordPurchase(ctx context.Context, p ledger.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, owner_id, package_id, tokens, price, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.OwnerID, p.PackageID, p.Tokens, p.Price, p.Currency, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}
	return nil
}

// Purchases returns the owner's purchases, newest first.
func (s *SQLiteStore) Purchases(ctx context.Context, owner string) ([]ledger.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, package_id, tokens, price, currency, created_at
		FROM purchases WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []ledger.Purchase
	for rows.Next() {
		var p ledger.Purchase
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.PackageID, &p.Tokens, &p.Price, &p.Currency, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	return purchases, rows.Err()
}
