// Package ledger meters design generation with per-owner token balances.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/raine/room-design-studio/internal/design"
)

// DefaultSignupGrant is the balance a new account starts with.
const DefaultSignupGrant = 3

// Balance is an owner's token count. It is never negative.
type Balance struct {
	OwnerID string `json:"owner_id"`
	Count   int    `json:"count"`
}

// Ledger stores token balances.
//
// Debit is conditional: it fails with design.ErrInsufficientTokens instead
// of taking the balance below zero. Unknown owners have a balance of 0.
type Ledger interface {
	// Open creates the owner's account with grant tokens. Opening an existing
	// account leaves its balance untouched.
	Open(ctx context.Context, owner string, grant int) (int, error)
	Balance(ctx context.Context, owner string) (int, error)
	Debit(ctx context.Context, owner string, amount int) (int, error)
	Credit(ctx context.Context, owner string, amount int) (int, error)
}

func checkAmount(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: token amount must be positive, got %d", design.ErrInvalidRequest, amount)
	}
	return nil
}

// MemoryLedger is an in-process Ledger and PurchaseRecorder.
type MemoryLedger struct {
	mu        sync.Mutex
	balances  map[string]int
	purchases map[string][]Purchase
}

var (
	_ Ledger           = (*MemoryLedger)(nil)
	_ PurchaseRecorder = (*MemoryLedger)(nil)
)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:  make(map[string]int),
		purchases: make(map[string][]Purchase),
	}
}

func (m *MemoryLedger) Open(ctx context.Context, owner string, grant int) (int, error) {
	if grant < 0 {
		return 0, fmt.Errorf("%w: negative signup grant", design.ErrInvalidRequest)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.balances[owner]; ok {
		return n, nil
	}
	m.balances[owner] = grant
	return grant, nil
}

func (m *MemoryLedger) Balance(ctx context.Context, owner string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[owner], nil
}

func (m *MemoryLedger) Debit(ctx context.Context, owner string, amount int) (int, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.balances[owner]
	if n < amount {
		return n, design.ErrInsufficientTokens
	}
	m.balances[owner] = n - amount
	return n - amount, nil
}

func (m *MemoryLedger) Credit(ctx context.Context, owner string, amount int) (int, error) {
	if err := checkAmount(amount); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[owner] += amount
	return m.balances[owner], nil
}

func (m *MemoryLedger) RecordPurchase(ctx context.Context, p Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases[p.OwnerID] = append(m.purchases[p.OwnerID], p)
	return nil
}

// Purchases returns the owner's purchases, newest first.
func (m *MemoryLedger) Purchases(ctx context.Context, owner string) ([]Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.purchases[owner]
	out := make([]Purchase, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}
