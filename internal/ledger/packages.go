package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raine/room-design-studio/internal/design"
	"github.com/rs/zerolog/log"
)

// Package is a purchasable bundle of tokens.
type Package struct {
	ID       string  `json:"id"`
	Tokens   int     `json:"tokens"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Popular  bool    `json:"popular,omitempty"`
}

var catalog = []Package{
	{ID: "tokens-5", Tokens: 5, Price: 9.99, Currency: "USD"},
	{ID: "tokens-15", Tokens: 15, Price: 24.99, Currency: "USD", Popular: true},
	{ID: "tokens-35", Tokens: 35, Price: 49.99, Currency: "USD"},
}

// Catalog returns the token packages on sale.
func Catalog() []Package {
	return append([]Package(nil), catalog...)
}

// FindPackage looks up a package by id.
func FindPackage(id string) (Package, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

// Purchase is a completed (simulated) token purchase.
type Purchase struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	PackageID string    `json:"package_id"`
	Tokens    int       `json:"tokens"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// PurchaseRecorder keeps purchase history.
type PurchaseRecorder interface {
	RecordPurchase(ctx context.Context, p Purchase) error
	Purchases(ctx context.Context, owner string) ([]Purchase, error)
}

// Buy simulates paying for packageID, credits its tokens to owner and
// records the purchase. Payment always succeeds.
func Buy(ctx context.Context, l Ledger, rec PurchaseRecorder, owner, packageID string) (Purchase, int, error) {
	pkg, ok := FindPackage(packageID)
	if !ok {
		return Purchase{}, 0, fmt.Errorf("%w: unknown token package %q", design.ErrInvalidRequest, packageID)
	}

	balance, err := l.Credit(ctx, owner, pkg.Tokens)
	if err != nil {
		return Purchase{}, 0, fmt.Errorf("failed to credit tokens: %w", err)
	}

	p := Purchase{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		PackageID: pkg.ID,
		Tokens:    pkg.Tokens,
		Price:     pkg.Price,
		Currency:  pkg.Currency,
		CreatedAt: time.Now().UTC(),
	}
	if rec != nil {
		if err := rec.RecordPurchase(ctx, p); err != nil {
			// Tokens are already credited; losing the history row is not fatal.
			log.Error().Err(err).Str("owner", owner).Str("purchaseID", p.ID).Msg("failed to record purchase")
		}
	}

	log.Info().
		Str("owner", owner).
		Str("package", pkg.ID).
		Int("tokens", pkg.Tokens).
		Int("balance", balance).
		Msg("token purchase")

	return p, balance, nil
}
