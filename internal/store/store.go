// Package store defines account persistence for the paper trading engine.
// Implementations include PostgreSQL (durable source of truth), a JSON file
// (single-node deployments), and in-memory (for testing).
//
// The contract is deliberately key-value shaped: one account document per
// user id, loaded before an operation and saved after. The ledger never
// assumes anything about the storage format beyond load/save-by-key.
package store

import (
	"context"

	"github.com/papertrade/engine/internal/model"
)

// Store persists one account per user id.
type Store interface {
	// Load returns the account for a user, or (nil, nil) when none exists.
	// Absence is not an error — it signals "create a default account".
	Load(ctx context.Context, userID string) (*model.Account, error)

	// Save persists the account under the user id, replacing any prior state.
	Save(ctx context.Context, userID string, acct *model.Account) error
}
