package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/papertrade/engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL. Each account is one row;
// cash is stored as NUMERIC for exact decimal precision, positions and the
// order history as JSONB documents.
//
// Schema:
//
//	CREATE TABLE accounts (
//	    user_id    TEXT PRIMARY KEY,
//	    cash       NUMERIC NOT NULL,
//	    positions  JSONB NOT NULL,
//	    orders     JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (*model.Account, error) {
	var (
		cash      string
		positions []byte
		orders    []byte
		createdAt time.Time
	)

	err := s.pool.QueryRow(ctx,
		`SELECT cash::TEXT, positions, orders, created_at
		 FROM accounts WHERE user_id = $1`, userID).
		Scan(&cash, &positions, &orders, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", userID, err)
	}

	acct := &model.Account{
		UserID:    userID,
		CreatedAt: createdAt,
	}
	acct.Cash, err = decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("load account %s: bad cash value: %w", userID, err)
	}
	if err := json.Unmarshal(positions, &acct.Positions); err != nil {
		return nil, fmt.Errorf("load account %s: decode positions: %w", userID, err)
	}
	if err := json.Unmarshal(orders, &acct.Orders); err != nil {
		return nil, fmt.Errorf("load account %s: decode orders: %w", userID, err)
	}
	if acct.Positions == nil {
		acct.Positions = make(map[string]*model.Position)
	}
	if acct.Orders == nil {
		acct.Orders = []model.Order{}
	}
	return acct, nil
}

func (s *PostgresStore) Save(ctx context.Context, userID string, acct *model.Account) error {
	positions, err := json.Marshal(acct.Positions)
	if err != nil {
		return fmt.Errorf("save account %s: encode positions: %w", userID, err)
	}
	orders, err := json.Marshal(acct.Orders)
	if err != nil {
		return fmt.Errorf("save account %s: encode orders: %w", userID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO accounts (user_id, cash, positions, orders, created_at)
		 VALUES ($1, $2::NUMERIC, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET cash = EXCLUDED.cash,
		     positions = EXCLUDED.positions,
		     orders = EXCLUDED.orders,
		     created_at = EXCLUDED.created_at`,
		userID, acct.Cash.String(), positions, orders, acct.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save account %s: %w", userID, err)
	}
	return nil
}
