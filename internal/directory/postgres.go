package directory

import (
	"context"
	"errors"
	"fmt"

	"chat-server/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to account directory database")
	return &Postgres{pool: pool}, nil
}

func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

func (db *Postgres) Lookup(ctx context.Context, username string) (*Account, error) {
	query := `SELECT id, username, password_hash, created_at FROM accounts WHERE username = $1`

	acct := &Account{}
	err := db.pool.QueryRow(ctx, query, username).Scan(
		&acct.ID, &acct.Username, &acct.PasswordHash, &acct.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return acct, nil
}

func (db *Postgres) Create(ctx context.Context, username, passwordHash string) (*Account, error) {
	query := `
		INSERT INTO accounts (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (username) DO NOTHING
		RETURNING id, username, password_hash, created_at`

	acct := &Account{}
	err := db.pool.QueryRow(ctx, query, uuid.NewString(), username, passwordHash).Scan(
		&acct.ID, &acct.Username, &acct.PasswordHash, &acct.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return acct, nil
}
