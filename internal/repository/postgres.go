package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"telegram-economy-bot/internal/model"
)

// PostgresStore persists accounts as JSONB documents in PostgreSQL.
// Accounts read inside a transaction are locked with SELECT ... FOR UPDATE,
// and every update is additionally guarded by the version column so that
// several bot processes can share one database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	log.Info().Msg("Running database migrations...")

	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			version BIGINT NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	log.Info().Msg("Migration 1: accounts table created")

	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id BIGINT PRIMARY KEY,
			seller TEXT NOT NULL,
			kind VARCHAR(16) NOT NULL,
			item_key VARCHAR(64) NOT NULL,
			quantity BIGINT NOT NULL CHECK (quantity > 0),
			price BIGINT NOT NULL CHECK (price > 0),
			created_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller);
	`)
	if err != nil {
		return fmt.Errorf("failed to create listings table: %w", err)
	}
	log.Info().Msg("Migration 2: listings table created")

	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS economy_meta (
			id INT PRIMARY KEY CHECK (id = 1),
			market_counter BIGINT NOT NULL DEFAULT 0
		);
		INSERT INTO economy_meta (id, market_counter) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
	`)
	if err != nil {
		return fmt.Errorf("failed to create economy_meta table: %w", err)
	}
	log.Info().Msg("Migration 3: economy_meta table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// RunInTx runs fn inside a READ COMMITTED transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// GetAccount returns the committed account.
func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `SELECT version, data FROM accounts WHERE id = $1`, id))
}

// ListAccounts returns all accounts ordered by id.
func (s *PostgresStore) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	rows, err := s.pool.Query(ctx, `SELECT version, data FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return out, nil
}

// GetListing returns an active listing.
func (s *PostgresStore) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	return scanListing(s.pool.QueryRow(ctx, listingColumns+` WHERE id = $1`, id))
}

// ListListings returns the active board, oldest first.
func (s *PostgresStore) ListListings(ctx context.Context) ([]model.Listing, error) {
	return queryListings(ctx, s.pool, listingColumns+` ORDER BY id`)
}

// MarketCounter returns the last issued listing id.
func (s *PostgresStore) MarketCounter(ctx context.Context) (int64, error) {
	var counter int64
	err := s.pool.QueryRow(ctx, `SELECT market_counter FROM economy_meta WHERE id = 1`).Scan(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to read market counter: %w", err)
	}
	return counter, nil
}

// Restore replaces all accounts, listings and the counter in one transaction.
func (s *PostgresStore) Restore(ctx context.Context, accounts []*model.Account, listings []model.Listing, counter int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin restore: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM listings; DELETE FROM accounts;`); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}

	batch := &pgx.Batch{}
	for _, a := range accounts {
		raw, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode account %s: %w", a.ID, err)
		}
		batch.Queue(`INSERT INTO accounts (id, version, data) VALUES ($1, $2, $3)`, a.ID, max(a.Version, 1), string(raw))
	}
	for _, l := range listings {
		batch.Queue(`
			INSERT INTO listings (id, seller, kind, item_key, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, l.ID, l.Seller, string(l.Kind), l.Key, l.Quantity, l.Price, l.CreatedAt)
		counter = max(counter, l.ID)
	}
	batch.Queue(`UPDATE economy_meta SET market_counter = $1 WHERE id = 1`, counter)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to restore store: %w", err)
	}
	return tx.Commit(ctx)
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx, `SELECT version, data FROM accounts WHERE id = $1 FOR UPDATE`, id))
	return a, mapPgError(err)
}

func (t *pgTx) SaveAccount(ctx context.Context, a *model.Account) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	var tag pgconn.CommandTag
	if a.Version == 0 {
		tag, err = t.tx.Exec(ctx, `
			INSERT INTO accounts (id, version, data, updated_at)
			VALUES ($1, 1, $2, NOW())
			ON CONFLICT (id) DO NOTHING
		`, a.ID, string(raw))
	} else {
		tag, err = t.tx.Exec(ctx, `
			UPDATE accounts
			SET data = $2, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $3
		`, a.ID, string(raw), a.Version)
	}
	if err != nil {
		return mapPgError(fmt.Errorf("failed to save account: %w", err))
	}
	if tag.RowsAffected() != 1 {
		return ErrConflict
	}
	a.Version++
	return nil
}

func (t *pgTx) DeleteAccount(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return mapPgError(fmt.Errorf("failed to delete account: %w", err))
	}
	return nil
}

func (t *pgTx) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	l, err := scanListing(t.tx.QueryRow(ctx, listingColumns+` WHERE id = $1 FOR UPDATE`, id))
	return l, mapPgError(err)
}

func (t *pgTx) ListingsBySeller(ctx context.Context, seller string) ([]model.Listing, error) {
	return queryListings(ctx, t.tx, listingColumns+` WHERE seller = $1 ORDER BY id`, seller)
}

func (t *pgTx) CreateListing(ctx context.Context, l *model.Listing) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE economy_meta SET market_counter = market_counter + 1
		WHERE id = 1
		RETURNING market_counter
	`).Scan(&l.ID)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to advance market counter: %w", err))
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO listings (id, seller, kind, item_key, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.Seller, string(l.Kind), l.Key, l.Quantity, l.Price, l.CreatedAt)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to create listing: %w", err))
	}
	return nil
}

func (t *pgTx) DeleteListing(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to delete listing: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrListingNotFound
	}
	return nil
}

const listingColumns = `SELECT id, seller, kind, item_key, quantity, price, created_at FROM listings`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryListings(ctx context.Context, q querier, sql string, args ...any) ([]model.Listing, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	return out, nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		version int64
		raw     []byte
	)
	if err := row.Scan(&version, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	var a model.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	a.Version = version
	a.EnsureDefaults()
	return &a, nil
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	var (
		l    model.Listing
		kind string
	)
	err := row.Scan(&l.ID, &l.Seller, &kind, &l.Key, &l.Quantity, &l.Price, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	l.Kind = model.ListingKind(kind)
	return &l, nil
}

// mapPgError turns serialization and deadlock failures into ErrConflict.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}
