package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"telegram-economy-bot/internal/model"
)

// SQLiteStore persists accounts as JSON documents in a single SQLite file.
// Transactions begin IMMEDIATE, so writers are serialized by the database.
type SQLiteStore struct {
	db *sqlx.DB
}

type accountRow struct {
	Version int64  `db:"version"`
	Data    string `db:"data"`
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}
	log.Info().Str("path", path).Msg("SQLite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (unixepoch())
	);

	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY,
		seller TEXT NOT NULL,
		kind TEXT NOT NULL,
		item_key TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price INTEGER NOT NULL CHECK (price > 0),
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller);

	CREATE TABLE IF NOT EXISTS economy_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		market_counter INTEGER NOT NULL DEFAULT 0
	);
	INSERT OR IGNORE INTO economy_meta (id, market_counter) VALUES (1, 0);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RunInTx runs fn inside an IMMEDIATE transaction.
func (s *SQLiteStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAccount returns the committed account.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return getAccount(ctx, s.db, id)
}

// ListAccounts returns all accounts ordered by id.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT version, data FROM accounts ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]*model.Account, 0, len(rows))
	for _, r := range rows {
		a, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// GetListing returns an active listing.
func (s *SQLiteStore) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	return getListing(ctx, s.db, id)
}

// ListListings returns the active board, oldest first.
func (s *SQLiteStore) ListListings(ctx context.Context) ([]model.Listing, error) {
	out := []model.Listing{}
	if err := s.db.SelectContext(ctx, &out, listingColumns+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	return out, nil
}

// MarketCounter returns the last issued listing id.
func (s *SQLiteStore) MarketCounter(ctx context.Context) (int64, error) {
	var counter int64
	if err := s.db.GetContext(ctx, &counter, `SELECT market_counter FROM economy_meta WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("failed to read market counter: %w", err)
	}
	return counter, nil
}

// Restore replaces all accounts, listings and the counter in one transaction.
func (s *SQLiteStore) Restore(ctx context.Context, accounts []*model.Account, listings []model.Listing, counter int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin restore: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return fmt.Errorf("failed to clear listings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO accounts (id, version, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range accounts {
		raw, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode account %s: %w", a.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, a.ID, max(a.Version, 1), string(raw)); err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}

	for _, l := range listings {
		if _, err := tx.NamedExecContext(ctx, insertListing, l); err != nil {
			return fmt.Errorf("insert listing %d: %w", l.ID, err)
		}
		counter = max(counter, l.ID)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE economy_meta SET market_counter = ? WHERE id = 1`, counter); err != nil {
		return fmt.Errorf("failed to restore market counter: %w", err)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const insertListing = `
	INSERT INTO listings (id, seller, kind, item_key, quantity, price, created_at)
	VALUES (:id, :seller, :kind, :item_key, :quantity, :price, :created_at)`

type sqliteTx struct {
	tx *sqlx.Tx
}

func (t *sqliteTx) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return getAccount(ctx, t.tx, id)
}

func (t *sqliteTx) SaveAccount(ctx context.Context, a *model.Account) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	var res sql.Result
	if a.Version == 0 {
		res, err = t.tx.ExecContext(ctx, `
			INSERT INTO accounts (id, version, data, updated_at)
			VALUES (?, 1, ?, unixepoch())
			ON CONFLICT (id) DO NOTHING
		`, a.ID, string(raw))
	} else {
		res, err = t.tx.ExecContext(ctx, `
			UPDATE accounts
			SET data = ?, version = version + 1, updated_at = unixepoch()
			WHERE id = ? AND version = ?
		`, string(raw), a.ID, a.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	if n != 1 {
		return ErrConflict
	}
	a.Version++
	return nil
}

func (t *sqliteTx) DeleteAccount(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func (t *sqliteTx) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	return getListing(ctx, t.tx, id)
}

func (t *sqliteTx) ListingsBySeller(ctx context.Context, seller string) ([]model.Listing, error) {
	out := []model.Listing{}
	if err := t.tx.SelectContext(ctx, &out, listingColumns+` WHERE seller = ? ORDER BY id`, seller); err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	return out, nil
}

func (t *sqliteTx) CreateListing(ctx context.Context, l *model.Listing) error {
	err := t.tx.GetContext(ctx, &l.ID, `
		UPDATE economy_meta SET market_counter = market_counter + 1
		WHERE id = 1
		RETURNING market_counter
	`)
	if err != nil {
		return fmt.Errorf("failed to advance market counter: %w", err)
	}
	if _, err := t.tx.NamedExecContext(ctx, insertListing, l); err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteListing(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if n == 0 {
		return ErrListingNotFound
	}
	return nil
}

func getAccount(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Account, error) {
	var r accountRow
	if err := sqlx.GetContext(ctx, q, &r, `SELECT version, data FROM accounts WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return r.decode()
}

func getListing(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Listing, error) {
	var l model.Listing
	if err := sqlx.GetContext(ctx, q, &l, listingColumns+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &l, nil
}

func (r accountRow) decode() (*model.Account, error) {
	var a model.Account
	if err := json.Unmarshal([]byte(r.Data), &a); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	a.Version = r.Version
	a.EnsureDefaults()
	return &a, nil
}
