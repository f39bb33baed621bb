// Package snapshot exports and imports the whole persisted namespace as a
// zstd-compressed file: one JSON header line followed by the JSON body.
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"telegram-economy-bot/internal/catalog"
	"telegram-economy-bot/internal/model"
	"telegram-economy-bot/internal/repository"
)

// FormatVersion is written into every header.
const FormatVersion = 1

const fileSuffix = ".json.zst"

// ErrBadSnapshot is returned for files that cannot be decoded.
var ErrBadSnapshot = errors.New("invalid snapshot")

// Header is the uncompressed-at-a-glance first line of a snapshot.
type Header struct {
	Version       int    `json:"version"`
	CatalogDigest string `json:"catalogDigest"`
	CreatedAt     int64  `json:"createdAt"`
	Accounts      int    `json:"accounts"`
	Listings      int    `json:"listings"`
}

// Namespace is the logical persisted layout. The catalog sections are
// informational; Import only restores users and the market.
type Namespace struct {
	Users             map[string]*model.Account        `json:"users"`
	Shop              map[string]catalog.ShopItem      `json:"shop"`
	JobCatalog        map[string]catalog.Job           `json:"jobCatalog"`
	Seeds             map[string]catalog.Seed          `json:"seeds"`
	CookingRecipes    map[string]catalog.CookingRecipe `json:"cookingRecipes"`
	Recipes           map[string]catalog.CraftRecipe   `json:"recipes"`
	MaterialsPrices   map[string]int64                 `json:"materialsPrices"`
	PropertiesCatalog map[string]catalog.PropertyDef   `json:"propertiesCatalog"`
	Market            []model.Listing                  `json:"market"`
	MarketCounter     int64                            `json:"marketCounter"`
}

// Export reads the full store into a Namespace.
func Export(ctx context.Context, store repository.Store, cat *catalog.Catalog) (*Namespace, error) {
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	listings, err := store.ListListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	counter, err := store.MarketCounter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read market counter: %w", err)
	}

	ns := &Namespace{
		Users:             make(map[string]*model.Account, len(accounts)),
		Shop:              cat.Shop,
		JobCatalog:        cat.Jobs,
		Seeds:             cat.Seeds,
		CookingRecipes:    cat.CookingRecipes,
		Recipes:           cat.Recipes,
		MaterialsPrices:   cat.MaterialsPrices,
		PropertiesCatalog: cat.Properties,
		Market:            listings,
		MarketCounter:     counter,
	}
	for _, a := range accounts {
		ns.Users[a.ID] = a
	}
	if ns.Market == nil {
		ns.Market = []model.Listing{}
	}
	return ns, nil
}

// Import replaces the store content with the users and market of ns.
// Accounts are backfilled with defaults; stored listings must reference
// known sellers.
func Import(ctx context.Context, store repository.Store, ns *Namespace) error {
	ids := make([]string, 0, len(ns.Users))
	for id := range ns.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	accounts := make([]*model.Account, 0, len(ids))
	for _, id := range ids {
		a := ns.Users[id]
		if a == nil {
			continue
		}
		if a.ID == "" {
			a.ID = id
		}
		if a.ID != id {
			return fmt.Errorf("%w: user key %q holds account %q", ErrBadSnapshot, id, a.ID)
		}
		a.EnsureDefaults()
		accounts = append(accounts, a)
	}

	for _, l := range ns.Market {
		if _, ok := ns.Users[l.Seller]; !ok {
			return fmt.Errorf("%w: listing %d has unknown seller %q", ErrBadSnapshot, l.ID, l.Seller)
		}
		if l.ID > ns.MarketCounter {
			return fmt.Errorf("%w: listing %d is above market counter %d", ErrBadSnapshot, l.ID, ns.MarketCounter)
		}
	}

	if err := store.Restore(ctx, accounts, ns.Market, ns.MarketCounter); err != nil {
		return fmt.Errorf("failed to restore store: %w", err)
	}
	return nil
}

// Write encodes a snapshot to w.
func Write(w io.Writer, h Header, ns *Namespace) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	hb, err := json.Marshal(h)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(ns); err != nil {
		enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Read decodes a snapshot from r.
func Read(r io.Reader) (Header, *Namespace, error) {
	var h Header
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, fmt.Errorf("%w: read header: %v", ErrBadSnapshot, err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, fmt.Errorf("%w: decode header: %v", ErrBadSnapshot, err)
	}
	if h.Version != FormatVersion {
		return h, nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, h.Version)
	}

	var ns Namespace
	if err := json.NewDecoder(br).Decode(&ns); err != nil {
		return h, nil, fmt.Errorf("%w: decode body: %v", ErrBadSnapshot, err)
	}
	return h, &ns, nil
}

// WriteFile writes a snapshot atomically through a temp file and rename.
func WriteFile(path string, h Header, ns *Namespace) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, h, ns); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile reads a snapshot from path.
func ReadFile(path string) (Header, *Namespace, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()
	return Read(f)
}

// Manager writes timestamped backups into a directory and prunes old ones.
type Manager struct {
	store   repository.Store
	catalog *catalog.Catalog
	dir     string
	keep    int
	clock   func() time.Time
}

// NewManager creates a backup manager. keep <= 0 keeps every file.
func NewManager(store repository.Store, cat *catalog.Catalog, dir string, keep int) *Manager {
	return &Manager{store: store, catalog: cat, dir: dir, keep: keep, clock: time.Now}
}

// Backup exports the store and writes a new snapshot file. It returns the
// path written.
func (m *Manager) Backup(ctx context.Context) (string, error) {
	ns, err := Export(ctx, m.store, m.catalog)
	if err != nil {
		return "", err
	}
	now := m.clock().UTC()
	h := Header{
		Version:       FormatVersion,
		CatalogDigest: m.catalog.Digest(),
		CreatedAt:     now.UnixMilli(),
		Accounts:      len(ns.Users),
		Listings:      len(ns.Market),
	}
	path := filepath.Join(m.dir, "economy-"+now.Format("20060102T150405.000")+fileSuffix)
	if err := WriteFile(path, h, ns); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Info().
		Str("path", path).
		Int("accounts", h.Accounts).
		Int("listings", h.Listings).
		Msg("Snapshot written")

	if err := m.prune(); err != nil {
		log.Warn().Err(err).Msg("Failed to prune old snapshots")
	}
	return path, nil
}

// Latest returns the newest snapshot in the directory, or "" if none exist.
func (m *Manager) Latest() (string, error) {
	files, err := m.files()
	if err != nil || len(files) == 0 {
		return "", err
	}
	return files[len(files)-1], nil
}

// Restore imports the snapshot at path. A catalog digest mismatch is logged
// but not fatal: catalog sections are informational.
func (m *Manager) Restore(ctx context.Context, path string) error {
	h, ns, err := ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	if h.CatalogDigest != m.catalog.Digest() {
		log.Warn().
			Str("snapshot_digest", h.CatalogDigest).
			Str("catalog_digest", m.catalog.Digest()).
			Msg("Snapshot was taken with a different catalog")
	}
	if err := Import(ctx, m.store, ns); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("accounts", len(ns.Users)).Msg("Snapshot restored")
	return nil
}

// files lists snapshot paths oldest first; names sort chronologically.
func (m *Manager) files() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "economy-") || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		out = append(out, filepath.Join(m.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (m *Manager) prune() error {
	if m.keep <= 0 {
		return nil
	}
	files, err := m.files()
	if err != nil {
		return err
	}
	for len(files) > m.keep {
		if err := os.Remove(files[0]); err != nil {
			return err
		}
		files = files[1:]
	}
	return nil
}
