package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "relaybot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Config configures the settings store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the per-feature configuration store: a namespaced key-value map
// keyed by tenant, persisted durably before Set/Delete return.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

// Open opens (and if needed creates) the SQLite-backed store.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("store path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get unmarshals the stored value for (namespace, tenant) into out.
// The second return is false when no value is set.
func (s *Store) Get(ctx context.Context, namespace, tenantID string, out any) (bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE namespace = ? AND tenant_id = ?`,
		namespace, tenantID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("store: decode %s/%s: %w", namespace, tenantID, err)
	}
	return true, nil
}

// Set stores v for (namespace, tenant), overwriting any previous value.
// Last write wins.
func (s *Store) Set(ctx context.Context, namespace, tenantID string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s/%s: %w", namespace, tenantID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings(namespace, tenant_id, value, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(namespace, tenant_id) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		namespace, tenantID, raw, time.Now().UnixMilli(),
	)
	return err
}

// Delete removes the value for (namespace, tenant). Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, namespace, tenantID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE namespace = ? AND tenant_id = ?`,
		namespace, tenantID,
	)
	return err
}

// List returns every tenant's raw value in a namespace.
func (s *Store) List(ctx context.Context, namespace string) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant_id, value FROM settings WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]json.RawMessage{}
	for rows.Next() {
		var tenant string
		var raw []byte
		if err := rows.Scan(&tenant, &raw); err != nil {
			return nil, err
		}
		out[tenant] = append(json.RawMessage(nil), raw...)
	}
	return out, rows.Err()
}
