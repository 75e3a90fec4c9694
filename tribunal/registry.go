package tribunal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// registrySchema holds the court connection parameters in the catalog
// database. Rows are upserted from the seed file at boot and editable by
// the surrounding application.
const registrySchema = `
CREATE TABLE IF NOT EXISTS court_configs (
    court_id        TEXT PRIMARY KEY,
    driver_kind     TEXT NOT NULL,
    base_url        TEXT NOT NULL,
    login_url       TEXT NOT NULL,
    api_url         TEXT NOT NULL,
    nav_timeout_ms  INTEGER NOT NULL DEFAULT 0,
    auth_timeout_ms INTEGER NOT NULL DEFAULT 0,
    page_timeout_ms INTEGER NOT NULL DEFAULT 0,
    updated_at      INTEGER NOT NULL
);
`

// Registry resolves court identifiers to connection parameters. Resolve
// reads the table on every call: configuration may change between runs and
// staleness is not tolerated, so nothing is cached.
type Registry struct {
	db *sql.DB
}

// NewRegistry creates a Registry over the catalog database.
func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db}
}

// InitSchema creates the court_configs table.
func (r *Registry) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, registrySchema); err != nil {
		return fmt.Errorf("tribunal: init registry schema: %w", err)
	}
	return nil
}

// Resolve returns the configuration snapshot for a court, or
// ErrConfigNotFound when no row exists.
func (r *Registry) Resolve(ctx context.Context, courtID string) (*CourtConfig, error) {
	var c CourtConfig
	err := r.db.QueryRowContext(ctx,
		`SELECT court_id, driver_kind, base_url, login_url, api_url,
		nav_timeout_ms, auth_timeout_ms, page_timeout_ms
		FROM court_configs WHERE court_id = ?`, courtID).
		Scan(&c.CourtID, &c.DriverKind, &c.BaseURL, &c.LoginURL, &c.APIURL,
			&c.NavTimeoutMs, &c.AuthTimeoutMs, &c.PageTimeoutMs)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, courtID)
	}
	if err != nil {
		return nil, fmt.Errorf("tribunal: resolve %s: %w", courtID, err)
	}
	return &c, nil
}

// Upsert inserts or replaces one court configuration.
func (r *Registry) Upsert(ctx context.Context, c *CourtConfig) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO court_configs (court_id, driver_kind, base_url, login_url,
		api_url, nav_timeout_ms, auth_timeout_ms, page_timeout_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(court_id) DO UPDATE SET
		driver_kind = excluded.driver_kind,
		base_url = excluded.base_url,
		login_url = excluded.login_url,
		api_url = excluded.api_url,
		nav_timeout_ms = excluded.nav_timeout_ms,
		auth_timeout_ms = excluded.auth_timeout_ms,
		page_timeout_ms = excluded.page_timeout_ms,
		updated_at = excluded.updated_at`,
		c.CourtID, c.DriverKind, c.BaseURL, c.LoginURL, c.APIURL,
		c.NavTimeoutMs, c.AuthTimeoutMs, c.PageTimeoutMs, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("tribunal: upsert %s: %w", c.CourtID, err)
	}
	return nil
}

// List returns all configured courts ordered by court id.
func (r *Registry) List(ctx context.Context) ([]*CourtConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT court_id, driver_kind, base_url, login_url, api_url,
		nav_timeout_ms, auth_timeout_ms, page_timeout_ms
		FROM court_configs ORDER BY court_id`)
	if err != nil {
		return nil, fmt.Errorf("tribunal: list courts: %w", err)
	}
	defer rows.Close()

	var out []*CourtConfig
	for rows.Next() {
		var c CourtConfig
		if err := rows.Scan(&c.CourtID, &c.DriverKind, &c.BaseURL, &c.LoginURL,
			&c.APIURL, &c.NavTimeoutMs, &c.AuthTimeoutMs, &c.PageTimeoutMs); err != nil {
			return nil, fmt.Errorf("tribunal: scan court: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Seed upserts a batch of configurations (used at boot with the seed file).
func (r *Registry) Seed(ctx context.Context, configs []CourtConfig) error {
	for i := range configs {
		if err := r.Upsert(ctx, &configs[i]); err != nil {
			return err
		}
	}
	return nil
}

type seedFile struct {
	Courts []CourtConfig `yaml:"courts"`
}

// LoadSeedFile reads a YAML list of court configurations:
//
//	courts:
//	  - court_id: tjsp
//	    driver_kind: pje
//	    base_url: https://pje.tjsp.jus.br
//	    ...
func LoadSeedFile(path string) ([]CourtConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tribunal: read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("tribunal: parse seed file: %w", err)
	}
	for i := range f.Courts {
		c := &f.Courts[i]
		if c.CourtID == "" || c.DriverKind == "" {
			return nil, fmt.Errorf("tribunal: seed entry %d missing court_id or driver_kind", i)
		}
	}
	return f.Courts, nil
}
