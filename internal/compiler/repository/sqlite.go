package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"variant-compiler/internal/compiler/models"
	"variant-compiler/internal/compiler/wizard"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("not found")

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init применяет встроенные миграции по порядку имён файлов.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Draft is a persisted wizard session: the source document plus the journal
// that rebuilds it.
type Draft struct {
	ID        string
	SVG       string
	Journal   []wizard.Step
	Stage     wizard.Stage
	UpdatedAt string
}

func (r *Repository) SaveDraft(ctx context.Context, d Draft) error {
	journal, err := json.Marshal(d.Journal)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO drafts (id, svg, journal, stage)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            journal = excluded.journal,
            stage = excluded.stage,
            updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
    `, d.ID, d.SVG, string(journal), d.Stage.String())
	if err != nil {
		return fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	return nil
}

func (r *Repository) GetDraft(ctx context.Context, id string) (*Draft, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, svg, journal, stage, updated_at
        FROM drafts
        WHERE id = ?
    `, id)

	var (
		d       Draft
		journal string
		stage   string
	)
	if err := row.Scan(&d.ID, &d.SVG, &journal, &stage, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("draft %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(journal), &d.Journal); err != nil {
		return nil, fmt.Errorf("decode journal of draft %s: %w", id, err)
	}
	st, err := wizard.ParseStage(stage)
	if err != nil {
		return nil, fmt.Errorf("draft %s: %w", id, err)
	}
	d.Stage = st
	return &d, nil
}

func (r *Repository) DeleteDraft(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	return nil
}

// StoredVariant is an exported definition. Definitions are written once and
// never updated.
type StoredVariant struct {
	ID         string                    `json:"id"`
	SessionID  string                    `json:"sessionId,omitempty"`
	Name       string                    `json:"name"`
	Definition *models.VariantDefinition `json:"definition"`
	CreatedAt  string                    `json:"createdAt"`
}

func (r *Repository) SaveVariant(ctx context.Context, v StoredVariant) error {
	def, err := json.Marshal(v.Definition)
	if err != nil {
		return fmt.Errorf("encode variant: %w", err)
	}
	var session any
	if v.SessionID != "" {
		session = v.SessionID
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO variants (id, session_id, name, definition)
        VALUES (?, ?, ?, ?)
    `, v.ID, session, v.Name, string(def))
	if err != nil {
		return fmt.Errorf("save variant %s: %w", v.ID, err)
	}
	return nil
}

func (r *Repository) GetVariant(ctx context.Context, id string) (*StoredVariant, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, COALESCE(session_id, ''), name, definition, created_at
        FROM variants
        WHERE id = ?
    `, id)

	var (
		v   StoredVariant
		def string
	)
	if err := row.Scan(&v.ID, &v.SessionID, &v.Name, &def, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("variant %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	v.Definition = &models.VariantDefinition{}
	if err := json.Unmarshal([]byte(def), v.Definition); err != nil {
		return nil, fmt.Errorf("decode variant %s: %w", id, err)
	}
	return &v, nil
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context) error {
	names, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name() < names[j].Name() })

	for _, entry := range names {
		data, err := migrations.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
