// Package migrate applies the panel schema. Migration files are
// embedded, so the binary carries everything it needs.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"opspanel.org/internal/ids"
	"opspanel.org/internal/rbac"
	"opspanel.org/internal/store"
)

//go:embed sql/*.sql
var embedded embed.FS

const historyTable = "schema_migrations"

// Runner applies and rolls back the embedded migrations, recording
// history in schema_migrations.
type Runner struct {
	db   *sql.DB
	fsys fs.FS
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, fsys: embedded}
}

// Up applies all pending migrations in name order and returns the
// names it applied.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	if err := r.ensureHistory(ctx); err != nil {
		return nil, err
	}
	done, err := r.appliedSet(ctx)
	if err != nil {
		return nil, err
	}
	names, err := r.upFiles()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range names {
		if done[name] {
			continue
		}
		if err := r.execFile(ctx, "sql/"+name); err != nil {
			return applied, fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx,
			`insert into `+historyTable+`(name, applied_at) values ($1, $2)`,
			name, time.Now().UTC()); err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}
	return applied, nil
}

// Down rolls back the most recently applied migration and returns its
// name.
func (r *Runner) Down(ctx context.Context) (string, error) {
	if err := r.ensureHistory(ctx); err != nil {
		return "", err
	}
	history, err := r.Applied(ctx)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", errors.New("no migrations applied")
	}
	last := history[len(history)-1]
	down := strings.TrimSuffix(last, ".up.sql") + ".down.sql"
	if _, err := fs.Stat(r.fsys, "sql/"+down); err != nil {
		return "", fmt.Errorf("missing down migration for %s", last)
	}
	if err := r.execFile(ctx, "sql/"+down); err != nil {
		return "", fmt.Errorf("rollback %s: %w", last, err)
	}
	if _, err := r.db.ExecContext(ctx,
		`delete from `+historyTable+` where name = $1`, last); err != nil {
		return "", err
	}
	return last, nil
}

// Applied returns applied migrations in application order.
func (r *Runner) Applied(ctx context.Context) ([]string, error) {
	if err := r.ensureHistory(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`select name from `+historyTable+` order by applied_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		history = append(history, name)
	}
	return history, rows.Err()
}

// SeedAdmin creates the initial admin account if no user with the
// given email exists. Idempotent, intended for first deploys.
func (r *Runner) SeedAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return errors.New("admin email and password are required")
	}
	hash, err := store.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, role, status)
		 values ($1, $2, $3, $4, $5, $6)
		 on conflict (email) do nothing`,
		ids.New(), "Administrator", email, hash, string(rbac.RoleAdmin), store.UserStatusActive)
	return err
}

func (r *Runner) ensureHistory(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		create table if not exists `+historyTable+` (
			name text primary key,
			applied_at timestamptz not null default now()
		)`)
	return err
}

func (r *Runner) appliedSet(ctx context.Context) (map[string]bool, error) {
	history, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(history))
	for _, name := range history {
		set[name] = true
	}
	return set, nil
}

func (r *Runner) upFiles() ([]string, error) {
	entries, err := fs.Glob(r.fsys, "sql/*.up.sql")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimPrefix(e, "sql/"))
	}
	sort.Strings(names)
	return names, nil
}

// execFile runs every statement of one migration inside a transaction.
// pgx's extended protocol takes one statement per Exec, hence the
// split.
func (r *Runner) execFile(ctx context.Context, path string) error {
	raw, err := fs.ReadFile(r.fsys, path)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
