package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"opspanel.org/internal/ids"
	"opspanel.org/internal/rbac"
)

var _ UserStore = (*PGUserStore)(nil)

// PGUserStore implements UserStore using PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

const userColumns = `id, name, email, password_hash, role, profile_photo, email_verified, status, created_at, updated_at`

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, role, profile_photo, status) values($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.ProfilePhoto, u.Status,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate") {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGUserStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *PGUserStore) List(ctx context.Context, q ListQuery) ([]*User, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}
	offset := (q.Page - 1) * q.Limit

	var (
		where string
		args  []any
	)
	if search := strings.TrimSpace(q.Search); search != "" {
		where = ` where name ilike $1 or email ilike $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `select ` + userColumns + ` from users` + where +
		fmt.Sprintf(` order by created_at desc limit $%d offset $%d`, len(args)+1, len(args)+2)
	args = append(args, q.Limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (s *PGUserStore) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Name != nil {
		add("name", strings.TrimSpace(*upd.Name))
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		add("email", email)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.Status != nil {
		status := strings.TrimSpace(strings.ToLower(*upd.Status))
		if status != UserStatusActive && status != UserStatusDisabled {
			return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
		}
		add("status", status)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return nil, err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *PGUserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u            User
		role         string
		profilePhoto sql.NullString
		verified     sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &profilePhoto, &verified, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = rbac.NormalizeRole(role)
	if profilePhoto.Valid {
		u.ProfilePhoto = profilePhoto.String
	}
	if verified.Valid {
		t := verified.Time
		u.EmailVerified = &t
	}
	return &u, nil
}
