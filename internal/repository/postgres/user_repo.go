package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/maru-site/internal/errs"
	"github.com/and161185/maru-site/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, email, pwd_hash, salt, is_active, is_logged_in,
failed_login_attempts, last_login_attempt, last_active_at, ip_address, created_at, updated_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, pwd_hash, salt, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.Username, u.Email, u.PwdHash, u.Salt, u.IsActive).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.Wrap(errs.KindAlreadyExists, "username or email already registered", err)
	}
	return err
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.Pool.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PwdHash, &u.Salt, &u.IsActive, &u.IsLoggedIn,
		&u.FailedLoginAttempts, &u.LastLoginAttempt, &u.LastActiveAt, &u.IPAddress, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

// Update writes the login and session state of u in a single statement.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users
SET is_active=$2, is_logged_in=$3, failed_login_attempts=$4,
    last_login_attempt=$5, last_active_at=$6, updated_at=now()
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, u.ID, u.IsActive, u.IsLoggedIn, u.FailedLoginAttempts, u.LastLoginAttempt, u.LastActiveAt)
	if err != nil {
		return err
	}
	return requireRow(tag, "user")
}

// RecordFailure increments the failure counter in one statement, so parallel
// failed logins each count. The SET expressions see the pre-update row.
func (r *UserRepo) RecordFailure(ctx context.Context, id uuid.UUID, at time.Time) (int, bool, error) {
	const q = `
UPDATE users
SET failed_login_attempts = failed_login_attempts + 1,
    is_active = is_active AND failed_login_attempts + 1 < $3,
    last_login_attempt = $2, updated_at = now()
WHERE id = $1
RETURNING failed_login_attempts, is_active`
	var (
		attempts int
		active   bool
	)
	err := r.db.Pool.QueryRow(ctx, q, id, at, model.MaxFailedLogins).Scan(&attempts, &active)
	if err != nil {
		return 0, false, notFound(err, "user")
	}
	return attempts, active, nil
}

// RecordLogin starts a session on an active account.
func (r *UserRepo) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const q = `
UPDATE users
SET failed_login_attempts = 0, is_logged_in = TRUE,
    last_login_attempt = $2, last_active_at = $2, updated_at = now()
WHERE id = $1 AND is_active
RETURNING id`
	var got uuid.UUID
	err := r.db.Pool.QueryRow(ctx, q, id, at).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// TouchActivity stamps last_active_at only.
func (r *UserRepo) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET last_active_at=$2 WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	return requireRow(tag, "user")
}

// SetLoggedIn writes is_logged_in only.
func (r *UserRepo) SetLoggedIn(ctx context.Context, id uuid.UUID, loggedIn bool) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET is_logged_in=$2 WHERE id=$1`, id, loggedIn)
	if err != nil {
		return err
	}
	return requireRow(tag, "user")
}

// SetIPAddress stores the last known address of a user.
func (r *UserRepo) SetIPAddress(ctx context.Context, id uuid.UUID, ip string) error {
	const q = `UPDATE users SET ip_address=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, ip)
	if err != nil {
		return err
	}
	return requireRow(tag, "user")
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(tag, "user")
}
