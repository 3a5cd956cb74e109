package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/eventdesk/internal/model"
	"github.com/iliyamo/eventdesk/internal/utils"
)

type UserRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db, now: time.Now} }

// WithClock overrides the timestamp source.  Tests use it to get stable
// ordering.
func (r *UserRepo) WithClock(now func() time.Time) *UserRepo {
	r.now = now
	return r
}

// Create hashes password and inserts a new organizer.  The returned user
// carries the generated id.
func (r *UserRepo) Create(ctx context.Context, email, password, name, rollNumber string, cost int) (model.User, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	ts := stamp(r.now)
	u := model.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		RollNumber:   strings.TrimSpace(rollNumber),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, name, roll_number, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.Name, u.RollNumber, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return u, nil
}

const userColumns = "id,email,password_hash,name,roll_number,created_at,updated_at"

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.RollNumber, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// stamp returns now() in UTC truncated to the microsecond precision of
// DATETIME(6) so values read back compare equal to what was written.
func stamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}
