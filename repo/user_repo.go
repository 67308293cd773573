package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Skryldev/userservice/db"
	"github.com/Skryldev/userservice/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// UserRepository interface
// ─────────────────────────────────────────────────────────────────────────────

// UserRepository defines the contract for user persistence operations.
// Every "no such row" outcome is reported as db.ErrNotFound.
type UserRepository interface {
	Insert(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, params models.UpdateUserParams) (*models.User, error)
	Delete(ctx context.Context, id int64) (*models.User, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// userRepo
// ─────────────────────────────────────────────────────────────────────────────

type userRepo struct {
	q   db.Querier
	now func() time.Time
}

// NewUserRepo returns a UserRepository backed by q.
// q can be a *db.DB or *db.Tx; both satisfy db.Querier.
func NewUserRepo(q db.Querier) UserRepository {
	return &userRepo{q: q, now: func() time.Time { return time.Now().UTC() }}
}

// ─────────────────────────────────────────────────────────────────────────────
// SQL constants. Placeholders are '?' and rebound per dialect.
// ─────────────────────────────────────────────────────────────────────────────

const userColumns = `id, email, first_name, last_name, social, created_at, updated_at`

const (
	sqlInsertUser = `
		INSERT INTO users (email, first_name, last_name, social, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	sqlGetUserByID = `
		SELECT ` + userColumns + `
		FROM   users
		WHERE  id = ?`

	sqlListUsers = `
		SELECT ` + userColumns + `
		FROM   users
		ORDER  BY id`

	sqlDeleteUser = `
		DELETE FROM users WHERE id = ?`
)

func (r *userRepo) bind(q db.Querier, query string) string {
	return q.Dialect().Rebind(query)
}

// ─────────────────────────────────────────────────────────────────────────────
// Insert
// ─────────────────────────────────────────────────────────────────────────────

// Insert creates a new user and returns the persisted record including the
// database-assigned id and timestamps.
func (r *userRepo) Insert(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	now := r.now()
	args := []any{params.Email, params.FirstName, params.LastName, params.Social, now, now}

	if r.q.Dialect().Returning {
		var id int64
		err := r.q.QueryRow(ctx, r.bind(r.q, sqlInsertUser+` RETURNING id`), args...).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("repo/user: insert: %w", err)
		}
		return r.GetByID(ctx, id)
	}

	var created *models.User
	err := db.InTx(ctx, r.q, func(q db.Querier) error {
		res, err := q.Exec(ctx, r.bind(q, sqlInsertUser), args...)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		created, err = getByID(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("repo/user: insert: %w", err)
	}
	return created, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// List
// ─────────────────────────────────────────────────────────────────────────────

// List returns every user ordered by id. The result is never nil.
func (r *userRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.q.Query(ctx, r.bind(r.q, sqlListUsers))
	if err != nil {
		return nil, fmt.Errorf("repo/user: list: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo/user: list: %w", err)
	}
	return users, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a single user by primary key.
// Returns db.ErrNotFound when no record matches.
func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return getByID(ctx, r.q, id)
}

func getByID(ctx context.Context, q db.Querier, id int64) (*models.User, error) {
	return scanUser(q.QueryRow(ctx, q.Dialect().Rebind(sqlGetUserByID), id))
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

// Update applies a partial update. Only non-nil fields in params are written;
// Social replaces the stored document as a whole. An empty patch returns the
// current record unchanged. The existence check, the write and the re-read
// share one transaction.
func (r *userRepo) Update(ctx context.Context, params models.UpdateUserParams) (*models.User, error) {
	if params.Empty() {
		return r.GetByID(ctx, params.ID)
	}

	setClauses := make([]string, 0, 5)
	args := make([]any, 0, 6)

	if params.Email != nil {
		setClauses = append(setClauses, "email = ?")
		args = append(args, *params.Email)
	}
	if params.FirstName != nil {
		setClauses = append(setClauses, "first_name = ?")
		args = append(args, *params.FirstName)
	}
	if params.LastName != nil {
		setClauses = append(setClauses, "last_name = ?")
		args = append(args, *params.LastName)
	}
	if params.Social != nil {
		setClauses = append(setClauses, "social = ?")
		args = append(args, params.Social)
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, r.now(), params.ID)

	query := fmt.Sprintf(`
		UPDATE users
		SET    %s
		WHERE  id = ?`, strings.Join(setClauses, ", "))

	var updated *models.User
	err := db.InTx(ctx, r.q, func(q db.Querier) error {
		if _, err := getByID(ctx, q, params.ID); err != nil {
			return err
		}
		if _, err := q.Exec(ctx, r.bind(q, query), args...); err != nil {
			return err
		}
		var err error
		updated, err = getByID(ctx, q, params.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("repo/user: update: %w", err)
	}
	return updated, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────────────────

// Delete removes a user by id and returns the row as it was before removal.
// Returns db.ErrNotFound if no row matched.
func (r *userRepo) Delete(ctx context.Context, id int64) (*models.User, error) {
	var deleted *models.User
	err := db.InTx(ctx, r.q, func(q db.Querier) error {
		u, err := getByID(ctx, q, id)
		if err != nil {
			return err
		}
		res, err := q.Exec(ctx, r.bind(q, sqlDeleteUser), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return db.NotFound(fmt.Sprintf("user %d", id))
		}
		deleted = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repo/user: delete: %w", err)
	}
	return deleted, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// scanUser: centralised column mapping
// ─────────────────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

// scanUser scans a single user row from a *db.Row or *sql.Rows. Adding or
// removing columns only requires a change here and in userColumns.
func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Social, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("repo/user: scan: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

var (
	_ UserRepository = (*userRepo)(nil)
	_ scanner        = (*db.Row)(nil)
	_ scanner        = (*sql.Rows)(nil)
)
