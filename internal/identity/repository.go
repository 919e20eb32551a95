package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orbitlabs/accounts-backend/internal/apperr"
	"github.com/orbitlabs/accounts-backend/internal/models"
)

// Store owns User records. Lookups return (nil, nil) when no user matches.
type Store interface {
	// CreateWithDefaultOrganisation persists the user and their default
	// organisation as one atomic unit; if either insert fails neither is kept.
	CreateWithDefaultOrganisation(ctx context.Context, u *models.User, orgName string) (*models.Organisation, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an identity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithDefaultOrganisation inserts the user, the default organisation,
// and the membership edge in one transaction. A duplicate email surfaces as
// ConflictError from the unique index, so concurrent registrations with the
// same email cannot both commit.
func (r *Repository) CreateWithDefaultOrganisation(ctx context.Context, u *models.User, orgName string) (*models.Organisation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertUser = `INSERT INTO users (first_name, last_name, email, password_hash, phone)
		VALUES ($1, $2, $3, $4, NULLIF($5,''))
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, insertUser, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Phone).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, &apperr.ConflictError{Field: "email", Reason: "email already registered"}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	org := &models.Organisation{Name: orgName}
	const insertOrg = `INSERT INTO organisations (name, description)
		VALUES ($1, '')
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertOrg, orgName).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert default organisation: %w", err)
	}

	const insertEdge = `INSERT INTO organisation_users (organisation_id, user_id) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, insertEdge, org.ID, u.ID); err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return org, nil
}

// GetByEmail returns a user by normalized email, or (nil, nil) when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, first_name, last_name, email, password_hash, COALESCE(phone,''), created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(r.pool.QueryRow(ctx, q, email))
}

// GetByID returns a user by ID, or (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, first_name, last_name, email, password_hash, COALESCE(phone,''), created_at, updated_at
		FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, q, id))
}

func (r *Repository) scanOne(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
