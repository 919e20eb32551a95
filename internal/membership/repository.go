package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orbitlabs/accounts-backend/internal/models"
)

// Store owns Organisation records and the user-organisation relation. It
// references users by ID only. Single-row lookups return (nil, nil) when no
// row matches.
type Store interface {
	CreateWithMember(ctx context.Context, org *models.Organisation, memberID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organisation, error)
	GetForMember(ctx context.Context, orgID, userID uuid.UUID) (*models.Organisation, error)
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, orgID, userID uuid.UUID) error
	ShareOrganisation(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a membership repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithMember inserts the organisation and its first membership edge in
// one transaction.
func (r *Repository) CreateWithMember(ctx context.Context, org *models.Organisation, memberID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertOrg = `INSERT INTO organisations (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertOrg, org.Name, org.Description).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return fmt.Errorf("insert organisation: %w", err)
	}

	const insertEdge = `INSERT INTO organisation_users (organisation_id, user_id) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, insertEdge, org.ID, memberID); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return tx.Commit(ctx)
}

// ListForUser returns the organisations the user is a member of.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organisation, error) {
	const q = `SELECT o.id, o.name, o.description, o.created_at, o.updated_at
		FROM organisations o
		INNER JOIN organisation_users ou ON ou.organisation_id = o.id
		WHERE ou.user_id = $1
		ORDER BY o.created_at`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Organisation
	for rows.Next() {
		var o models.Organisation
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

// GetForMember returns the organisation only when userID is a member; the
// query itself is the enforcement point, so a missing organisation and a
// non-member look identical to the caller.
func (r *Repository) GetForMember(ctx context.Context, orgID, userID uuid.UUID) (*models.Organisation, error) {
	const q = `SELECT o.id, o.name, o.description, o.created_at, o.updated_at
		FROM organisations o
		INNER JOIN organisation_users ou ON ou.organisation_id = o.id
		WHERE o.id = $1 AND ou.user_id = $2`
	var o models.Organisation
	err := r.pool.QueryRow(ctx, q, orgID, userID).
		Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// IsMember reports whether the user is a member of the organisation.
func (r *Repository) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM organisation_users WHERE organisation_id = $1 AND user_id = $2
	)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, orgID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// AddMember inserts a membership edge. Adding an existing member is a no-op,
// so concurrent adds are safe.
func (r *Repository) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	const q = `INSERT INTO organisation_users (organisation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (organisation_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, orgID, userID)
	return err
}

// ShareOrganisation reports whether two users have at least one organisation
// in common. A user trivially shares with themself via their default org.
func (r *Repository) ShareOrganisation(ctx context.Context, a, b uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1
		FROM organisation_users x
		INNER JOIN organisation_users y ON y.organisation_id = x.organisation_id
		WHERE x.user_id = $1 AND y.user_id = $2
	)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, a, b).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
