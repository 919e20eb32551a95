package models

import (
	"time"

	"github.com/google/uuid"
)

// Organisation represents a tenant. Membership is binary: a user is either a
// member or not; there are no roles within an organisation.
type Organisation struct {
	ID          uuid.UUID `json:"orgId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// OrganisationUser links a user to an organisation.
type OrganisationUser struct {
	OrganisationID uuid.UUID `json:"organisationId"`
	UserID         uuid.UUID `json:"userId"`
	CreatedAt      time.Time `json:"createdAt"`
}
