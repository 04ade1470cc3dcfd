package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TenantRole string

const (
	RoleOwner  TenantRole = "owner"
	RoleAdmin  TenantRole = "admin"
	RoleMember TenantRole = "member"
)

// Valid reports whether the role is one of the known tenant roles.
func (r TenantRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// Membership links a user to a tenant with a role. A user may belong to any
// number of tenants; every tenant-scoped operation requires one.
type Membership struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	Role      TenantRole `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error

	// Get returns the membership of userID in tenantID, or ErrNotFound.
	Get(ctx context.Context, userID, tenantID uuid.UUID) (*Membership, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Membership, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
