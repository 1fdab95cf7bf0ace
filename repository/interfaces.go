// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/propertyshodh/lead-pipeline/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LeadRepository defines operations for leads. ListOwned is the only read
// path the pipeline exposes to operator sessions: it always scopes the query
// to the given owner so cross-operator reads are structurally impossible.
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Lead, error)
	ListOwned(ctx context.Context, adminID uint, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error)
	UpdateStatus(ctx context.Context, leadID uint, status string, updatedAt time.Time) error
	UpdateAssignment(ctx context.Context, leadID uint, adminID *uint, updatedAt time.Time) error
	MarkFollowUpNotified(ctx context.Context, leadID uint, notifiedAt time.Time) error
	ListDueFollowUps(ctx context.Context, due time.Time, limit int) ([]*models.Lead, error)
}

// LeadNoteRepository defines operations for lead notes. Notes are append-only:
// there is deliberately no update or delete method.
type LeadNoteRepository interface {
	Repository[models.LeadNote, models.LeadNoteFilter]
	ListByLead(ctx context.Context, leadID uint) ([]*models.LeadNote, error)
}

// AdminRepository defines operations for operator accounts
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Admin, error)
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	ListByRoles(ctx context.Context, roles []string) ([]*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID uint, at time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAdmin(ctx context.Context, adminID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByLead(ctx context.Context, leadID uint, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	ListSecurityEvents(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
