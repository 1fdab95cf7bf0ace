// Package models contains domain entities and business models for the lead pipeline
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/propertyshodh/lead-pipeline/utils"
	"gorm.io/gorm"
)

// Lead statuses. The lifecycle is not monotonic: any of the four statuses is
// reachable from any other, and closed leads may be reopened.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusClosed    = "closed"
)

// Lead priorities
const (
	LeadPriorityLow    = "low"
	LeadPriorityMedium = "medium"
	LeadPriorityHigh   = "high"
	LeadPriorityUrgent = "urgent"
)

// Lead source types (provenance)
const (
	LeadSourcePropertyInquiry = "property_inquiry"
	LeadSourceUserInquiry     = "user_inquiry"
	LeadSourceManual          = "manual"
	LeadSourceResearchReport  = "research_report"
	LeadSourceSavedActivity   = "saved_activity"
)

// LeadStatuses lists the four pipeline columns in display order.
var LeadStatuses = []string{LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusClosed}

// Lead represents a prospective-customer inquiry tracked through the
// follow-up pipeline.
// Table: leads
// Tags stored as TEXT[]
// AssignedAdminID is the single owner; NULL means the lead sits in the
// unassigned pool and is invisible to operator sessions.
type Lead struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	// Provenance. SourceID is a weak back-reference to the originating
	// record and implies no ownership.
	SourceType string  `gorm:"size:32;not null;index:idx_leads_source_type" json:"source_type"`
	SourceID   *string `gorm:"size:255" json:"source_id,omitempty"`

	// Contact facts
	Name  string  `gorm:"size:255;not null" json:"name"`
	Phone string  `gorm:"size:32;not null" json:"phone"`
	Email *string `gorm:"size:255" json:"email,omitempty"`

	// Context carried from provenance
	PropertyID    *string `gorm:"size:255" json:"property_id,omitempty"`
	PropertyTitle *string `gorm:"size:255" json:"property_title,omitempty"`
	City          *string `gorm:"size:128" json:"city,omitempty"`
	Location      *string `gorm:"size:255" json:"location,omitempty"`
	BudgetRange   *string `gorm:"size:128" json:"budget_range,omitempty"`
	PropertyType  *string `gorm:"size:128" json:"property_type,omitempty"`
	Purpose       *string `gorm:"size:128" json:"purpose,omitempty"`

	// Lifecycle
	Status   string         `gorm:"size:16;not null;default:'new';index:idx_leads_status" json:"status"`
	Priority string         `gorm:"size:16;not null;default:'medium'" json:"priority"`
	Tags     pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags"`

	// Ownership. At most one non-null owner at any time.
	AssignedAdminID *uint `gorm:"index:idx_leads_assigned_admin_id" json:"assigned_admin_id,omitempty"`

	// Scheduling
	NextFollowUpAt     *time.Time `gorm:"index:idx_leads_next_follow_up_at" json:"next_follow_up_at,omitempty"`
	LastContactedAt    *time.Time `json:"last_contacted_at,omitempty"`
	FollowUpNotifiedAt *time.Time `json:"follow_up_notified_at,omitempty"`

	// Legacy scratch field; audited history lives in lead_notes.
	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_leads_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	AssignedAdmin *Admin     `gorm:"foreignKey:AssignedAdminID;references:ID" json:"assigned_admin,omitempty"`
	LeadNotes     []LeadNote `gorm:"foreignKey:LeadID" json:"lead_notes,omitempty"`
}

func (Lead) TableName() string { return "leads" }

// BeforeCreate ensures UUID and timestamps are set
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// IsOwnedBy reports whether the lead is currently owned by the given operator.
func (l *Lead) IsOwnedBy(adminID uint) bool {
	return l.AssignedAdminID != nil && *l.AssignedAdminID == adminID
}

// IsValidLeadStatus checks a raw status value against the four pipeline columns.
func IsValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusClosed:
		return true
	}
	return false
}

// IsValidLeadPriority checks a raw priority value.
func IsValidLeadPriority(p string) bool {
	switch p {
	case LeadPriorityLow, LeadPriorityMedium, LeadPriorityHigh, LeadPriorityUrgent:
		return true
	}
	return false
}

// IsValidLeadSource checks a raw source type against the closed provenance set.
func IsValidLeadSource(s string) bool {
	switch s {
	case LeadSourcePropertyInquiry, LeadSourceUserInquiry, LeadSourceManual,
		LeadSourceResearchReport, LeadSourceSavedActivity:
		return true
	}
	return false
}

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	ID              *uint      `json:"id,omitempty"`
	UUID            *uuid.UUID `json:"uuid,omitempty"`
	SourceType      *string    `json:"source_type,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Priority        *string    `json:"priority,omitempty"`
	AssignedAdminID *uint      `json:"assigned_admin_id,omitempty"`
	Unassigned      *bool      `json:"unassigned,omitempty"`
	City            *string    `json:"city,omitempty"`
	FollowUpBefore  *time.Time `json:"follow_up_before,omitempty"`
	FollowUpPending *bool      `json:"follow_up_pending,omitempty"`
	CreatedAfter    *time.Time `json:"created_after,omitempty"`
	CreatedBefore   *time.Time `json:"created_before,omitempty"`
}
