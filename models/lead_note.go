package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/propertyshodh/lead-pipeline/utils"
	"gorm.io/gorm"
)

// Note length bounds enforced by the pipeline engine.
const (
	LeadNoteMinLen = 1
	LeadNoteMaxLen = 500
)

// LeadNote is an append-only audit entry attached to a lead. Notes are
// immutable once created: no update or delete path exists anywhere in the
// repository or flows.
// Table: lead_notes
type LeadNote struct {
	ID      uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	LeadID  uint      `gorm:"not null;index:idx_lead_notes_lead_id" json:"lead_id"`
	AdminID uint      `gorm:"not null;index:idx_lead_notes_admin_id" json:"admin_id"`
	Note    string    `gorm:"type:varchar(500);not null" json:"note"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	// Relations
	Lead  *Lead  `gorm:"foreignKey:LeadID;references:ID;constraint:OnDelete:CASCADE" json:"lead,omitempty"`
	Admin *Admin `gorm:"foreignKey:AdminID;references:ID" json:"admin,omitempty"`
}

func (LeadNote) TableName() string { return "lead_notes" }

// BeforeCreate ensures UUID and created_at are set
func (n *LeadNote) BeforeCreate(tx *gorm.DB) error {
	if n.UUID == uuid.Nil {
		n.UUID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = utils.UTCNow()
	}
	return nil
}

// LeadNoteFilter represents filter criteria for lead note queries
type LeadNoteFilter struct {
	ID            *uint      `json:"id,omitempty"`
	LeadID        *uint      `json:"lead_id,omitempty"`
	AdminID       *uint      `json:"admin_id,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
