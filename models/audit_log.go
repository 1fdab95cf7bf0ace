package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AdminID      *uint           `gorm:"index:idx_audit_admin_id" json:"admin_id,omitempty"`
	Admin        *Admin          `gorm:"foreignKey:AdminID;references:ID" json:"admin,omitempty"`
	LeadID       *uint           `gorm:"index:idx_audit_lead_id" json:"lead_id,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionAdminLoginSuccess   = "admin_login_success"
	AuditActionAdminLoginFailed    = "admin_login_failed"
	AuditActionAdminLogout         = "admin_logout"
	AuditActionAdminCreated        = "admin_created"
	AuditActionAdminUpdated        = "admin_updated"
	AuditActionAdminDeactivated    = "admin_deactivated"
	AuditActionLeadCreated         = "lead_created"
	AuditActionLeadAssigned        = "lead_assigned"
	AuditActionLeadUnassigned      = "lead_unassigned"
	AuditActionLeadStatusChanged   = "lead_status_changed"
	AuditActionLeadNoteAdded       = "lead_note_added"
	AuditActionLeadExported        = "lead_exported"
	AuditActionFollowUpNotified    = "follow_up_notified"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	AdminID       *uint
	LeadID        *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsSecurityEvent() bool {
	securityActions := map[string]bool{
		AuditActionAdminLoginSuccess: true,
		AuditActionAdminLoginFailed:  true,
		AuditActionAdminCreated:      true,
		AuditActionAdminUpdated:      true,
		AuditActionAdminDeactivated:  true,
	}
	return securityActions[a.Action]
}
