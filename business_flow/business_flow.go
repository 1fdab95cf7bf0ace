// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/authz"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/utils"
)

const RequestIDKey = "X-Request-ID"

// Actor identifies the authenticated operator performing an operation.
// Role is resolved from the stored account row, not from request input.
type Actor struct {
	ID   uint
	Role authz.Role
}

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToAdminDTO converts an operator model for API responses
func ToAdminDTO(admin models.Admin) dto.AdminDTO {
	d := dto.AdminDTO{
		ID:        admin.ID,
		UUID:      admin.UUID.String(),
		Username:  admin.Username,
		Role:      admin.Role,
		Phone:     admin.Phone,
		IsActive:  admin.IsActive,
		CreatedAt: admin.CreatedAt.Format(time.RFC3339),
	}
	if admin.LastLoginAt != nil {
		d.LastLoginAt = utils.ToPtr(admin.LastLoginAt.Format(time.RFC3339))
	}
	return d
}

// ToAdminSessionDTO builds the session payload returned on login and refresh
func ToAdminSessionDTO(accessToken, refreshToken string) dto.AdminSessionDTO {
	return dto.AdminSessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    utils.AccessTokenTTLSeconds,
		TokenType:    "Bearer",
		CreatedAt:    utils.UTCNow().Format(time.RFC3339),
	}
}

// ToLeadDTO converts a lead model for API responses
func ToLeadDTO(lead models.Lead) dto.LeadDTO {
	d := dto.LeadDTO{
		ID:              lead.ID,
		UUID:            lead.UUID.String(),
		SourceType:      lead.SourceType,
		SourceID:        lead.SourceID,
		Name:            lead.Name,
		Phone:           lead.Phone,
		Email:           lead.Email,
		PropertyID:      lead.PropertyID,
		PropertyTitle:   lead.PropertyTitle,
		City:            lead.City,
		Location:        lead.Location,
		BudgetRange:     lead.BudgetRange,
		PropertyType:    lead.PropertyType,
		Purpose:         lead.Purpose,
		Status:          lead.Status,
		Priority:        lead.Priority,
		Tags:            lead.Tags,
		AssignedAdminID: lead.AssignedAdminID,
		CreatedAt:       lead.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       lead.UpdatedAt.Format(time.RFC3339),
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if lead.NextFollowUpAt != nil {
		d.NextFollowUpAt = utils.ToPtr(lead.NextFollowUpAt.Format(time.RFC3339))
	}
	if lead.LastContactedAt != nil {
		d.LastContactedAt = utils.ToPtr(lead.LastContactedAt.Format(time.RFC3339))
	}
	return d
}

// ToLeadDTOs converts a slice of lead models
func ToLeadDTOs(leads []*models.Lead) []dto.LeadDTO {
	out := make([]dto.LeadDTO, 0, len(leads))
	for _, l := range leads {
		out = append(out, ToLeadDTO(*l))
	}
	return out
}

// ToLeadNoteDTO converts a note model for API responses
func ToLeadNoteDTO(note models.LeadNote) dto.LeadNoteDTO {
	return dto.LeadNoteDTO{
		ID:        note.ID,
		UUID:      note.UUID.String(),
		LeadID:    note.LeadID,
		AdminID:   note.AdminID,
		Note:      note.Note,
		CreatedAt: note.CreatedAt.Format(time.RFC3339),
	}
}
