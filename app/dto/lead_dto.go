package dto

import "time"

// LeadDTO is the wire representation of a lead as seen by its owner
type LeadDTO struct {
	ID              uint     `json:"id"`
	UUID            string   `json:"uuid"`
	SourceType      string   `json:"source_type"`
	SourceID        *string  `json:"source_id,omitempty"`
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	Email           *string  `json:"email,omitempty"`
	PropertyID      *string  `json:"property_id,omitempty"`
	PropertyTitle   *string  `json:"property_title,omitempty"`
	City            *string  `json:"city,omitempty"`
	Location        *string  `json:"location,omitempty"`
	BudgetRange     *string  `json:"budget_range,omitempty"`
	PropertyType    *string  `json:"property_type,omitempty"`
	Purpose         *string  `json:"purpose,omitempty"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority"`
	Tags            []string `json:"tags"`
	AssignedAdminID *uint    `json:"assigned_admin_id,omitempty"`
	NextFollowUpAt  *string  `json:"next_follow_up_at,omitempty"`
	LastContactedAt *string  `json:"last_contacted_at,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// LeadNoteDTO is the wire representation of an append-only note
type LeadNoteDTO struct {
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	LeadID    uint   `json:"lead_id"`
	AdminID   uint   `json:"admin_id"`
	Note      string `json:"note"`
	CreatedAt string `json:"created_at"`
}

// CreateLeadRequest carries data to register a new inquiry
type CreateLeadRequest struct {
	SourceType      string     `json:"source_type" validate:"required"`
	SourceID        *string    `json:"source_id,omitempty"`
	Name            string     `json:"name" validate:"required,min=1,max=255"`
	Phone           string     `json:"phone" validate:"required,min=7,max=32"`
	Email           *string    `json:"email,omitempty" validate:"omitempty,email"`
	PropertyID      *string    `json:"property_id,omitempty"`
	PropertyTitle   *string    `json:"property_title,omitempty"`
	City            *string    `json:"city,omitempty"`
	Location        *string    `json:"location,omitempty"`
	BudgetRange     *string    `json:"budget_range,omitempty"`
	PropertyType    *string    `json:"property_type,omitempty"`
	Purpose         *string    `json:"purpose,omitempty"`
	Priority        *string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Tags            []string   `json:"tags,omitempty"`
	NextFollowUpAt  *time.Time `json:"next_follow_up_at,omitempty"`
}

type CreateLeadResponse struct {
	Message string  `json:"message"`
	Lead    LeadDTO `json:"lead"`
}

// AssignLeadRequest hands a lead to an operator (or takes it away when
// AdminID is nil)
type AssignLeadRequest struct {
	AdminID *uint `json:"admin_id"`
}

// SetLeadStatusRequest moves a lead to another pipeline column
type SetLeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified closed"`
}

// AddLeadNoteRequest appends a note to an owned lead
type AddLeadNoteRequest struct {
	Note string `json:"note" validate:"required,min=1,max=500"`
}

// ListMyLeadsRequest filters the caller's own pipeline. Query is a
// case-insensitive substring match applied across the lead's text fields.
type ListMyLeadsRequest struct {
	Query    *string `json:"query,omitempty"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified closed"`
	Priority *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Page     uint    `json:"page,omitempty"`
	PageSize uint    `json:"page_size,omitempty"`
}

type ListMyLeadsResponse struct {
	Message string    `json:"message"`
	Leads   []LeadDTO `json:"leads"`
	Total   int64     `json:"total"`
}

type LeadResponse struct {
	Message string  `json:"message"`
	Lead    LeadDTO `json:"lead"`
}

type AddLeadNoteResponse struct {
	Message string      `json:"message"`
	Note    LeadNoteDTO `json:"note"`
}

type ListLeadNotesResponse struct {
	Message string        `json:"message"`
	Notes   []LeadNoteDTO `json:"notes"`
}

type UnassignLeadResponse struct {
	Message string `json:"message"`
	LeadID  uint   `json:"lead_id"`
}
