// Package models contains domain entities and business models for the lead pipeline
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin is an operator account in the back-office. Role is one of the three
// hierarchy tiers defined in the authz package; the raw column value is
// validated at the auth boundary, never deep in business logic.
type Admin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_admins_uuid;index:idx_admins_uuid" json:"uuid"`
	Username     string    `gorm:"size:255;not null;uniqueIndex:uk_admins_username;index:idx_admins_username" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;not null;default:'admin';index:idx_admins_role" json:"role"`
	Phone        *string   `gorm:"size:32" json:"phone,omitempty"`

	IsActive    *bool      `gorm:"default:true;index:idx_admins_is_active" json:"is_active"`
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_admins_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_admins_last_login_at" json:"last_login_at,omitempty"`
}

func (Admin) TableName() string {
	return "admins"
}

// BeforeCreate ensures UUID is set
func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	return nil
}

// AdminFilter represents filter criteria for admin queries
type AdminFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	Username        *string
	Role            *string
	IsActive        *bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	LastLoginAfter  *time.Time
	LastLoginBefore *time.Time
}
