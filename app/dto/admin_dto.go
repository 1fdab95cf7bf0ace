// Package dto
package dto

type AdminDTO struct {
	ID          uint    `json:"id" example:"1"`
	UUID        string  `json:"uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	Username    string  `json:"username" example:"admin"`
	Role        string  `json:"role" example:"superadmin"`
	Phone       *string `json:"phone,omitempty" example:"+919812345678"`
	IsActive    *bool   `json:"is_active" example:"true"`
	CreatedAt   string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	LastLoginAt *string `json:"last_login_at,omitempty" example:"2024-01-15T10:30:00Z"`
}

type AdminSessionDTO struct {
	AccessToken  string `json:"access_token" example:"jwt"`
	RefreshToken string `json:"refresh_token" example:"jwt"`
	ExpiresIn    int    `json:"expires_in" example:"3600"`
	TokenType    string `json:"token_type" example:"Bearer"`
	CreatedAt    string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type AdminLoginResponse struct {
	Admin   AdminDTO        `json:"admin"`
	Session AdminSessionDTO `json:"session"`
}

// RefreshTokenRequest exchanges a refresh token for a new session
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CreateAdminRequest carries data to create a new operator account.
// Role must be one of admin, superadmin, super_super_admin; the creator's
// own tier decides which of those are actually permitted.
type CreateAdminRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=100"`
	Role     string  `json:"role" validate:"required,oneof=admin superadmin super_super_admin"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
}

type CreateAdminResponse struct {
	Message string   `json:"message"`
	Admin   AdminDTO `json:"admin"`
}

// UpdateAdminRequest updates mutable fields of an operator account.
// Nil fields are left untouched.
type UpdateAdminRequest struct {
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=100"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin superadmin super_super_admin"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type ListAdminsRequest struct {
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Page     uint    `json:"page,omitempty"`
	PageSize uint    `json:"page_size,omitempty"`
}

type ListAdminsResponse struct {
	Message string     `json:"message"`
	Admins  []AdminDTO `json:"admins"`
	Total   int64      `json:"total"`
}
