// Package businessflow contains the core business logic and use cases for the lead pipeline
package businessflow

import (
	"context"
	"log"

	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/repository"
	"github.com/propertyshodh/lead-pipeline/utils"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthFlow represents the operator authentication flow used by handlers
type AdminAuthFlow interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AdminSessionDTO, error)
	Logout(ctx context.Context, actor Actor, accessToken string, metadata *ClientMetadata) error
}

// AdminAuthFlowImpl provides operator credential verification
type AdminAuthFlowImpl struct {
	adminRepo    repository.AdminRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
}

func NewAdminAuthFlow(adminRepo repository.AdminRepository, auditRepo repository.AuditLogRepository, tokenService services.TokenService) AdminAuthFlow {
	return &AdminAuthFlowImpl{
		adminRepo:    adminRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
	}
}

// Login verifies credentials and issues a token pair whose claims carry the
// operator's stored role.
func (af *AdminAuthFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	// Validate request
	if req == nil || len(req.Username) == 0 || len(req.Password) == 0 {
		return nil, NewBusinessError("ADMIN_LOGIN_VALIDATION_FAILED", "Admin login validation failed", ErrIncorrectPassword)
	}

	// Lookup admin
	admin, err := af.adminRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if admin == nil {
		af.audit(ctx, nil, models.AuditActionAdminLoginFailed, false, "unknown username", metadata)
		return nil, NewBusinessError("ADMIN_NOT_FOUND", "Admin not found", ErrAdminNotFound)
	}
	if !utils.IsTrue(admin.IsActive) {
		af.audit(ctx, &admin.ID, models.AuditActionAdminLoginFailed, false, "account inactive", metadata)
		return nil, NewBusinessError("ADMIN_INACTIVE", "Admin account is inactive", ErrAccountInactive)
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		af.audit(ctx, &admin.ID, models.AuditActionAdminLoginFailed, false, "incorrect password", metadata)
		return nil, NewBusinessError("ADMIN_INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	// Generate admin tokens
	accessToken, refreshToken, err := af.tokenService.GenerateAdminTokens(admin.ID, admin.Role)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	if err := af.adminRepo.UpdateLastLogin(ctx, admin.ID, utils.UTCNow()); err != nil {
		log.Printf("failed to stamp last login for admin %d: %v", admin.ID, err)
	}
	af.audit(ctx, &admin.ID, models.AuditActionAdminLoginSuccess, true, "", metadata)

	return &dto.AdminLoginResponse{
		Admin:   ToAdminDTO(*admin),
		Session: ToAdminSessionDTO(accessToken, refreshToken),
	}, nil
}

// Refresh exchanges a refresh token for a new token pair
func (af *AdminAuthFlowImpl) Refresh(ctx context.Context, refreshToken string) (*dto.AdminSessionDTO, error) {
	access, refresh, err := af.tokenService.RefreshAdminToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Failed to refresh tokens", err)
	}
	session := ToAdminSessionDTO(access, refresh)
	return &session, nil
}

// Logout revokes the presented access token
func (af *AdminAuthFlowImpl) Logout(ctx context.Context, actor Actor, accessToken string, metadata *ClientMetadata) error {
	if err := af.tokenService.RevokeToken(accessToken); err != nil {
		return NewBusinessError("TOKEN_REVOKE_FAILED", "Failed to revoke token", err)
	}
	af.audit(ctx, &actor.ID, models.AuditActionAdminLogout, true, "", metadata)
	return nil
}

func (af *AdminAuthFlowImpl) audit(ctx context.Context, adminID *uint, action string, success bool, message string, metadata *ClientMetadata) {
	if af.auditRepo == nil {
		return
	}

	row := &models.AuditLog{
		AdminID: adminID,
		Action:  action,
		Success: &success,
	}
	if message != "" {
		row.Description = &message
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			row.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			row.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			row.RequestID = &metadata.RequestID
		}
	}

	if err := af.auditRepo.Save(ctx, row); err != nil {
		log.Printf("audit write failed for action %s: %v", action, err)
	}
}
