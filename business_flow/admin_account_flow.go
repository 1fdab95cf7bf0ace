// Package businessflow contains the core business logic and use cases for the lead pipeline
package businessflow

import (
	"context"
	"encoding/json"
	"log"

	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/authz"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/repository"
	"github.com/propertyshodh/lead-pipeline/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminAccountFlow manages operator accounts under the three-tier hierarchy.
// All tier checks go through the authz package; the acting operator's role is
// taken from the Actor value, never from request input.
type AdminAccountFlow interface {
	CreateAdmin(ctx context.Context, actor Actor, req *dto.CreateAdminRequest, metadata *ClientMetadata) (*dto.CreateAdminResponse, error)
	UpdateAdmin(ctx context.Context, actor Actor, adminID uint, req *dto.UpdateAdminRequest, metadata *ClientMetadata) (*dto.AdminDTO, error)
	DeactivateAdmin(ctx context.Context, actor Actor, adminID uint, metadata *ClientMetadata) error
	ListAdmins(ctx context.Context, actor Actor, req *dto.ListAdminsRequest) (*dto.ListAdminsResponse, error)
}

// AdminAccountFlowImpl implements AdminAccountFlow
type AdminAccountFlowImpl struct {
	adminRepo repository.AdminRepository
	auditRepo repository.AuditLogRepository
	db        *gorm.DB
}

// NewAdminAccountFlow creates a new admin account flow instance
func NewAdminAccountFlow(adminRepo repository.AdminRepository, auditRepo repository.AuditLogRepository, db *gorm.DB) AdminAccountFlow {
	return &AdminAccountFlowImpl{
		adminRepo: adminRepo,
		auditRepo: auditRepo,
		db:        db,
	}
}

// CreateAdmin creates an operator account at a tier the actor may create
func (f *AdminAccountFlowImpl) CreateAdmin(ctx context.Context, actor Actor, req *dto.CreateAdminRequest, metadata *ClientMetadata) (*dto.CreateAdminResponse, error) {
	if req == nil {
		return nil, NewBusinessError("ADMIN_VALIDATION_FAILED", "Request payload is required", ErrInvalidRole)
	}

	targetRole, ok := authz.ParseRole(req.Role)
	if !ok {
		return nil, NewBusinessError("INVALID_ROLE", "Invalid role", ErrInvalidRole)
	}
	if !authz.CanCreateRole(actor.Role, targetRole) {
		f.recordAudit(ctx, actor, models.AuditActionAdminCreated, false, "tier cannot create "+string(targetRole), metadata)
		return nil, NewBusinessError("ROLE_NOT_CREATABLE", "Insufficient tier to create this role", ErrRoleNotCreatable)
	}

	existing, err := f.adminRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup username", err)
	}
	if existing != nil {
		return nil, NewBusinessError("USERNAME_TAKEN", "Username already exists", ErrUsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_HASH_FAILED", "Failed to hash password", err)
	}

	admin := &models.Admin{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         string(targetRole),
		Phone:        req.Phone,
		IsActive:     utils.ToPtr(true),
	}
	if err := f.adminRepo.Save(ctx, admin); err != nil {
		f.recordAudit(ctx, actor, models.AuditActionAdminCreated, false, err.Error(), metadata)
		return nil, NewBusinessError("ADMIN_CREATE_FAILED", "Failed to create admin", err)
	}

	f.recordAudit(ctx, actor, models.AuditActionAdminCreated, true, "created "+admin.Username, metadata)

	return &dto.CreateAdminResponse{
		Message: "Admin created successfully",
		Admin:   ToAdminDTO(*admin),
	}, nil
}

// UpdateAdmin mutates an account the actor's tier may manage. A role change
// additionally requires the actor to be able to create the new role.
func (f *AdminAccountFlowImpl) UpdateAdmin(ctx context.Context, actor Actor, adminID uint, req *dto.UpdateAdminRequest, metadata *ClientMetadata) (*dto.AdminDTO, error) {
	if req == nil {
		return nil, NewBusinessError("ADMIN_VALIDATION_FAILED", "Request payload is required", ErrInvalidRole)
	}

	var updated *models.Admin
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		admin, err := f.adminRepo.ByID(txCtx, adminID)
		if err != nil {
			return err
		}
		if admin == nil {
			return ErrAdminNotFound
		}

		currentRole, ok := authz.ParseRole(admin.Role)
		if !ok || !authz.CanManageRole(actor.Role, currentRole) {
			return ErrRoleNotManageable
		}

		if req.Role != nil {
			newRole, ok := authz.ParseRole(*req.Role)
			if !ok {
				return ErrInvalidRole
			}
			if !authz.CanCreateRole(actor.Role, newRole) {
				return ErrRoleNotCreatable
			}
			admin.Role = string(newRole)
		}
		if req.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			admin.PasswordHash = string(hash)
		}
		if req.Phone != nil {
			admin.Phone = req.Phone
		}
		if req.IsActive != nil {
			if !*req.IsActive && admin.ID == actor.ID {
				return ErrCannotModifySelf
			}
			admin.IsActive = req.IsActive
		}
		admin.UpdatedAt = utils.UTCNow()

		if err := f.adminRepo.Save(txCtx, admin); err != nil {
			return err
		}
		updated = admin
		return nil
	})
	if err != nil {
		f.recordAudit(ctx, actor, models.AuditActionAdminUpdated, false, err.Error(), metadata)
		return nil, wrapAccountError(err)
	}

	f.recordAudit(ctx, actor, models.AuditActionAdminUpdated, true, "updated "+updated.Username, metadata)

	d := ToAdminDTO(*updated)
	return &d, nil
}

// DeactivateAdmin disables an account the actor's tier may manage
func (f *AdminAccountFlowImpl) DeactivateAdmin(ctx context.Context, actor Actor, adminID uint, metadata *ClientMetadata) error {
	if adminID == actor.ID {
		return NewBusinessError("CANNOT_MODIFY_SELF", "Operators cannot deactivate their own account", ErrCannotModifySelf)
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		admin, err := f.adminRepo.ByID(txCtx, adminID)
		if err != nil {
			return err
		}
		if admin == nil {
			return ErrAdminNotFound
		}

		targetRole, ok := authz.ParseRole(admin.Role)
		if !ok || !authz.CanManageRole(actor.Role, targetRole) {
			return ErrRoleNotManageable
		}

		admin.IsActive = utils.ToPtr(false)
		admin.UpdatedAt = utils.UTCNow()
		return f.adminRepo.Save(txCtx, admin)
	})
	if err != nil {
		f.recordAudit(ctx, actor, models.AuditActionAdminDeactivated, false, err.Error(), metadata)
		return wrapAccountError(err)
	}

	f.recordAudit(ctx, actor, models.AuditActionAdminDeactivated, true, "", metadata)
	return nil
}

// ListAdmins returns accounts at tiers the actor may view. The view predicate
// is inclusive: an operator sees its own tier and everything below.
func (f *AdminAccountFlowImpl) ListAdmins(ctx context.Context, actor Actor, req *dto.ListAdminsRequest) (*dto.ListAdminsResponse, error) {
	if req == nil {
		req = &dto.ListAdminsRequest{}
	}

	page := req.Page
	if page == 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = utils.DefaultPageSize
	}
	if pageSize > utils.MaxPageSize {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Page size out of range", ErrInvalidPageSize)
	}

	filter := models.AdminFilter{IsActive: req.IsActive}
	if req.Role != nil {
		role, ok := authz.ParseRole(*req.Role)
		if !ok {
			return nil, NewBusinessError("INVALID_ROLE", "Invalid role", ErrInvalidRole)
		}
		if !authz.CanViewRole(actor.Role, role) {
			return nil, NewBusinessError("ROLE_NOT_VIEWABLE", "Insufficient tier to view this role", ErrRoleNotManageable)
		}
		filter.Role = utils.ToPtr(string(role))
	}

	admins, err := f.adminRepo.ByFilter(ctx, filter, "id ASC", int(pageSize), int((page-1)*pageSize))
	if err != nil {
		return nil, NewBusinessError("ADMIN_LIST_FAILED", "Failed to list admins", err)
	}

	items := make([]dto.AdminDTO, 0, len(admins))
	for _, a := range admins {
		role, ok := authz.ParseRole(a.Role)
		if !ok || !authz.CanViewRole(actor.Role, role) {
			continue
		}
		items = append(items, ToAdminDTO(*a))
	}

	return &dto.ListAdminsResponse{
		Message: "Admins retrieved successfully",
		Admins:  items,
		Total:   int64(len(items)),
	}, nil
}

func wrapAccountError(err error) error {
	switch {
	case IsAdminNotFound(err):
		return NewBusinessError("ADMIN_NOT_FOUND", "Admin not found", err)
	case IsRoleNotManageable(err):
		return NewBusinessError("ROLE_NOT_MANAGEABLE", "Insufficient tier to manage this account", err)
	case IsRoleNotCreatable(err):
		return NewBusinessError("ROLE_NOT_CREATABLE", "Insufficient tier to create this role", err)
	case IsInvalidRole(err):
		return NewBusinessError("INVALID_ROLE", "Invalid role", err)
	case IsCannotModifySelf(err):
		return NewBusinessError("CANNOT_MODIFY_SELF", "Operators cannot deactivate their own account", err)
	default:
		return NewBusinessError("ADMIN_UPDATE_FAILED", "Failed to update admin", err)
	}
}

func (f *AdminAccountFlowImpl) recordAudit(ctx context.Context, actor Actor, action string, success bool, message string, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}

	row := &models.AuditLog{
		AdminID: &actor.ID,
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
		if meta, err := json.Marshal(metadata); err == nil {
			row.Metadata = meta
		}
	}

	if err := f.auditRepo.Save(ctx, row); err != nil {
		log.Printf("audit write failed for action %s: %v", action, err)
	}
}
