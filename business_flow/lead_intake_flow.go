// Package businessflow contains the core business logic and use cases for the lead pipeline
package businessflow

import (
	"context"
	"encoding/json"
	"log"

	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/authz"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/repository"
	"github.com/propertyshodh/lead-pipeline/utils"
	"gorm.io/gorm"
)

// LeadIntakeFlow registers inquiries arriving from the marketplace surfaces
// and distributes them to operators. Creation and distribution are separate
// steps: a freshly created lead always lands in the unassigned pool.
type LeadIntakeFlow interface {
	CreateLead(ctx context.Context, actor Actor, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.CreateLeadResponse, error)
	AssignLead(ctx context.Context, actor Actor, leadID uint, req *dto.AssignLeadRequest, metadata *ClientMetadata) (*dto.LeadResponse, error)
}

// LeadIntakeFlowImpl implements LeadIntakeFlow
type LeadIntakeFlowImpl struct {
	leadRepo  repository.LeadRepository
	adminRepo repository.AdminRepository
	auditRepo repository.AuditLogRepository
	changeBus services.ChangeBus
	db        *gorm.DB
}

// NewLeadIntakeFlow creates a new lead intake flow instance
func NewLeadIntakeFlow(
	leadRepo repository.LeadRepository,
	adminRepo repository.AdminRepository,
	auditRepo repository.AuditLogRepository,
	changeBus services.ChangeBus,
	db *gorm.DB,
) LeadIntakeFlow {
	return &LeadIntakeFlowImpl{
		leadRepo:  leadRepo,
		adminRepo: adminRepo,
		auditRepo: auditRepo,
		changeBus: changeBus,
		db:        db,
	}
}

// CreateLead registers a new inquiry. Status is forced to new and the owner
// to null regardless of caller input; distribution happens via AssignLead.
// No bus event is published here: an unowned lead matches no session filter.
func (f *LeadIntakeFlowImpl) CreateLead(ctx context.Context, actor Actor, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.CreateLeadResponse, error) {
	if req == nil {
		return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Lead payload is required", ErrLeadNameRequired)
	}
	if req.Name == "" {
		return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Lead name is required", ErrLeadNameRequired)
	}
	if req.Phone == "" {
		return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Lead phone is required", ErrLeadPhoneRequired)
	}
	if !models.IsValidLeadSource(req.SourceType) {
		return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Invalid lead source type", ErrInvalidSource)
	}

	priority := models.LeadPriorityMedium
	if req.Priority != nil {
		if !models.IsValidLeadPriority(*req.Priority) {
			return nil, NewBusinessError("LEAD_VALIDATION_FAILED", "Invalid lead priority", ErrInvalidPriority)
		}
		priority = *req.Priority
	}

	lead := &models.Lead{
		SourceType:     req.SourceType,
		SourceID:       req.SourceID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		PropertyID:     req.PropertyID,
		PropertyTitle:  req.PropertyTitle,
		City:           req.City,
		Location:       req.Location,
		BudgetRange:    req.BudgetRange,
		PropertyType:   req.PropertyType,
		Purpose:        req.Purpose,
		Status:         models.LeadStatusNew,
		Priority:       priority,
		Tags:           req.Tags,
		NextFollowUpAt: req.NextFollowUpAt,
	}

	if err := f.leadRepo.Save(ctx, lead); err != nil {
		f.recordAudit(ctx, actor, models.AuditActionLeadCreated, nil, false, err.Error(), metadata)
		return nil, NewBusinessError("LEAD_CREATE_FAILED", "Failed to create lead", err)
	}

	f.recordAudit(ctx, actor, models.AuditActionLeadCreated, &lead.ID, true, "", metadata)

	return &dto.CreateLeadResponse{
		Message: "Lead created successfully",
		Lead:    ToLeadDTO(*lead),
	}, nil
}

// AssignLead hands a lead to an operator or, with a nil admin ID, back to the
// unassigned pool. The actor must hold superadmin or above; assignment to a
// target operator additionally requires the actor's tier to manage the
// target's tier.
func (f *LeadIntakeFlowImpl) AssignLead(ctx context.Context, actor Actor, leadID uint, req *dto.AssignLeadRequest, metadata *ClientMetadata) (*dto.LeadResponse, error) {
	if actor.Role != authz.RoleSuperAdmin && actor.Role != authz.RoleSuperSuperAdmin {
		f.recordAudit(ctx, actor, models.AuditActionLeadAssigned, &leadID, false, "insufficient tier", metadata)
		return nil, NewBusinessError("LEAD_ASSIGN_DENIED", "Insufficient tier to distribute leads", ErrRoleNotManageable)
	}
	if req == nil {
		req = &dto.AssignLeadRequest{}
	}

	var target *models.Admin
	if req.AdminID != nil {
		var err error
		target, err = f.adminRepo.ByID(ctx, *req.AdminID)
		if err != nil {
			return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup assignee", err)
		}
		if target == nil {
			return nil, NewBusinessError("ADMIN_NOT_FOUND", "Assignee not found", ErrAdminNotFound)
		}
		if !utils.IsTrue(target.IsActive) {
			return nil, NewBusinessError("ADMIN_INACTIVE", "Assignee account is inactive", ErrAssigneeInactive)
		}
		targetRole, ok := authz.ParseRole(target.Role)
		if !ok || !authz.CanManageRole(actor.Role, targetRole) {
			f.recordAudit(ctx, actor, models.AuditActionLeadAssigned, &leadID, false, "target tier not manageable", metadata)
			return nil, NewBusinessError("LEAD_ASSIGN_DENIED", "Cannot assign to this operator", ErrRoleNotManageable)
		}
	}

	var updated *models.Lead
	var previousOwner *uint
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		lead, err := f.leadRepo.ByID(txCtx, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return ErrLeadNotFound
		}

		previousOwner = lead.AssignedAdminID
		now := utils.UTCNow()
		if err := f.leadRepo.UpdateAssignment(txCtx, lead.ID, req.AdminID, now); err != nil {
			return err
		}
		lead.AssignedAdminID = req.AdminID
		lead.UpdatedAt = now
		updated = lead
		return nil
	})
	if err != nil {
		f.recordAudit(ctx, actor, models.AuditActionLeadAssigned, &leadID, false, err.Error(), metadata)
		if IsLeadNotFound(err) {
			return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", err)
		}
		return nil, NewBusinessError("LEAD_ASSIGN_FAILED", "Failed to assign lead", err)
	}

	f.recordAudit(ctx, actor, models.AuditActionLeadAssigned, &leadID, true, "", metadata)

	// Re-homing: the previous owner's sessions drop the card, the new
	// owner's sessions gain it.
	if f.changeBus != nil {
		if previousOwner != nil && (req.AdminID == nil || *previousOwner != *req.AdminID) {
			if err := f.changeBus.PublishLeadRemoved(ctx, *previousOwner, updated); err != nil {
				log.Printf("change bus removed publish failed for lead %d: %v", updated.ID, err)
			}
		}
		if req.AdminID != nil {
			if err := f.changeBus.PublishLeadChanged(ctx, *req.AdminID, services.LeadEventCreated, updated); err != nil {
				log.Printf("change bus publish failed for lead %d: %v", updated.ID, err)
			}
		}
	}

	return &dto.LeadResponse{
		Message: "Lead assignment updated successfully",
		Lead:    ToLeadDTO(*updated),
	}, nil
}

func (f *LeadIntakeFlowImpl) recordAudit(ctx context.Context, actor Actor, action string, leadID *uint, success bool, message string, metadata *ClientMetadata) {
	if f.auditRepo == nil {
		return
	}

	row := &models.AuditLog{
		AdminID: &actor.ID,
		LeadID:  leadID,
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
