// Package businessflow contains the core business logic and use cases for the lead pipeline
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/repository"
	"github.com/propertyshodh/lead-pipeline/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// PipelineFlow is the operator-facing surface of the lead pipeline. Every
// method operates strictly on leads owned by the acting operator; ownership
// is re-checked inside the write transaction, which is the only concurrency
// control (last writer wins, no version checks).
type PipelineFlow interface {
	ListMyLeads(ctx context.Context, actor Actor, req *dto.ListMyLeadsRequest, metadata *ClientMetadata) (*dto.ListMyLeadsResponse, error)
	GetMyLead(ctx context.Context, actor Actor, leadID uint) (*dto.LeadResponse, error)
	SetStatus(ctx context.Context, actor Actor, leadID uint, req *dto.SetLeadStatusRequest, metadata *ClientMetadata) (*dto.LeadResponse, error)
	AddNote(ctx context.Context, actor Actor, leadID uint, req *dto.AddLeadNoteRequest, metadata *ClientMetadata) (*dto.AddLeadNoteResponse, error)
	Unassign(ctx context.Context, actor Actor, leadID uint, metadata *ClientMetadata) (*dto.UnassignLeadResponse, error)
	ListNotes(ctx context.Context, actor Actor, leadID uint) (*dto.ListLeadNotesResponse, error)
	ExportMyLeads(ctx context.Context, actor Actor, metadata *ClientMetadata) ([]byte, string, error)
}

// PipelineFlowImpl implements PipelineFlow
type PipelineFlowImpl struct {
	leadRepo  repository.LeadRepository
	noteRepo  repository.LeadNoteRepository
	auditRepo repository.AuditLogRepository
	changeBus services.ChangeBus
	db        *gorm.DB
}

// NewPipelineFlow creates a new pipeline flow instance
func NewPipelineFlow(
	leadRepo repository.LeadRepository,
	noteRepo repository.LeadNoteRepository,
	auditRepo repository.AuditLogRepository,
	changeBus services.ChangeBus,
	db *gorm.DB,
) PipelineFlow {
	return &PipelineFlowImpl{
		leadRepo:  leadRepo,
		noteRepo:  noteRepo,
		auditRepo: auditRepo,
		changeBus: changeBus,
		db:        db,
	}
}

// MatchesQuery reports whether a lead matches a free-text search. The match
// is a case-insensitive substring test across the lead's text fields and is
// a client-side refinement only: it runs on rows the ownership filter has
// already authorized, never instead of it.
func MatchesQuery(lead *models.Lead, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}

	fields := []string{lead.Name, lead.Phone}
	for _, p := range []*string{lead.Email, lead.Location, lead.City, lead.Purpose, lead.PropertyType, lead.PropertyTitle} {
		if p != nil {
			fields = append(fields, *p)
		}
	}
	fields = append(fields, lead.Tags...)

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// ListMyLeads returns the acting operator's leads. Structured filters
// (status, priority) are pushed into SQL; the free-text query refines the
// fetched page in memory.
func (f *PipelineFlowImpl) ListMyLeads(ctx context.Context, actor Actor, req *dto.ListMyLeadsRequest, metadata *ClientMetadata) (*dto.ListMyLeadsResponse, error) {
	if req == nil {
		req = &dto.ListMyLeadsRequest{}
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

	filter := models.LeadFilter{
		Status:   req.Status,
		Priority: req.Priority,
	}

	leads, err := f.leadRepo.ListOwned(ctx, actor.ID, filter, "updated_at DESC", int(pageSize), int((page-1)*pageSize))
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list leads", err)
	}

	if req.Query != nil {
		matched := leads[:0]
		for _, l := range leads {
			if MatchesQuery(l, *req.Query) {
				matched = append(matched, l)
			}
		}
		leads = matched
	}

	filter.AssignedAdminID = &actor.ID
	total, err := f.leadRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LEAD_COUNT_FAILED", "Failed to count leads", err)
	}

	return &dto.ListMyLeadsResponse{
		Message: "Leads retrieved successfully",
		Leads:   ToLeadDTOs(leads),
		Total:   total,
	}, nil
}

// GetMyLead returns a single owned lead
func (f *PipelineFlowImpl) GetMyLead(ctx context.Context, actor Actor, leadID uint) (*dto.LeadResponse, error) {
	lead, err := f.ownedLead(ctx, actor, leadID)
	if err != nil {
		return nil, err
	}
	return &dto.LeadResponse{
		Message: "Lead retrieved successfully",
		Lead:    ToLeadDTO(*lead),
	}, nil
}

// SetStatus moves an owned lead to another pipeline column
func (f *PipelineFlowImpl) SetStatus(ctx context.Context, actor Actor, leadID uint, req *dto.SetLeadStatusRequest, metadata *ClientMetadata) (*dto.LeadResponse, error) {
	if req == nil || !models.IsValidLeadStatus(req.Status) {
		f.recordAudit(ctx, actor, models.AuditActionLeadStatusChanged, &leadID, false, "invalid status", metadata)
		return nil, NewBusinessError("INVALID_LEAD_STATUS", "Invalid lead status", ErrInvalidStatus)
	}

	var updated *models.Lead
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		lead, err := f.leadRepo.ByID(txCtx, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return ErrLeadNotFound
		}
		if !lead.IsOwnedBy(actor.ID) {
			return ErrNotOwner
		}

		now := utils.UTCNow()
		if err := f.leadRepo.UpdateStatus(txCtx, lead.ID, req.Status, now); err != nil {
			return err
		}
		lead.Status = req.Status
		lead.UpdatedAt = now
		updated = lead
		return nil
	})
	if err != nil {
		f.recordAudit(ctx, actor, models.AuditActionLeadStatusChanged, &leadID, false, err.Error(), metadata)
		return nil, wrapPipelineError("LEAD_STATUS_UPDATE_FAILED", "Failed to update lead status", err)
	}

	f.recordAudit(ctx, actor, models.AuditActionLeadStatusChanged, &leadID, true, fmt.Sprintf("status set to %s", req.Status), metadata)
	f.publishChanged(ctx, actor.ID, services.LeadEventUpdated, updated)

	return &dto.LeadResponse{
		Message: "Lead status updated successfully",
		Lead:    ToLeadDTO(*updated),
	}, nil
}

// AddNote appends an immutable note to an owned lead. The lead row itself is
// untouched, so updated_at does not move.
func (f *PipelineFlowImpl) AddNote(ctx context.Context, actor Actor, leadID uint, req *dto.AddLeadNoteRequest, metadata *ClientMetadata) (*dto.AddLeadNoteResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_LEAD_NOTE", "Note text is required", ErrInvalidNote)
	}
	noteLen := utf8.RuneCountInString(req.Note)
	if noteLen < models.LeadNoteMinLen || noteLen > models.LeadNoteMaxLen {
		f.recordAudit(ctx, actor, models.AuditActionLeadNoteAdded, &leadID, false, "note length out of bounds", metadata)
		return nil, NewBusinessError("INVALID_LEAD_NOTE", "Note must be between 1 and 500 characters", ErrInvalidNote)
	}

	var note *models.LeadNote
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		lead, err := f.leadRepo.ByID(txCtx, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return ErrLeadNotFound
		}
		if !lead.IsOwnedBy(actor.ID) {
			return ErrNotOwner
		}

		note = &models.LeadNote{
			LeadID:  lead.ID,
			AdminID: actor.ID,
			Note:    req.Note,
		}
		return f.noteRepo.Save(txCtx, note)
	})
	if err != nil {
		f.recordAudit(ctx, actor, models.AuditActionLeadNoteAdded, &leadID, false, err.Error(), metadata)
		return nil, wrapPipelineError("LEAD_NOTE_FAILED", "Failed to add note", err)
	}

	f.recordAudit(ctx, actor, models.AuditActionLeadNoteAdded, &leadID, true, "", metadata)

	return &dto.AddLeadNoteResponse{
		Message: "Note added successfully",
		Note:    ToLeadNoteDTO(*note),
	}, nil
}

// Unassign returns an owned lead to the unassigned pool and tells the
// operator's other sessions to drop it.
func (f *PipelineFlowImpl) Unassign(ctx context.Context, actor Actor, leadID uint, metadata *ClientMetadata) (*dto.UnassignLeadResponse, error) {
	var removed *models.Lead
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		lead, err := f.leadRepo.ByID(txCtx, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return ErrLeadNotFound
		}
		if !lead.IsOwnedBy(actor.ID) {
			return ErrNotOwner
		}

		now := utils.UTCNow()
		if err := f.leadRepo.UpdateAssignment(txCtx, lead.ID, nil, now); err != nil {
			return err
		}
		lead.AssignedAdminID = nil
		lead.UpdatedAt = now
		removed = lead
		return nil
	})
	if err != nil {
		f.recordAudit(ctx, actor, models.AuditActionLeadUnassigned, &leadID, false, err.Error(), metadata)
		return nil, wrapPipelineError("LEAD_UNASSIGN_FAILED", "Failed to unassign lead", err)
	}

	f.recordAudit(ctx, actor, models.AuditActionLeadUnassigned, &leadID, true, "", metadata)
	f.publishRemoved(ctx, actor.ID, removed)

	return &dto.UnassignLeadResponse{
		Message: "Lead unassigned successfully",
		LeadID:  leadID,
	}, nil
}

// ListNotes returns the append-only note history of an owned lead
func (f *PipelineFlowImpl) ListNotes(ctx context.Context, actor Actor, leadID uint) (*dto.ListLeadNotesResponse, error) {
	if _, err := f.ownedLead(ctx, actor, leadID); err != nil {
		return nil, err
	}

	notes, err := f.noteRepo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_NOTES_FAILED", "Failed to list notes", err)
	}

	items := make([]dto.LeadNoteDTO, 0, len(notes))
	for _, n := range notes {
		items = append(items, ToLeadNoteDTO(*n))
	}
	return &dto.ListLeadNotesResponse{
		Message: "Notes retrieved successfully",
		Notes:   items,
	}, nil
}

// ExportMyLeads writes the operator's entire pipeline into an xlsx workbook
func (f *PipelineFlowImpl) ExportMyLeads(ctx context.Context, actor Actor, metadata *ClientMetadata) ([]byte, string, error) {
	leads, err := f.leadRepo.ListOwned(ctx, actor.ID, models.LeadFilter{}, "created_at ASC", utils.ExportMaxRows, 0)
	if err != nil {
		f.recordAudit(ctx, actor, models.AuditActionLeadExported, nil, false, err.Error(), metadata)
		return nil, "", NewBusinessError("LEAD_EXPORT_FAILED", "Failed to load leads for export", err)
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	sheet := wb.GetSheetName(0)
	headers := []string{"ID", "Name", "Phone", "Email", "City", "Location", "Status", "Priority", "Source", "Tags", "Next Follow-up", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.SetCellValue(sheet, cell, h)
	}

	for row, lead := range leads {
		values := []any{
			lead.ID,
			lead.Name,
			lead.Phone,
			strVal(lead.Email),
			strVal(lead.City),
			strVal(lead.Location),
			lead.Status,
			lead.Priority,
			lead.SourceType,
			strings.Join(lead.Tags, ", "),
			timeVal(lead.NextFollowUpAt),
			lead.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = wb.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		f.recordAudit(ctx, actor, models.AuditActionLeadExported, nil, false, err.Error(), metadata)
		return nil, "", NewBusinessError("LEAD_EXPORT_FAILED", "Failed to write export workbook", err)
	}

	f.recordAudit(ctx, actor, models.AuditActionLeadExported, nil, true, fmt.Sprintf("%d leads exported", len(leads)), metadata)

	filename := fmt.Sprintf("leads_%d_%s.xlsx", actor.ID, utils.UTCNow().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

// ownedLead loads a lead and enforces the ownership gate for read paths
func (f *PipelineFlowImpl) ownedLead(ctx context.Context, actor Actor, leadID uint) (*models.Lead, error) {
	lead, err := f.leadRepo.ByID(ctx, leadID)
	if err != nil {
		return nil, NewBusinessError("LEAD_LOOKUP_FAILED", "Failed to lookup lead", err)
	}
	if lead == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "Lead not found", ErrLeadNotFound)
	}
	if !lead.IsOwnedBy(actor.ID) {
		return nil, NewBusinessError("LEAD_NOT_OWNED", "Lead is not assigned to this operator", ErrNotOwner)
	}
	return lead, nil
}

// publishChanged announces a mutation after commit. Publish failures are
// logged and swallowed; the mutation has already happened.
func (f *PipelineFlowImpl) publishChanged(ctx context.Context, ownerID uint, eventType string, lead *models.Lead) {
	if f.changeBus == nil || lead == nil {
		return
	}
	if err := f.changeBus.PublishLeadChanged(ctx, ownerID, eventType, lead); err != nil {
		log.Printf("change bus publish failed for lead %d: %v", lead.ID, err)
	}
}

func (f *PipelineFlowImpl) publishRemoved(ctx context.Context, ownerID uint, lead *models.Lead) {
	if f.changeBus == nil || lead == nil {
		return
	}
	if err := f.changeBus.PublishLeadRemoved(ctx, ownerID, lead); err != nil {
		log.Printf("change bus removed publish failed for lead %d: %v", lead.ID, err)
	}
}

// recordAudit writes an audit row best-effort
func (f *PipelineFlowImpl) recordAudit(ctx context.Context, actor Actor, action string, leadID *uint, success bool, message string, metadata *ClientMetadata) {
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

// wrapPipelineError keeps sentinel errors recognizable through the
// BusinessError wrapper so handlers can map them to HTTP statuses.
func wrapPipelineError(code, message string, err error) error {
	switch {
	case IsLeadNotFound(err):
		return NewBusinessError("LEAD_NOT_FOUND", "Lead not found", err)
	case IsNotOwner(err):
		return NewBusinessError("LEAD_NOT_OWNED", "Lead is not assigned to this operator", err)
	default:
		return NewBusinessError(code, message, err)
	}
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func timeVal(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.Format(time.RFC3339)
}
