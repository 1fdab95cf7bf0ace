// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/middleware"
	"github.com/propertyshodh/lead-pipeline/app/services"
	businessflow "github.com/propertyshodh/lead-pipeline/business_flow"
	"github.com/propertyshodh/lead-pipeline/utils"
)

// PipelineHandlerInterface defines the contract for operator pipeline handlers
type PipelineHandlerInterface interface {
	ListMyLeads(c fiber.Ctx) error
	GetMyLead(c fiber.Ctx) error
	SetStatus(c fiber.Ctx) error
	AddNote(c fiber.Ctx) error
	ListNotes(c fiber.Ctx) error
	Unassign(c fiber.Ctx) error
	Export(c fiber.Ctx) error
	Stream(c fiber.Ctx) error
}

// PipelineHandler handles the operator-facing pipeline HTTP requests
type PipelineHandler struct {
	flow      businessflow.PipelineFlow
	changeBus services.ChangeBus
	validator *validator.Validate
}

// ErrorResponse standard JSON error
func (h *PipelineHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *PipelineHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(flow businessflow.PipelineFlow, changeBus services.ChangeBus) PipelineHandlerInterface {
	return &PipelineHandler{
		flow:      flow,
		changeBus: changeBus,
		validator: validator.New(),
	}
}

// ListMyLeads returns the caller's own leads
// @Summary List my leads
// @Description List leads owned by the authenticated operator, with optional status, priority and free-text filters
// @Tags Pipeline
// @Produce json
// @Param query query string false "Free-text search across lead text fields"
// @Param status query string false "Filter by status (new, contacted, qualified, closed)"
// @Param priority query string false "Filter by priority (low, medium, high, urgent)"
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListMyLeadsResponse} "Leads retrieved"
// @Failure 401 {object} dto.APIResponse "Not authenticated"
// @Router /api/v1/pipeline/leads [get]
func (h *PipelineHandler) ListMyLeads(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}

	req := dto.ListMyLeadsRequest{}
	if v := c.Query("query"); v != "" {
		req.Query = &v
	}
	if v := c.Query("status"); v != "" {
		req.Status = &v
	}
	if v := c.Query("priority"); v != "" {
		req.Priority = &v
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			req.Page = uint(n)
		}
	}
	if v := c.Query("page_size"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			req.PageSize = uint(n)
		}
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.ListMyLeads(h.createRequestContext(c, "/api/v1/pipeline/leads"), actor, &req, metadata)
	if err != nil {
		log.Println("List leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list leads", "LEAD_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Leads retrieved successfully", result)
}

// GetMyLead returns one owned lead
// @Summary Get my lead
// @Description Fetch a single lead owned by the authenticated operator
// @Tags Pipeline
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.LeadResponse} "Lead retrieved"
// @Failure 404 {object} dto.APIResponse "Lead not found or not owned"
// @Router /api/v1/pipeline/leads/{id} [get]
func (h *PipelineHandler) GetMyLead(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "INVALID_LEAD_ID", nil)
	}

	result, err := h.flow.GetMyLead(h.createRequestContext(c, "/api/v1/pipeline/leads/:id"), actor, leadID)
	if err != nil {
		return h.pipelineError(c, err, "Failed to fetch lead", "LEAD_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved successfully", result)
}

// SetStatus moves an owned lead to another pipeline column
// @Summary Set lead status
// @Description Move an owned lead to another status column
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body dto.SetLeadStatusRequest true "Target status"
// @Success 200 {object} dto.APIResponse{data=dto.LeadResponse} "Status updated"
// @Failure 400 {object} dto.APIResponse "Invalid status"
// @Failure 404 {object} dto.APIResponse "Lead not found or not owned"
// @Router /api/v1/pipeline/leads/{id}/status [put]
func (h *PipelineHandler) SetStatus(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "INVALID_LEAD_ID", nil)
	}

	var req dto.SetLeadStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.SetStatus(h.createRequestContext(c, "/api/v1/pipeline/leads/:id/status"), actor, leadID, &req, metadata)
	if err != nil {
		return h.pipelineError(c, err, "Failed to update lead status", "LEAD_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead status updated successfully", result)
}

// AddNote appends a note to an owned lead
// @Summary Add lead note
// @Description Append an immutable note (1-500 characters) to an owned lead
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body dto.AddLeadNoteRequest true "Note text"
// @Success 201 {object} dto.APIResponse{data=dto.AddLeadNoteResponse} "Note added"
// @Failure 400 {object} dto.APIResponse "Invalid note"
// @Failure 404 {object} dto.APIResponse "Lead not found or not owned"
// @Router /api/v1/pipeline/leads/{id}/notes [post]
func (h *PipelineHandler) AddNote(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "INVALID_LEAD_ID", nil)
	}

	var req dto.AddLeadNoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.AddNote(h.createRequestContext(c, "/api/v1/pipeline/leads/:id/notes"), actor, leadID, &req, metadata)
	if err != nil {
		if businessflow.IsInvalidNote(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Note must be between 1 and 500 characters", "INVALID_NOTE", nil)
		}
		return h.pipelineError(c, err, "Failed to add note", "NOTE_ADD_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Note added successfully", result)
}

// ListNotes returns the notes of an owned lead, oldest first
// @Summary List lead notes
// @Description List notes of an owned lead in chronological order
// @Tags Pipeline
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.ListLeadNotesResponse} "Notes retrieved"
// @Failure 404 {object} dto.APIResponse "Lead not found or not owned"
// @Router /api/v1/pipeline/leads/{id}/notes [get]
func (h *PipelineHandler) ListNotes(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "INVALID_LEAD_ID", nil)
	}

	result, err := h.flow.ListNotes(h.createRequestContext(c, "/api/v1/pipeline/leads/:id/notes"), actor, leadID)
	if err != nil {
		return h.pipelineError(c, err, "Failed to list notes", "NOTE_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notes retrieved successfully", result)
}

// Unassign returns an owned lead to the unassigned pool
// @Summary Unassign lead
// @Description Give up ownership of a lead, returning it to the unassigned pool
// @Tags Pipeline
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} dto.APIResponse{data=dto.UnassignLeadResponse} "Lead unassigned"
// @Failure 404 {object} dto.APIResponse "Lead not found or not owned"
// @Router /api/v1/pipeline/leads/{id}/unassign [post]
func (h *PipelineHandler) Unassign(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "INVALID_LEAD_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.Unassign(h.createRequestContext(c, "/api/v1/pipeline/leads/:id/unassign"), actor, leadID, metadata)
	if err != nil {
		return h.pipelineError(c, err, "Failed to unassign lead", "LEAD_UNASSIGN_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead unassigned successfully", result)
}

// Export downloads the caller's leads as a spreadsheet
// @Summary Export my leads
// @Description Download all leads owned by the authenticated operator as an XLSX file
// @Tags Pipeline
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {string} string "XLSX file"
// @Failure 401 {object} dto.APIResponse "Not authenticated"
// @Router /api/v1/pipeline/leads/export [get]
func (h *PipelineHandler) Export(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	data, filename, err := h.flow.ExportMyLeads(h.createRequestContextWithTimeout(c, "/api/v1/pipeline/leads/export", 2*time.Minute), actor, metadata)
	if err != nil {
		log.Println("Lead export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export leads", "LEAD_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// leadStreamEvent is the SSE payload for one lead change
type leadStreamEvent struct {
	Type       string      `json:"type"`
	Lead       dto.LeadDTO `json:"lead"`
	OccurredAt string      `json:"occurred_at"`
}

// Stream pushes the caller's pipeline changes over Server-Sent Events.
// The stream opens with a snapshot event; after that every change to the
// caller's leads arrives as a lead event. When the underlying subscription
// is lost a resync event is sent and the stream ends, at which point the
// client must refetch the full list before reconnecting.
// @Summary Stream pipeline changes
// @Description Server-Sent Events stream of the authenticated operator's lead changes
// @Tags Pipeline
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Failure 401 {object} dto.APIResponse "Not authenticated"
// @Router /api/v1/pipeline/stream [get]
func (h *PipelineHandler) Stream(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}

	// The subscription outlives the handler return; the stream writer
	// below owns its cancellation.
	streamCtx, cancel := context.WithCancel(context.Background())
	events, unsubscribe, err := h.changeBus.Subscribe(streamCtx, actor.ID)
	if err != nil {
		cancel()
		log.Println("Pipeline stream subscribe failed", err)
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Failed to open stream", "STREAM_UNAVAILABLE", nil)
	}

	// Snapshot after subscribing so no event between the two is lost
	snapshotReq := &dto.ListMyLeadsRequest{PageSize: utils.MaxPageSize}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	snapshot, err := h.flow.ListMyLeads(h.createRequestContext(c, "/api/v1/pipeline/stream"), actor, snapshotReq, metadata)
	if err != nil {
		unsubscribe()
		cancel()
		log.Println("Pipeline stream snapshot failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to open stream", "STREAM_SNAPSHOT_FAILED", nil)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	closeStream := middleware.TrackSSEStream()
	c.RequestCtx().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer closeStream()
		defer cancel()
		defer unsubscribe()

		if err := writeSSE(w, "snapshot", snapshot); err != nil {
			return
		}

		keepalive := time.NewTicker(25 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case ev, open := <-events:
				if !open {
					// Subscription lost; the client refetches and reconnects
					_ = writeSSE(w, "resync", fiber.Map{"reason": "subscription_lost"})
					return
				}
				if ev.Lead == nil {
					continue
				}
				payload := leadStreamEvent{
					Type:       ev.Type,
					Lead:       businessflow.ToLeadDTO(*ev.Lead),
					OccurredAt: ev.OccurredAt.Format(time.RFC3339),
				}
				middleware.CountLeadEvent(ev.Type)
				if err := writeSSE(w, "lead", payload); err != nil {
					return
				}
			case <-keepalive.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

// writeSSE writes one named event frame and flushes it
func writeSSE(w *bufio.Writer, event string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("event: " + event + "\ndata: " + string(body) + "\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

// pipelineError maps ownership failures to responses without leaking
// whether a foreign lead exists
func (h *PipelineHandler) pipelineError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsLeadNotFound(err) || businessflow.IsNotOwner(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
	}
	if businessflow.IsInvalidStatus(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead status", "INVALID_STATUS", nil)
	}
	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

func parseLeadID(c fiber.Ctx) (uint, bool) {
	idStr := c.Params("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// createRequestContext mirrors other handlers for request-scoped values
func (h *PipelineHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *PipelineHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
