// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/propertyshodh/lead-pipeline/app/dto"
	businessflow "github.com/propertyshodh/lead-pipeline/business_flow"
	"github.com/propertyshodh/lead-pipeline/utils"
)

// LeadIntakeHandlerInterface defines the contract for lead intake handlers
type LeadIntakeHandlerInterface interface {
	CreateLead(c fiber.Ctx) error
	AssignLead(c fiber.Ctx) error
}

// LeadIntakeHandler handles lead registration and distribution requests
type LeadIntakeHandler struct {
	flow      businessflow.LeadIntakeFlow
	validator *validator.Validate
}

// ErrorResponse standard JSON error
func (h *LeadIntakeHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
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
func (h *LeadIntakeHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewLeadIntakeHandler creates a new lead intake handler
func NewLeadIntakeHandler(flow businessflow.LeadIntakeFlow) LeadIntakeHandlerInterface {
	return &LeadIntakeHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// CreateLead registers a new inquiry into the unassigned pool
// @Summary Create lead
// @Description Register a new inquiry; the lead always starts unassigned with status new
// @Tags Lead Intake
// @Accept json
// @Produce json
// @Param request body dto.CreateLeadRequest true "Lead data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateLeadResponse} "Lead created"
// @Failure 400 {object} dto.APIResponse "Invalid lead data"
// @Router /api/v1/admin/leads [post]
func (h *LeadIntakeHandler) CreateLead(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}

	var req dto.CreateLeadRequest
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
	result, err := h.flow.CreateLead(h.createRequestContext(c, "/api/v1/admin/leads"), actor, &req, metadata)
	if err != nil {
		if businessflow.IsLeadNameRequired(err) || businessflow.IsLeadPhoneRequired(err) ||
			businessflow.IsInvalidSource(err) || businessflow.IsInvalidPriority(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead data", "LEAD_VALIDATION_FAILED", nil)
		}
		log.Println("Lead creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", "LEAD_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Lead created successfully", result)
}

// AssignLead distributes a lead to an operator
// @Summary Assign lead
// @Description Assign a lead to an operator, or back to the unassigned pool when admin_id is null
// @Tags Lead Intake
// @Accept json
// @Produce json
// @Param id path int true "Lead ID"
// @Param request body dto.AssignLeadRequest true "Target operator"
// @Success 200 {object} dto.APIResponse{data=dto.LeadResponse} "Assignment updated"
// @Failure 403 {object} dto.APIResponse "Insufficient tier"
// @Failure 404 {object} dto.APIResponse "Lead or operator not found"
// @Router /api/v1/admin/leads/{id}/assign [put]
func (h *LeadIntakeHandler) AssignLead(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	leadID, ok := parseLeadID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid lead ID", "INVALID_LEAD_ID", nil)
	}

	var req dto.AssignLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.flow.AssignLead(h.createRequestContext(c, "/api/v1/admin/leads/:id/assign"), actor, leadID, &req, metadata)
	if err != nil {
		if businessflow.IsRoleNotManageable(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Insufficient tier to distribute leads", "LEAD_ASSIGN_DENIED", nil)
		}
		if businessflow.IsAdminNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Assignee not found", "ADMIN_NOT_FOUND", nil)
		}
		if businessflow.IsAssigneeInactive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Assignee account is inactive", "ADMIN_INACTIVE", nil)
		}
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", "LEAD_NOT_FOUND", nil)
		}
		log.Println("Lead assignment failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to assign lead", "LEAD_ASSIGN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead assignment updated successfully", result)
}

// createRequestContext mirrors other handlers for request-scoped values
func (h *LeadIntakeHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *LeadIntakeHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
