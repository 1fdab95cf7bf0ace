// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/propertyshodh/lead-pipeline/app/dto"
	businessflow "github.com/propertyshodh/lead-pipeline/business_flow"
	"github.com/propertyshodh/lead-pipeline/utils"
)

// AdminAccountHandlerInterface defines the contract for account management handlers
type AdminAccountHandlerInterface interface {
	CreateAdmin(c fiber.Ctx) error
	UpdateAdmin(c fiber.Ctx) error
	DeactivateAdmin(c fiber.Ctx) error
	ListAdmins(c fiber.Ctx) error
}

// AdminAccountHandler handles operator account management requests
type AdminAccountHandler struct {
	flow      businessflow.AdminAccountFlow
	validator *validator.Validate
}

// ErrorResponse standard JSON error
func (h *AdminAccountHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
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
func (h *AdminAccountHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewAdminAccountHandler creates a new account management handler
func NewAdminAccountHandler(flow businessflow.AdminAccountFlow) AdminAccountHandlerInterface {
	return &AdminAccountHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// CreateAdmin creates an operator account in a lower tier
// @Summary Create operator account
// @Description Create an operator account; the creator's tier decides which roles are permitted
// @Tags Account Management
// @Accept json
// @Produce json
// @Param request body dto.CreateAdminRequest true "Account data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateAdminResponse} "Account created"
// @Failure 403 {object} dto.APIResponse "Role not creatable from this tier"
// @Failure 409 {object} dto.APIResponse "Username already taken"
// @Router /api/v1/admin/admins [post]
func (h *AdminAccountHandler) CreateAdmin(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}

	var req dto.CreateAdminRequest
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
	result, err := h.flow.CreateAdmin(h.createRequestContext(c, "/api/v1/admin/admins"), actor, &req, metadata)
	if err != nil {
		return h.accountError(c, err, "Failed to create account", "ADMIN_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Account created successfully", result)
}

// UpdateAdmin updates a manageable operator account
// @Summary Update operator account
// @Description Update password, role, phone or active flag of a manageable account
// @Tags Account Management
// @Accept json
// @Produce json
// @Param id path int true "Admin ID"
// @Param request body dto.UpdateAdminRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.AdminDTO} "Account updated"
// @Failure 403 {object} dto.APIResponse "Account not manageable from this tier"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /api/v1/admin/admins/{id} [put]
func (h *AdminAccountHandler) UpdateAdmin(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	adminID, ok := parseAdminID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid admin ID", "INVALID_ADMIN_ID", nil)
	}

	var req dto.UpdateAdminRequest
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
	result, err := h.flow.UpdateAdmin(h.createRequestContext(c, "/api/v1/admin/admins/:id"), actor, adminID, &req, metadata)
	if err != nil {
		return h.accountError(c, err, "Failed to update account", "ADMIN_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account updated successfully", result)
}

// DeactivateAdmin deactivates a manageable operator account
// @Summary Deactivate operator account
// @Description Deactivate a manageable account; operators cannot deactivate themselves
// @Tags Account Management
// @Produce json
// @Param id path int true "Admin ID"
// @Success 200 {object} dto.APIResponse "Account deactivated"
// @Failure 403 {object} dto.APIResponse "Account not manageable from this tier"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /api/v1/admin/admins/{id}/deactivate [post]
func (h *AdminAccountHandler) DeactivateAdmin(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	adminID, ok := parseAdminID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid admin ID", "INVALID_ADMIN_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if err := h.flow.DeactivateAdmin(h.createRequestContext(c, "/api/v1/admin/admins/:id/deactivate"), actor, adminID, metadata); err != nil {
		return h.accountError(c, err, "Failed to deactivate account", "ADMIN_DEACTIVATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account deactivated successfully", nil)
}

// ListAdmins lists operator accounts visible to the caller's tier
// @Summary List operator accounts
// @Description List accounts whose tier the caller is allowed to view
// @Tags Account Management
// @Produce json
// @Param role query string false "Filter by role"
// @Param is_active query bool false "Filter by active flag"
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListAdminsResponse} "Accounts retrieved"
// @Failure 403 {object} dto.APIResponse "Requested tier not visible"
// @Router /api/v1/admin/admins [get]
func (h *AdminAccountHandler) ListAdmins(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}

	req := dto.ListAdminsRequest{}
	if v := c.Query("role"); v != "" {
		req.Role = &v
	}
	if v := c.Query("is_active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			req.IsActive = &b
		}
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

	result, err := h.flow.ListAdmins(h.createRequestContext(c, "/api/v1/admin/admins"), actor, &req)
	if err != nil {
		return h.accountError(c, err, "Failed to list accounts", "ADMIN_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Accounts retrieved successfully", result)
}

// accountError maps tier and lookup failures onto responses
func (h *AdminAccountHandler) accountError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsRoleNotCreatable(err) || businessflow.IsRoleNotManageable(err) || businessflow.IsSuperSuperAdminOnly(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Operation not permitted from this tier", "TIER_DENIED", nil)
	}
	if businessflow.IsCannotModifySelf(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Operators cannot modify their own account this way", "CANNOT_MODIFY_SELF", nil)
	}
	if businessflow.IsUsernameTaken(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Username already taken", "USERNAME_TAKEN", nil)
	}
	if businessflow.IsInvalidRole(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid role", "INVALID_ROLE", nil)
	}
	if businessflow.IsAdminNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", "ADMIN_NOT_FOUND", nil)
	}
	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

func parseAdminID(c fiber.Ctx) (uint, bool) {
	idStr := c.Params("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// createRequestContext mirrors other handlers for request-scoped values
func (h *AdminAccountHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AdminAccountHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
