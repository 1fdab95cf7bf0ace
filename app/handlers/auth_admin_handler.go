// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/middleware"
	businessflow "github.com/propertyshodh/lead-pipeline/business_flow"
	"github.com/propertyshodh/lead-pipeline/utils"
)

// AdminAuthHandlerInterface defines the contract for operator auth handlers
type AdminAuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
}

// AdminAuthHandler implements AdminAuthHandlerInterface
type AdminAuthHandler struct {
	flow      businessflow.AdminAuthFlow
	validator *validator.Validate
}

// ErrorResponse standard JSON error
func (h *AdminAuthHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
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
func (h *AdminAuthHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func NewAdminAuthHandler(flow businessflow.AdminAuthFlow) AdminAuthHandlerInterface {
	return &AdminAuthHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Login authenticates an operator with username/password
// @Summary Operator login
// @Description Authenticate an operator and return a token pair whose claims carry the stored role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 401 {object} dto.APIResponse "Incorrect credentials or operator not found"
// @Failure 403 {object} dto.APIResponse "Operator inactive"
// @Router /api/v1/auth/admin/login [post]
func (h *AdminAuthHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
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
	result, err := h.flow.Login(h.createRequestContext(c, "/api/v1/auth/admin/login"), &req, metadata)
	if err != nil {
		if businessflow.IsAdminNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Operator not found", "ADMIN_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Operator account is inactive", "ADMIN_INACTIVE", nil)
		}
		if businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect password", "INCORRECT_PASSWORD", nil)
		}
		log.Println("Operator login failed", err)
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Refresh exchanges a refresh token for a new session
// @Summary Refresh session
// @Description Exchange a valid refresh token for a fresh access/refresh pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AdminSessionDTO} "Session refreshed"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 401 {object} dto.APIResponse "Refresh token invalid or expired"
// @Router /api/v1/auth/admin/refresh [post]
func (h *AdminAuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
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

	session, err := h.flow.Refresh(h.createRequestContext(c, "/api/v1/auth/admin/refresh"), req.RefreshToken)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Session refresh failed", "REFRESH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Session refreshed", session)
}

// Logout revokes the current access token
// @Summary Operator logout
// @Description Revoke the access token used on this request
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse "Logout successful"
// @Failure 401 {object} dto.APIResponse "Not authenticated"
// @Router /api/v1/auth/admin/logout [post]
func (h *AdminAuthHandler) Logout(c fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}
	token, ok := middleware.GetAccessTokenFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if err := h.flow.Logout(h.createRequestContext(c, "/api/v1/auth/admin/logout"), actor, token, metadata); err != nil {
		log.Println("Operator logout failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Logout successful", nil)
}

// createRequestContext mirrors other handlers for request-scoped values
func (h *AdminAuthHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AdminAuthHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

// actorFromContext builds the acting operator from authenticated locals
func actorFromContext(c fiber.Ctx) (businessflow.Actor, bool) {
	id, ok := middleware.GetAdminIDFromContext(c)
	if !ok {
		return businessflow.Actor{}, false
	}
	role, ok := middleware.GetAdminRoleFromContext(c)
	if !ok {
		return businessflow.Actor{}, false
	}
	return businessflow.Actor{ID: id, Role: role}, true
}
