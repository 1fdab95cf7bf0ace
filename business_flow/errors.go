// Package businessflow contains the core business logic and use cases for the lead pipeline
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Operator-related errors
	ErrAdminNotFound       = errors.New("admin not found")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrIncorrectPassword   = errors.New("incorrect password")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrInvalidRole         = errors.New("invalid role")
	ErrRoleNotManageable   = errors.New("insufficient tier to manage this role")
	ErrRoleNotCreatable    = errors.New("insufficient tier to create this role")
	ErrCannotModifySelf    = errors.New("operators cannot deactivate their own account")
	ErrSuperSuperAdminOnly = errors.New("restricted to super super admins")

	// Lead-related errors
	ErrLeadNotFound      = errors.New("lead not found")
	ErrNotOwner          = errors.New("lead is not assigned to this operator")
	ErrInvalidStatus     = errors.New("invalid lead status")
	ErrInvalidPriority   = errors.New("invalid lead priority")
	ErrInvalidSource     = errors.New("invalid lead source")
	ErrInvalidNote       = errors.New("note must be between 1 and 500 characters")
	ErrLeadNameRequired  = errors.New("lead name is required")
	ErrLeadPhoneRequired = errors.New("lead phone is required")
	ErrAssigneeInactive  = errors.New("assignee account is inactive")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 200")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsUsernameTaken(err error) bool {
	return errors.Is(err, ErrUsernameTaken)
}

func IsInvalidRole(err error) bool {
	return errors.Is(err, ErrInvalidRole)
}

func IsRoleNotManageable(err error) bool {
	return errors.Is(err, ErrRoleNotManageable)
}

func IsRoleNotCreatable(err error) bool {
	return errors.Is(err, ErrRoleNotCreatable)
}

func IsCannotModifySelf(err error) bool {
	return errors.Is(err, ErrCannotModifySelf)
}

func IsSuperSuperAdminOnly(err error) bool {
	return errors.Is(err, ErrSuperSuperAdminOnly)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsNotOwner(err error) bool {
	return errors.Is(err, ErrNotOwner)
}

func IsInvalidStatus(err error) bool {
	return errors.Is(err, ErrInvalidStatus)
}

func IsInvalidPriority(err error) bool {
	return errors.Is(err, ErrInvalidPriority)
}

func IsInvalidSource(err error) bool {
	return errors.Is(err, ErrInvalidSource)
}

func IsInvalidNote(err error) bool {
	return errors.Is(err, ErrInvalidNote)
}

func IsLeadNameRequired(err error) bool {
	return errors.Is(err, ErrLeadNameRequired)
}

func IsLeadPhoneRequired(err error) bool {
	return errors.Is(err, ErrLeadPhoneRequired)
}

func IsAssigneeInactive(err error) bool {
	return errors.Is(err, ErrAssigneeInactive)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
