// Package testing provides test utilities and database setup for testing the lead pipeline
package testing

import (
	"fmt"
	"math/rand"

	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAdmin creates an operator account with the given role
func (tf *TestFixtures) CreateTestAdmin(role string) (*models.Admin, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := rand.Intn(10000000)
	admin := &models.Admin{
		Username:     fmt.Sprintf("operator_%s_%d", role, suffix),
		PasswordHash: string(hashedPassword),
		Role:         role,
		Phone:        utils.ToPtr(fmt.Sprintf("+9198%08d", rand.Intn(100000000))),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}

	return admin, nil
}

// CreateTestLead creates a lead, optionally owned by an operator
func (tf *TestFixtures) CreateTestLead(ownerID *uint) (*models.Lead, error) {
	suffix := rand.Intn(10000000)
	lead := &models.Lead{
		SourceType:      models.LeadSourcePropertyInquiry,
		Name:            fmt.Sprintf("Test Lead %d", suffix),
		Phone:           fmt.Sprintf("+9197%08d", rand.Intn(100000000)),
		Email:           utils.ToPtr(fmt.Sprintf("lead%d@example.com", suffix)),
		City:            utils.ToPtr("Aurangabad"),
		Status:          models.LeadStatusNew,
		Priority:        models.LeadPriorityMedium,
		AssignedAdminID: ownerID,
	}

	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}

	return lead, nil
}

// CreateTestNote appends a note to a lead on behalf of an operator
func (tf *TestFixtures) CreateTestNote(leadID, adminID uint, text string) (*models.LeadNote, error) {
	note := &models.LeadNote{
		LeadID:  leadID,
		AdminID: adminID,
		Note:    text,
	}

	if err := tf.DB.DB.Create(note).Error; err != nil {
		return nil, fmt.Errorf("failed to create test note: %w", err)
	}

	return note, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(adminID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		AdminID:     adminID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
