// Package tests contains test cases for models, repositories and business flows to avoid circular imports
package tests

import (
	"testing"

	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/stretchr/testify/assert"
)

func TestLeadValidation(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		for _, s := range models.LeadStatuses {
			assert.True(t, models.IsValidLeadStatus(s), s)
		}
		assert.False(t, models.IsValidLeadStatus("archived"))
		assert.False(t, models.IsValidLeadStatus(""))
	})

	t.Run("Priority", func(t *testing.T) {
		assert.True(t, models.IsValidLeadPriority(models.LeadPriorityUrgent))
		assert.False(t, models.IsValidLeadPriority("critical"))
	})

	t.Run("Source", func(t *testing.T) {
		assert.True(t, models.IsValidLeadSource(models.LeadSourceResearchReport))
		assert.False(t, models.IsValidLeadSource("website"))
	})
}

func TestLeadIsOwnedBy(t *testing.T) {
	ownerID := uint(7)

	unowned := models.Lead{}
	assert.False(t, unowned.IsOwnedBy(ownerID))

	owned := models.Lead{AssignedAdminID: &ownerID}
	assert.True(t, owned.IsOwnedBy(ownerID))
	assert.False(t, owned.IsOwnedBy(8))
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "admins", models.Admin{}.TableName())
	assert.Equal(t, "leads", models.Lead{}.TableName())
	assert.Equal(t, "lead_notes", models.LeadNote{}.TableName())
	assert.Equal(t, "audit_log", models.AuditLog{}.TableName())
}
