// Package tests contains test cases for models, repositories and business flows to avoid circular imports
package tests

import (
	"errors"
	"testing"
	"time"

	"github.com/propertyshodh/lead-pipeline/authz"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/repository"
	testingutil "github.com/propertyshodh/lead-pipeline/testing"
	"github.com/propertyshodh/lead-pipeline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLeadRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewLeadRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByID", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, lead.Name, found.Name)
			assert.NotEqual(t, "", found.UUID.String())
		})

		t.Run("ByIDMissingReturnsNil", func(t *testing.T) {
			found, err := repo.ByID(ctx, 999999)
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ListOwnedScopesToOwner", func(t *testing.T) {
			ownerA, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)
			ownerB, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)

			_, err = fixtures.CreateTestLead(&ownerA.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(&ownerB.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestLead(nil)
			require.NoError(t, err)

			leads, err := repo.ListOwned(ctx, ownerA.ID, models.LeadFilter{}, "id ASC", 100, 0)
			require.NoError(t, err)
			require.Len(t, leads, 1)
			assert.Equal(t, ownerA.ID, *leads[0].AssignedAdminID)

			// The owner scope wins over contradictory filter values
			leads, err = repo.ListOwned(ctx, ownerA.ID, models.LeadFilter{
				AssignedAdminID: &ownerB.ID,
				Unassigned:      utils.ToPtr(true),
			}, "id ASC", 100, 0)
			require.NoError(t, err)
			require.Len(t, leads, 1)
			assert.Equal(t, ownerA.ID, *leads[0].AssignedAdminID)
		})

		t.Run("ListOwnedStatusFilter", func(t *testing.T) {
			owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(&owner.ID)
			require.NoError(t, err)
			require.NoError(t, repo.UpdateStatus(ctx, lead.ID, models.LeadStatusClosed, utils.UTCNow()))
			_, err = fixtures.CreateTestLead(&owner.ID)
			require.NoError(t, err)

			status := models.LeadStatusClosed
			leads, err := repo.ListOwned(ctx, owner.ID, models.LeadFilter{Status: &status}, "id ASC", 100, 0)
			require.NoError(t, err)
			require.Len(t, leads, 1)
			assert.Equal(t, lead.ID, leads[0].ID)
		})

		t.Run("UpdateStatusMissingLead", func(t *testing.T) {
			err := repo.UpdateStatus(ctx, 999999, models.LeadStatusContacted, utils.UTCNow())
			assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
		})

		t.Run("UpdateAssignment", func(t *testing.T) {
			owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)

			require.NoError(t, repo.UpdateAssignment(ctx, lead.ID, &owner.ID, utils.UTCNow()))
			stored, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.AssignedAdminID)
			assert.Equal(t, owner.ID, *stored.AssignedAdminID)

			require.NoError(t, repo.UpdateAssignment(ctx, lead.ID, nil, utils.UTCNow()))
			stored, err = repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Nil(t, stored.AssignedAdminID)

			err = repo.UpdateAssignment(ctx, 999999, &owner.ID, utils.UTCNow())
			assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
		})

		t.Run("FollowUpCycle", func(t *testing.T) {
			owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)
			lead, err := fixtures.CreateTestLead(&owner.ID)
			require.NoError(t, err)

			overdue := utils.UTCNow().Add(-time.Hour)
			require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", lead.ID).Update("next_follow_up_at", overdue).Error)

			due, err := repo.ListDueFollowUps(ctx, utils.UTCNow(), 100)
			require.NoError(t, err)
			found := false
			for _, l := range due {
				if l.ID == lead.ID {
					found = true
				}
			}
			assert.True(t, found, "overdue lead should be due for follow-up")

			// After notification the lead drops out until the follow-up moves
			require.NoError(t, repo.MarkFollowUpNotified(ctx, lead.ID, utils.UTCNow()))
			due, err = repo.ListDueFollowUps(ctx, utils.UTCNow(), 100)
			require.NoError(t, err)
			for _, l := range due {
				assert.NotEqual(t, lead.ID, l.ID)
			}
		})

		t.Run("UnassignedLeadsNeverDue", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			overdue := utils.UTCNow().Add(-time.Hour)
			require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", lead.ID).Update("next_follow_up_at", overdue).Error)

			due, err := repo.ListDueFollowUps(ctx, utils.UTCNow(), 100)
			require.NoError(t, err)
			for _, l := range due {
				assert.NotEqual(t, lead.ID, l.ID)
			}
		})
	})
}

func TestLeadNoteRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewLeadNoteRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		lead, err := fixtures.CreateTestLead(&owner.ID)
		require.NoError(t, err)

		first, err := fixtures.CreateTestNote(lead.ID, owner.ID, "first touch")
		require.NoError(t, err)
		second, err := fixtures.CreateTestNote(lead.ID, owner.ID, "second touch")
		require.NoError(t, err)

		notes, err := repo.ListByLead(ctx, lead.ID)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, first.ID, notes[0].ID)
		assert.Equal(t, second.ID, notes[1].ID)

		notes, err = repo.ListByLead(ctx, 999999)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})
}

func TestAdminRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewAdminRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("ByUsername", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)

			found, err := repo.ByUsername(ctx, admin.Username)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, admin.ID, found.ID)

			found, err = repo.ByUsername(ctx, "no_such_operator")
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ListByRolesSkipsInactive", func(t *testing.T) {
			active, err := fixtures.CreateTestAdmin(string(authz.RoleSuperSuperAdmin))
			require.NoError(t, err)
			dormant, err := fixtures.CreateTestAdmin(string(authz.RoleSuperSuperAdmin))
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(dormant).Update("is_active", false).Error)

			admins, err := repo.ListByRoles(ctx, []string{string(authz.RoleSuperSuperAdmin)})
			require.NoError(t, err)
			ids := make(map[uint]bool, len(admins))
			for _, a := range admins {
				ids[a.ID] = true
			}
			assert.True(t, ids[active.ID])
			assert.False(t, ids[dormant.ID])
		})

		t.Run("UpdateLastLogin", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
			require.NoError(t, err)
			assert.Nil(t, admin.LastLoginAt)

			at := utils.UTCNow()
			require.NoError(t, repo.UpdateLastLogin(ctx, admin.ID, at))

			stored, err := repo.ByID(ctx, admin.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.LastLoginAt)
			assert.WithinDuration(t, at, *stored.LastLoginAt, time.Second)
		})
	})
}

func TestAuditLogRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewAuditLogRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		admin, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)

		_, err = fixtures.CreateTestAuditLog(&admin.ID, models.AuditActionAdminLoginSuccess, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&admin.ID, models.AuditActionAdminLoginFailed, false)
		require.NoError(t, err)

		t.Run("ListByAdmin", func(t *testing.T) {
			rows, err := repo.ListByAdmin(ctx, admin.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, rows, 2)
		})

		t.Run("ListFailedActions", func(t *testing.T) {
			rows, err := repo.ListFailedActions(ctx, 10, 0)
			require.NoError(t, err)
			require.NotEmpty(t, rows)
			for _, row := range rows {
				assert.True(t, row.IsFailed())
			}
		})
	})
}
