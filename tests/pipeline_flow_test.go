// Package tests contains test cases for models, repositories and business flows to avoid circular imports
package tests

import (
	"bytes"
	"strings"
	"testing"

	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/authz"
	businessflow "github.com/propertyshodh/lead-pipeline/business_flow"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/repository"
	testingutil "github.com/propertyshodh/lead-pipeline/testing"
	"github.com/propertyshodh/lead-pipeline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newPipelineFlow(t *testing.T, testDB *testingutil.TestDB, bus services.ChangeBus) businessflow.PipelineFlow {
	t.Helper()
	return businessflow.NewPipelineFlow(
		repository.NewLeadRepository(testDB.DB),
		repository.NewLeadNoteRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		bus,
		testDB.DB,
	)
}

func actorFor(admin *models.Admin) businessflow.Actor {
	role, _ := authz.ParseRole(admin.Role)
	return businessflow.Actor{ID: admin.ID, Role: role}
}

func TestPipelineFlow_SetStatus(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		bus := newChangeBus(t)
		flow := newPipelineFlow(t, testDB, bus)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		other, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		lead, err := fixtures.CreateTestLead(&owner.ID)
		require.NoError(t, err)

		t.Run("OwnerMovesLead", func(t *testing.T) {
			events, cancel, err := bus.Subscribe(ctx, owner.ID)
			require.NoError(t, err)
			defer cancel()

			resp, err := flow.SetStatus(ctx, actorFor(owner), lead.ID, &dto.SetLeadStatusRequest{Status: models.LeadStatusContacted}, nil)
			require.NoError(t, err)
			assert.Equal(t, models.LeadStatusContacted, resp.Lead.Status)

			ev := waitForLeadEvent(t, events)
			assert.Equal(t, services.LeadEventUpdated, ev.Type)
			require.NotNil(t, ev.Lead)
			assert.Equal(t, lead.ID, ev.Lead.ID)
			assert.Equal(t, models.LeadStatusContacted, ev.Lead.Status)

			// updated_at advanced past the original row
			stored, err := repository.NewLeadRepository(testDB.DB).ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.True(t, stored.UpdatedAt.After(lead.UpdatedAt))
		})

		t.Run("ForeignOperatorDenied", func(t *testing.T) {
			_, err := flow.SetStatus(ctx, actorFor(other), lead.ID, &dto.SetLeadStatusRequest{Status: models.LeadStatusClosed}, nil)
			assert.True(t, businessflow.IsNotOwner(err))
		})

		t.Run("UnknownStatusRejected", func(t *testing.T) {
			_, err := flow.SetStatus(ctx, actorFor(owner), lead.ID, &dto.SetLeadStatusRequest{Status: "archived"}, nil)
			assert.True(t, businessflow.IsInvalidStatus(err))
		})

		t.Run("MissingLead", func(t *testing.T) {
			_, err := flow.SetStatus(ctx, actorFor(owner), 999999, &dto.SetLeadStatusRequest{Status: models.LeadStatusNew}, nil)
			assert.True(t, businessflow.IsLeadNotFound(err))
		})
	})
}

func TestPipelineFlow_Notes(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		bus := newChangeBus(t)
		flow := newPipelineFlow(t, testDB, bus)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		other, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		lead, err := fixtures.CreateTestLead(&owner.ID)
		require.NoError(t, err)

		t.Run("AppendAndListInOrder", func(t *testing.T) {
			first, err := flow.AddNote(ctx, actorFor(owner), lead.ID, &dto.AddLeadNoteRequest{Note: "Called, asked for photos"}, nil)
			require.NoError(t, err)
			second, err := flow.AddNote(ctx, actorFor(owner), lead.ID, &dto.AddLeadNoteRequest{Note: "Site visit on Saturday"}, nil)
			require.NoError(t, err)

			resp, err := flow.ListNotes(ctx, actorFor(owner), lead.ID)
			require.NoError(t, err)
			require.Len(t, resp.Notes, 2)
			assert.Equal(t, first.Note.ID, resp.Notes[0].ID)
			assert.Equal(t, second.Note.ID, resp.Notes[1].ID)
		})

		t.Run("NoteDoesNotTouchLeadRow", func(t *testing.T) {
			before, err := repository.NewLeadRepository(testDB.DB).ByID(ctx, lead.ID)
			require.NoError(t, err)

			events, cancel, err := bus.Subscribe(ctx, owner.ID)
			require.NoError(t, err)
			defer cancel()

			_, err = flow.AddNote(ctx, actorFor(owner), lead.ID, &dto.AddLeadNoteRequest{Note: "Nothing new"}, nil)
			require.NoError(t, err)

			after, err := repository.NewLeadRepository(testDB.DB).ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
			requireNoLeadEvent(t, events)
		})

		t.Run("LengthBounds", func(t *testing.T) {
			_, err := flow.AddNote(ctx, actorFor(owner), lead.ID, &dto.AddLeadNoteRequest{Note: ""}, nil)
			assert.True(t, businessflow.IsInvalidNote(err))

			_, err = flow.AddNote(ctx, actorFor(owner), lead.ID, &dto.AddLeadNoteRequest{Note: strings.Repeat("x", 501)}, nil)
			assert.True(t, businessflow.IsInvalidNote(err))

			// 500 runes of multi-byte text is still within bounds
			_, err = flow.AddNote(ctx, actorFor(owner), lead.ID, &dto.AddLeadNoteRequest{Note: strings.Repeat("नोट", 166) + "ab"}, nil)
			assert.NoError(t, err)
		})

		t.Run("ForeignOperatorDenied", func(t *testing.T) {
			_, err := flow.AddNote(ctx, actorFor(other), lead.ID, &dto.AddLeadNoteRequest{Note: "should not land"}, nil)
			assert.True(t, businessflow.IsNotOwner(err))

			_, err = flow.ListNotes(ctx, actorFor(other), lead.ID)
			assert.True(t, businessflow.IsNotOwner(err))
		})
	})
}

func TestPipelineFlow_Unassign(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		bus := newChangeBus(t)
		flow := newPipelineFlow(t, testDB, bus)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		lead, err := fixtures.CreateTestLead(&owner.ID)
		require.NoError(t, err)

		events, cancel, err := bus.Subscribe(ctx, owner.ID)
		require.NoError(t, err)
		defer cancel()

		resp, err := flow.Unassign(ctx, actorFor(owner), lead.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, lead.ID, resp.LeadID)

		ev := waitForLeadEvent(t, events)
		assert.Equal(t, services.LeadEventRemoved, ev.Type)

		stored, err := repository.NewLeadRepository(testDB.DB).ByID(ctx, lead.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.AssignedAdminID)

		// Ownership is gone, so a second unassign is rejected
		_, err = flow.Unassign(ctx, actorFor(owner), lead.ID, nil)
		assert.True(t, businessflow.IsNotOwner(err))
	})
}

func TestPipelineFlow_ListMyLeads(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newPipelineFlow(t, testDB, nil)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		other, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)

		mine1, err := fixtures.CreateTestLead(&owner.ID)
		require.NoError(t, err)
		mine2, err := fixtures.CreateTestLead(&owner.ID)
		require.NoError(t, err)
		_, err = fixtures.CreateTestLead(&other.ID)
		require.NoError(t, err)
		_, err = fixtures.CreateTestLead(nil)
		require.NoError(t, err)

		t.Run("OnlyOwnLeadsVisible", func(t *testing.T) {
			resp, err := flow.ListMyLeads(ctx, actorFor(owner), nil, nil)
			require.NoError(t, err)
			assert.Equal(t, int64(2), resp.Total)
			require.Len(t, resp.Leads, 2)
			for _, l := range resp.Leads {
				require.NotNil(t, l.AssignedAdminID)
				assert.Equal(t, owner.ID, *l.AssignedAdminID)
			}
		})

		t.Run("StatusFilter", func(t *testing.T) {
			require.NoError(t, testDB.DB.Model(&models.Lead{}).Where("id = ?", mine2.ID).Update("status", models.LeadStatusQualified).Error)

			status := models.LeadStatusQualified
			resp, err := flow.ListMyLeads(ctx, actorFor(owner), &dto.ListMyLeadsRequest{Status: &status}, nil)
			require.NoError(t, err)
			require.Len(t, resp.Leads, 1)
			assert.Equal(t, mine2.ID, resp.Leads[0].ID)
		})

		t.Run("QueryRefinesPage", func(t *testing.T) {
			query := strings.ToUpper(mine1.Name)
			resp, err := flow.ListMyLeads(ctx, actorFor(owner), &dto.ListMyLeadsRequest{Query: &query}, nil)
			require.NoError(t, err)
			require.Len(t, resp.Leads, 1)
			assert.Equal(t, mine1.ID, resp.Leads[0].ID)
		})

		t.Run("PageSizeCap", func(t *testing.T) {
			_, err := flow.ListMyLeads(ctx, actorFor(owner), &dto.ListMyLeadsRequest{PageSize: utils.MaxPageSize + 1}, nil)
			assert.True(t, businessflow.IsInvalidPageSize(err))
		})
	})
}

func TestPipelineFlow_ExportMyLeads(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newPipelineFlow(t, testDB, nil)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		other, err := fixtures.CreateTestAdmin(string(authz.RoleAdmin))
		require.NoError(t, err)
		mine, err := fixtures.CreateTestLead(&owner.ID)
		require.NoError(t, err)
		foreign, err := fixtures.CreateTestLead(&other.ID)
		require.NoError(t, err)

		data, filename, err := flow.ExportMyLeads(ctx, actorFor(owner), nil)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filename, "leads_"))
		assert.True(t, strings.HasSuffix(filename, ".xlsx"))

		wb, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer wb.Close()

		rows, err := wb.GetRows(wb.GetSheetName(0))
		require.NoError(t, err)
		require.Len(t, rows, 2) // header plus the one owned lead
		assert.Equal(t, "Name", rows[0][1])
		assert.Equal(t, mine.Name, rows[1][1])
		assert.NotEqual(t, foreign.Name, rows[1][1])
	})
}
