package businessflow

import (
	"testing"

	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boardLead(id uint, status string) *models.Lead {
	owner := uint(1)
	return &models.Lead{
		ID:              id,
		SourceType:      models.LeadSourceManual,
		Name:            "Lead",
		Phone:           "+919800000000",
		Status:          status,
		Priority:        models.LeadPriorityMedium,
		AssignedAdminID: &owner,
	}
}

func TestPipelineBoard_LoadAndSnapshot(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{
		boardLead(1, models.LeadStatusNew),
		boardLead(2, models.LeadStatusNew),
		boardLead(3, models.LeadStatusQualified),
	})

	assert.Equal(t, 3, b.Len())

	snap := b.Snapshot()
	require.Len(t, snap, 4)
	assert.Len(t, snap[models.LeadStatusNew], 2)
	assert.Len(t, snap[models.LeadStatusContacted], 0)
	assert.Len(t, snap[models.LeadStatusQualified], 1)
	assert.Len(t, snap[models.LeadStatusClosed], 0)
}

func TestPipelineBoard_OptimisticMoveConfirmed(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusNew)})

	require.True(t, b.ApplyOptimistic(1, models.LeadStatusContacted))
	assert.True(t, b.HasPending(1))
	assert.Len(t, b.Column(models.LeadStatusContacted), 1)
	assert.Len(t, b.Column(models.LeadStatusNew), 0)

	// Server confirms via the bus: pending state clears, lead stays moved
	confirmed := boardLead(1, models.LeadStatusContacted)
	b.ApplyEvent(services.LeadEvent{Type: services.LeadEventUpdated, Lead: confirmed, OccurredAt: utils.UTCNow()})

	assert.False(t, b.HasPending(1))
	assert.Len(t, b.Column(models.LeadStatusContacted), 1)
}

func TestPipelineBoard_OptimisticMoveReverted(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusNew)})

	require.True(t, b.ApplyOptimistic(1, models.LeadStatusClosed))
	assert.Len(t, b.Column(models.LeadStatusClosed), 1)

	// Server rejected the move: the card returns to its confirmed column
	b.Revert(1)

	assert.False(t, b.HasPending(1))
	assert.Len(t, b.Column(models.LeadStatusNew), 1)
	assert.Len(t, b.Column(models.LeadStatusClosed), 0)
}

func TestPipelineBoard_RevertWithoutPendingIsNoop(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusContacted)})

	b.Revert(1)
	assert.Len(t, b.Column(models.LeadStatusContacted), 1)
}

func TestPipelineBoard_StackedOptimisticMovesRevertToConfirmed(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusNew)})

	require.True(t, b.ApplyOptimistic(1, models.LeadStatusContacted))
	require.True(t, b.ApplyOptimistic(1, models.LeadStatusQualified))

	// Revert drops all the way back to the last confirmed state
	b.Revert(1)
	assert.Len(t, b.Column(models.LeadStatusNew), 1)
}

func TestPipelineBoard_ApplyOptimisticRejectsBadInput(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusNew)})

	assert.False(t, b.ApplyOptimistic(1, "archived"))
	assert.False(t, b.ApplyOptimistic(99, models.LeadStatusContacted))
	assert.False(t, b.HasPending(1))
}

func TestPipelineBoard_CreatedAndRemovedEvents(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusNew)})

	b.ApplyEvent(services.LeadEvent{Type: services.LeadEventCreated, Lead: boardLead(2, models.LeadStatusNew)})
	assert.Equal(t, 2, b.Len())

	b.ApplyEvent(services.LeadEvent{Type: services.LeadEventRemoved, Lead: boardLead(1, models.LeadStatusNew)})
	assert.Equal(t, 1, b.Len())
	assert.Len(t, b.Column(models.LeadStatusNew), 1)
}

func TestPipelineBoard_ForeignUpdateOverridesOptimistic(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusNew)})

	require.True(t, b.ApplyOptimistic(1, models.LeadStatusContacted))

	// Another session moved the same lead elsewhere; last writer wins
	b.ApplyEvent(services.LeadEvent{Type: services.LeadEventUpdated, Lead: boardLead(1, models.LeadStatusQualified)})

	assert.False(t, b.HasPending(1))
	assert.Len(t, b.Column(models.LeadStatusQualified), 1)
	assert.Len(t, b.Column(models.LeadStatusContacted), 0)

	// A late Revert must not resurrect the stale copy
	b.Revert(1)
	assert.Len(t, b.Column(models.LeadStatusQualified), 1)
}

func TestPipelineBoard_LoadDiscardsPendingState(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusNew)})
	require.True(t, b.ApplyOptimistic(1, models.LeadStatusClosed))

	b.Load([]*models.Lead{boardLead(1, models.LeadStatusContacted)})
	assert.False(t, b.HasPending(1))
	assert.Len(t, b.Column(models.LeadStatusContacted), 1)
}

func TestPipelineBoard_EventWithNilLeadIgnored(t *testing.T) {
	b := NewPipelineBoard()
	b.Load([]*models.Lead{boardLead(1, models.LeadStatusNew)})

	b.ApplyEvent(services.LeadEvent{Type: services.LeadEventUpdated})
	assert.Equal(t, 1, b.Len())
}
