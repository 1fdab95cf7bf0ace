// Package businessflow contains the core business logic and use cases for the lead pipeline
package businessflow

import (
	"sync"

	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/models"
)

// PipelineBoard is the per-session in-memory view of one operator's
// pipeline: the four status columns, fed by an authoritative snapshot and
// kept current by change-bus events. Optimistic moves are applied locally
// and either confirmed by the matching bus event or rolled back with Revert
// when the server rejects the operation.
type PipelineBoard struct {
	mu sync.RWMutex

	// leads holds the current (possibly optimistic) copy per lead ID
	leads map[uint]*models.Lead

	// confirmed holds the last server-confirmed copy for leads with a
	// pending optimistic move
	confirmed map[uint]*models.Lead
}

// NewPipelineBoard creates an empty board
func NewPipelineBoard() *PipelineBoard {
	return &PipelineBoard{
		leads:     make(map[uint]*models.Lead),
		confirmed: make(map[uint]*models.Lead),
	}
}

// Load replaces the whole board with an authoritative snapshot. Any pending
// optimistic state is discarded; this is the resync path after a lost
// subscription as well as the initial fill.
func (b *PipelineBoard) Load(leads []*models.Lead) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.leads = make(map[uint]*models.Lead, len(leads))
	b.confirmed = make(map[uint]*models.Lead)
	for _, l := range leads {
		cp := *l
		b.leads[l.ID] = &cp
	}
}

// ApplyOptimistic moves a lead to a new column locally before the server
// confirms. The previous copy is remembered so Revert can restore it.
// Returns false when the lead is not on the board or the status is unknown.
func (b *PipelineBoard) ApplyOptimistic(leadID uint, newStatus string) bool {
	if !models.IsValidLeadStatus(newStatus) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	lead, ok := b.leads[leadID]
	if !ok {
		return false
	}

	// Keep only the oldest confirmed copy if moves stack up
	if _, pending := b.confirmed[leadID]; !pending {
		cp := *lead
		b.confirmed[leadID] = &cp
	}

	moved := *lead
	moved.Status = newStatus
	b.leads[leadID] = &moved
	return true
}

// Revert restores the last server-confirmed copy of a lead after a rejected
// optimistic move. A lead with no pending move is left untouched.
func (b *PipelineBoard) Revert(leadID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, ok := b.confirmed[leadID]
	if !ok {
		return
	}
	b.leads[leadID] = prev
	delete(b.confirmed, leadID)
}

// ApplyEvent folds a change-bus event into the board. Updated events replace
// the stored copy wholesale and clear any pending optimistic state, so a
// confirmation and a concurrent foreign write are handled identically
// (last writer wins). Removed events delete immediately.
func (b *PipelineBoard) ApplyEvent(ev services.LeadEvent) {
	if ev.Lead == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev.Type {
	case services.LeadEventCreated, services.LeadEventUpdated:
		cp := *ev.Lead
		b.leads[cp.ID] = &cp
		delete(b.confirmed, cp.ID)
	case services.LeadEventRemoved:
		delete(b.leads, ev.Lead.ID)
		delete(b.confirmed, ev.Lead.ID)
	}
}

// Column returns the leads currently sitting in one status column
func (b *PipelineBoard) Column(status string) []*models.Lead {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*models.Lead
	for _, l := range b.leads {
		if l.Status == status {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out
}

// Snapshot returns all four columns keyed by status, render-ready
func (b *PipelineBoard) Snapshot() map[string][]*models.Lead {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string][]*models.Lead, len(models.LeadStatuses))
	for _, s := range models.LeadStatuses {
		out[s] = []*models.Lead{}
	}
	for _, l := range b.leads {
		cp := *l
		out[cp.Status] = append(out[cp.Status], &cp)
	}
	return out
}

// Len returns the number of leads on the board
func (b *PipelineBoard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.leads)
}

// HasPending reports whether a lead has an unconfirmed optimistic move
func (b *PipelineBoard) HasPending(leadID uint) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.confirmed[leadID]
	return ok
}
