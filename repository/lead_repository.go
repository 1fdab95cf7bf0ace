package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/utils"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByID retrieves a lead by its ID
func (r *LeadRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Lead, error) {
	db := r.getDB(ctx)
	var row models.Lead
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByUUID retrieves a lead by UUID
func (r *LeadRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Lead, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, err
	}
	rows, err := r.ByFilter(ctx, models.LeadFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *LeadRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.SourceType != nil {
		query = query.Where("source_type = ?", *filter.SourceType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.AssignedAdminID != nil {
		query = query.Where("assigned_admin_id = ?", *filter.AssignedAdminID)
	}
	if filter.Unassigned != nil && *filter.Unassigned {
		query = query.Where("assigned_admin_id IS NULL")
	}
	if filter.City != nil {
		query = query.Where("city = ?", *filter.City)
	}
	if filter.FollowUpBefore != nil {
		query = query.Where("next_follow_up_at IS NOT NULL AND next_follow_up_at <= ?", *filter.FollowUpBefore)
	}
	if filter.FollowUpPending != nil && *filter.FollowUpPending {
		query = query.Where("(follow_up_notified_at IS NULL OR follow_up_notified_at < next_follow_up_at)")
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves leads based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Lead{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOwned retrieves leads owned by the given operator. The ownership
// predicate is applied unconditionally here, at the data-access boundary,
// so callers cannot widen it.
func (r *LeadRepositoryImpl) ListOwned(ctx context.Context, adminID uint, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	filter.AssignedAdminID = &adminID
	filter.Unassigned = nil
	return r.ByFilter(ctx, filter, orderBy, limit, offset)
}

// UpdateStatus sets a lead's status and advances updated_at
func (r *LeadRepositoryImpl) UpdateStatus(ctx context.Context, leadID uint, status string, updatedAt time.Time) error {
	db := r.getDB(ctx)
	result := db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update lead status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateAssignment sets or clears a lead's owner and advances updated_at
func (r *LeadRepositoryImpl) UpdateAssignment(ctx context.Context, leadID uint, adminID *uint, updatedAt time.Time) error {
	db := r.getDB(ctx)
	result := db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Updates(map[string]any{
			"assigned_admin_id": adminID,
			"updated_at":        updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update lead assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkFollowUpNotified stamps the reminder time without touching updated_at
// (a reminder is bookkeeping, not an operator mutation).
func (r *LeadRepositoryImpl) MarkFollowUpNotified(ctx context.Context, leadID uint, notifiedAt time.Time) error {
	db := r.getDB(ctx)
	result := db.Model(&models.Lead{}).
		Where("id = ?", leadID).
		Update("follow_up_notified_at", notifiedAt)
	if result.Error != nil {
		return fmt.Errorf("failed to mark follow-up notified: %w", result.Error)
	}
	return nil
}

// ListDueFollowUps returns owned leads whose follow-up time has arrived and
// which have not been reminded for it yet.
func (r *LeadRepositoryImpl) ListDueFollowUps(ctx context.Context, due time.Time, limit int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Lead{}).
		Where("assigned_admin_id IS NOT NULL").
		Where("next_follow_up_at IS NOT NULL AND next_follow_up_at <= ?", due).
		Where("(follow_up_notified_at IS NULL OR follow_up_notified_at < next_follow_up_at)").
		Order("next_follow_up_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []*models.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of leads matching filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Lead{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any lead matches the filter
func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
