package repository

import (
	"context"
	"errors"

	"github.com/propertyshodh/lead-pipeline/models"
	"gorm.io/gorm"
)

// LeadNoteRepositoryImpl implements LeadNoteRepository interface
type LeadNoteRepositoryImpl struct {
	*BaseRepository[models.LeadNote, models.LeadNoteFilter]
}

// NewLeadNoteRepository creates a new lead note repository
func NewLeadNoteRepository(db *gorm.DB) LeadNoteRepository {
	return &LeadNoteRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LeadNote, models.LeadNoteFilter](db),
	}
}

// ByID retrieves a note by its ID
func (r *LeadNoteRepositoryImpl) ByID(ctx context.Context, id uint) (*models.LeadNote, error) {
	db := r.getDB(ctx)
	var row models.LeadNote
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *LeadNoteRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadNoteFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.AdminID != nil {
		query = query.Where("admin_id = ?", *filter.AdminID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves notes based on filter criteria
func (r *LeadNoteRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadNoteFilter, orderBy string, limit, offset int) ([]*models.LeadNote, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.LeadNote{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "created_at ASC, id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.LeadNote
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByLead retrieves all notes for a lead in creation order
func (r *LeadNoteRepositoryImpl) ListByLead(ctx context.Context, leadID uint) ([]*models.LeadNote, error) {
	return r.ByFilter(ctx, models.LeadNoteFilter{LeadID: &leadID}, "created_at ASC, id ASC", 0, 0)
}

// Count returns number of notes matching filter
func (r *LeadNoteRepositoryImpl) Count(ctx context.Context, filter models.LeadNoteFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.LeadNote{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any note matches the filter
func (r *LeadNoteRepositoryImpl) Exists(ctx context.Context, filter models.LeadNoteFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
