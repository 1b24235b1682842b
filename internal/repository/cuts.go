// internal/repository/cuts.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beef-back/internal/apperrors"
	"beef-back/internal/models"

	"gorm.io/gorm"
)

// HistoryLimit caps how many results ListByMember returns.
const HistoryLimit = 50

// CutRepository is the result store. Rows are append-only.
type CutRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewCutRepository(db *gorm.DB, timeout time.Duration) *CutRepository {
	return &CutRepository{db: db, timeout: timeout}
}

// Create appends cut. No deduplication: the same submission twice is two rows.
func (r *CutRepository) Create(ctx context.Context, cut *models.Cut) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(cut).Error; err != nil {
		return fmt.Errorf("%w: create cut: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

// ListByMember returns the newest results owned by memberID.
func (r *CutRepository) ListByMember(ctx context.Context, memberID string) ([]models.Cut, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var cuts []models.Cut
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC, id DESC").
		Limit(HistoryLimit).
		Find(&cuts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list cuts: %v", apperrors.ErrPersistence, err)
	}
	return cuts, nil
}

// FindForMember returns the result with id if memberID owns it.
func (r *CutRepository) FindForMember(ctx context.Context, id uint, memberID string) (*models.Cut, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var cut models.Cut
	err := r.db.WithContext(ctx).Where("id = ? AND member_id = ?", id, memberID).First(&cut).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find cut: %v", apperrors.ErrPersistence, err)
	}
	return &cut, nil
}
