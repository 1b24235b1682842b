// internal/repository/members.go
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

// MemberRepository is the credential store.
type MemberRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewMemberRepository(db *gorm.DB, timeout time.Duration) *MemberRepository {
	return &MemberRepository{db: db, timeout: timeout}
}

// Create inserts member and fills in its ID.
// Returns apperrors.ErrDuplicateEmail when the email is taken.
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Member{}).Where("email = ?", member.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: check email: %v", apperrors.ErrPersistence, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateEmail
	}

	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateEmail
		}
		return fmt.Errorf("%w: create member: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

// FindByEmail returns nil, nil when no member has email.
func (r *MemberRepository) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var member models.Member
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find member: %v", apperrors.ErrPersistence, err)
	}
	return &member, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
