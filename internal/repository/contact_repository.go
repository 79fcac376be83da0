package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/villarosa/admin-api/internal/domain"
	"github.com/villarosa/admin-api/internal/observability"
)

var ErrContactMessageNotFound = errors.New("contact message not found")

type ContactRepository interface {
	Create(ctx context.Context, msg *domain.ContactMessage) error
	ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.ContactMessage], error)
	Delete(ctx context.Context, id string) error
}

type GormContactRepository struct{ db *gorm.DB }

func NewContactRepository(db *gorm.DB) ContactRepository { return &GormContactRepository{db: db} }

func (r *GormContactRepository) Create(ctx context.Context, msg *domain.ContactMessage) error {
	err := r.db.WithContext(ctx).Create(msg).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "contact_message", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "contact_message", "create", "success")
	return nil
}

func (r *GormContactRepository) ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.ContactMessage], error) {
	req = normalizePageRequest(req)
	result := PageResult[domain.ContactMessage]{Page: req.Page, PageSize: req.PageSize}

	base := r.db.WithContext(ctx).Model(&domain.ContactMessage{})
	if err := base.Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "contact_message", "list_paged", "error")
		return PageResult[domain.ContactMessage]{}, err
	}
	offset := (req.Page - 1) * req.PageSize
	err := base.Order("created_at DESC").Offset(offset).Limit(req.PageSize).Find(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "contact_message", "list_paged", "error")
		return PageResult[domain.ContactMessage]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "contact_message", "list_paged", "success")
	return result, nil
}

func (r *GormContactRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ContactMessage{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "contact_message", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "contact_message", "delete", "not_found")
		return ErrContactMessageNotFound
	}
	observability.RecordRepositoryOperation(ctx, "contact_message", "delete", "success")
	return nil
}
