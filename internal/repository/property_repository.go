package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/villarosa/admin-api/internal/domain"
	"github.com/villarosa/admin-api/internal/observability"
)

var ErrPropertyNotFound = errors.New("property not found")

type PropertyRepository interface {
	Find(ctx context.Context, id string) (*domain.Property, error)
	Create(ctx context.Context, p *domain.Property) error
	Save(ctx context.Context, p *domain.Property) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Property, error)
	// UpdateBookings replaces the embedded booked-range list of one property.
	UpdateBookings(ctx context.Context, id string, bookings domain.BookingList) error
	// AllImageRefs returns every image reference across all property
	// documents, for the orphaned-object sweep.
	AllImageRefs(ctx context.Context) (map[string]struct{}, error)
}

type GormPropertyRepository struct{ db *gorm.DB }

func NewPropertyRepository(db *gorm.DB) PropertyRepository { return &GormPropertyRepository{db: db} }

func (r *GormPropertyRepository) Find(ctx context.Context, id string) (*domain.Property, error) {
	var p domain.Property
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "property", "find", "not_found")
			return nil, ErrPropertyNotFound
		}
		observability.RecordRepositoryOperation(ctx, "property", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "property", "find", "success")
	return &p, nil
}

func (r *GormPropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "property", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "property", "create", "success")
	return nil
}

func (r *GormPropertyRepository) Save(ctx context.Context, p *domain.Property) error {
	err := r.db.WithContext(ctx).Save(p).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "property", "save", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "property", "save", "success")
	return nil
}

func (r *GormPropertyRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Property{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "property", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "property", "delete", "not_found")
		return ErrPropertyNotFound
	}
	observability.RecordRepositoryOperation(ctx, "property", "delete", "success")
	return nil
}

func (r *GormPropertyRepository) List(ctx context.Context) ([]domain.Property, error) {
	var props []domain.Property
	err := r.db.WithContext(ctx).Order("name ASC").Find(&props).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "property", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "property", "list", "success")
	return props, nil
}

func (r *GormPropertyRepository) UpdateBookings(ctx context.Context, id string, bookings domain.BookingList) error {
	res := r.db.WithContext(ctx).Model(&domain.Property{}).
		Where("id = ?", id).
		Update("bookings", bookings)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "property", "update_bookings", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "property", "update_bookings", "not_found")
		return ErrPropertyNotFound
	}
	observability.RecordRepositoryOperation(ctx, "property", "update_bookings", "success")
	return nil
}

func (r *GormPropertyRepository) AllImageRefs(ctx context.Context) (map[string]struct{}, error) {
	props, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	refs := make(map[string]struct{})
	for _, p := range props {
		for _, img := range p.Images {
			refs[img] = struct{}{}
		}
	}
	return refs, nil
}
