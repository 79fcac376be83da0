package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/villarosa/admin-api/internal/domain"
	"github.com/villarosa/admin-api/internal/observability"
)

var ErrAdminRecordNotFound = errors.New("admin record not found")

type AdminRepository interface {
	Find(ctx context.Context, subjectID string) (*domain.AdminRecord, error)
	// UpsertLogin creates the record if absent and merges role=admin,
	// is_admin=true and last_login on top of whatever is already stored.
	UpsertLogin(ctx context.Context, subjectID, email string, at time.Time) (*domain.AdminRecord, error)
	Save(ctx context.Context, rec *domain.AdminRecord) error
	Delete(ctx context.Context, subjectID string) error
	List(ctx context.Context) ([]domain.AdminRecord, error)
}

type GormAdminRepository struct{ db *gorm.DB }

func NewAdminRepository(db *gorm.DB) AdminRepository { return &GormAdminRepository{db: db} }

func (r *GormAdminRepository) Find(ctx context.Context, subjectID string) (*domain.AdminRecord, error) {
	var rec domain.AdminRecord
	err := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "admin_record", "find", "not_found")
			return nil, ErrAdminRecordNotFound
		}
		observability.RecordRepositoryOperation(ctx, "admin_record", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "admin_record", "find", "success")
	return &rec, nil
}

func (r *GormAdminRepository) UpsertLogin(ctx context.Context, subjectID, email string, at time.Time) (*domain.AdminRecord, error) {
	rec := domain.AdminRecord{
		SubjectID: subjectID,
		Email:     email,
		Role:      domain.RoleAdmin,
		IsAdmin:   true,
		LastLogin: &at,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "role", "is_admin", "last_login", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "admin_record", "upsert_login", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "admin_record", "upsert_login", "success")
	return r.Find(ctx, subjectID)
}

func (r *GormAdminRepository) Save(ctx context.Context, rec *domain.AdminRecord) error {
	err := r.db.WithContext(ctx).Save(rec).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "admin_record", "save", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "admin_record", "save", "success")
	return nil
}

func (r *GormAdminRepository) Delete(ctx context.Context, subjectID string) error {
	res := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).Delete(&domain.AdminRecord{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "admin_record", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "admin_record", "delete", "not_found")
		return ErrAdminRecordNotFound
	}
	observability.RecordRepositoryOperation(ctx, "admin_record", "delete", "success")
	return nil
}

func (r *GormAdminRepository) List(ctx context.Context) ([]domain.AdminRecord, error) {
	var recs []domain.AdminRecord
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&recs).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "admin_record", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "admin_record", "list", "success")
	return recs, nil
}
