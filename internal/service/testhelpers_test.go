package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/villarosa/admin-api/internal/domain"
	"github.com/villarosa/admin-api/internal/identity"
	"github.com/villarosa/admin-api/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.AdminRecord{}, &domain.Property{}, &domain.ContactMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return db
}

// fakeIdentity is an in-memory identity.Directory with per-subject error
// injection for the failure-path tests.
type fakeIdentity struct {
	mu        sync.Mutex
	users     map[string]*identity.User
	failGet   map[string]error
	failDel   map[string]error
	delCalled map[string]int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		users:     map[string]*identity.User{},
		failGet:   map[string]error{},
		failDel:   map[string]error{},
		delCalled: map[string]int{},
	}
}

func (f *fakeIdentity) add(u identity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := u
	f.users[u.SubjectID] = &cp
}

func (f *fakeIdentity) GetUser(_ context.Context, subjectID string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failGet[subjectID]; ok {
		return nil, err
	}
	u, ok := f.users[subjectID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeIdentity) GetUserByEmail(_ context.Context, email string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (f *fakeIdentity) ListUsers(_ context.Context) ([]identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]identity.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].SubjectID < users[j].SubjectID })
	return users, nil
}

func (f *fakeIdentity) CreateUser(_ context.Context, user *identity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	cp := *user
	f.users[user.SubjectID] = &cp
	return nil
}

func (f *fakeIdentity) UpdateUser(_ context.Context, subjectID string, patch identity.UserPatch) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[subjectID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.EmailVerified != nil {
		u.EmailVerified = *patch.EmailVerified
	}
	if patch.Disabled != nil {
		u.Disabled = *patch.Disabled
	}
	cp := *u
	return &cp, nil
}

func (f *fakeIdentity) DeleteUser(_ context.Context, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delCalled[subjectID]++
	if err, ok := f.failDel[subjectID]; ok {
		return err
	}
	if _, ok := f.users[subjectID]; !ok {
		return identity.ErrUserNotFound
	}
	delete(f.users, subjectID)
	return nil
}

func (f *fakeIdentity) SetCustomClaims(_ context.Context, subjectID string, claims map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[subjectID]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.CustomClaims = claims
	return nil
}

// fakeAdminRepo is an in-memory repository.AdminRepository.
type fakeAdminRepo struct {
	mu       sync.Mutex
	records  map[string]*domain.AdminRecord
	failFind map[string]error
	failDel  map[string]error
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{
		records:  map[string]*domain.AdminRecord{},
		failFind: map[string]error{},
		failDel:  map[string]error{},
	}
}

func (f *fakeAdminRepo) add(rec domain.AdminRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := rec
	f.records[rec.SubjectID] = &cp
}

func (f *fakeAdminRepo) Find(_ context.Context, subjectID string) (*domain.AdminRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFind[subjectID]; ok {
		return nil, err
	}
	rec, ok := f.records[subjectID]
	if !ok {
		return nil, repository.ErrAdminRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAdminRepo) UpsertLogin(_ context.Context, subjectID, email string, at time.Time) (*domain.AdminRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[subjectID]
	if !ok {
		rec = &domain.AdminRecord{SubjectID: subjectID, CreatedAt: at}
		f.records[subjectID] = rec
	}
	rec.Email = email
	rec.Role = domain.RoleAdmin
	rec.IsAdmin = true
	rec.LastLogin = &at
	rec.UpdatedAt = at
	cp := *rec
	return &cp, nil
}

func (f *fakeAdminRepo) Save(_ context.Context, rec *domain.AdminRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.records[rec.SubjectID] = &cp
	return nil
}

func (f *fakeAdminRepo) Delete(_ context.Context, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failDel[subjectID]; ok {
		return err
	}
	if _, ok := f.records[subjectID]; !ok {
		return repository.ErrAdminRecordNotFound
	}
	delete(f.records, subjectID)
	return nil
}

func (f *fakeAdminRepo) List(_ context.Context) ([]domain.AdminRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := make([]domain.AdminRecord, 0, len(f.records))
	for _, rec := range f.records {
		recs = append(recs, *rec)
	}
	return recs, nil
}

var errBackend = errors.New("backend unavailable")
