package service

import (
	"context"
	"errors"

	"github.com/villarosa/admin-api/internal/identity"
	"github.com/villarosa/admin-api/internal/repository"
)

// AdminDirectory reconciles the two independent sources of admin status:
// the identity provider's custom claim and the document store's isAdmin
// flag. A subject is admin when either source says so. Lookup failures
// surface as errors so callers deny access; they never grant it.
type AdminDirectory struct {
	identity identity.Directory
	admins   repository.AdminRepository
}

func NewAdminDirectory(dir identity.Directory, admins repository.AdminRepository) *AdminDirectory {
	return &AdminDirectory{identity: dir, admins: admins}
}

func (d *AdminDirectory) IsAdmin(ctx context.Context, subjectID string) (bool, error) {
	claim, claimErr := d.claimSaysAdmin(ctx, subjectID)
	if claimErr == nil && claim {
		return true, nil
	}
	flag, flagErr := d.documentSaysAdmin(ctx, subjectID)
	if flagErr == nil && flag {
		return true, nil
	}
	if claimErr != nil {
		return false, claimErr
	}
	if flagErr != nil {
		return false, flagErr
	}
	return false, nil
}

func (d *AdminDirectory) claimSaysAdmin(ctx context.Context, subjectID string) (bool, error) {
	u, err := d.identity.GetUser(ctx, subjectID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if u.Disabled {
		return false, nil
	}
	return u.AdminClaim(), nil
}

func (d *AdminDirectory) documentSaysAdmin(ctx context.Context, subjectID string) (bool, error) {
	rec, err := d.admins.Find(ctx, subjectID)
	if errors.Is(err, repository.ErrAdminRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.IsAdmin, nil
}
