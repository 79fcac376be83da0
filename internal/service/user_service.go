package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/villarosa/admin-api/internal/identity"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/repository"
)

// bulkDeleteConcurrency caps the fan-out so a large batch cannot flood
// the identity backend.
const bulkDeleteConcurrency = 8

// UserUpdate is a partial user mutation; nil fields are untouched.
type UserUpdate struct {
	Email    *string
	Disabled *bool
	Admin    *bool
}

// BulkOutcome tags one target's result in a bulk deletion report.
type BulkOutcome string

const (
	OutcomeDeleted        BulkOutcome = "deleted"
	OutcomeSkippedSelf    BulkOutcome = "skipped_self"
	OutcomeSkippedAdmin   BulkOutcome = "skipped_admin"
	OutcomePartialFailure BulkOutcome = "partial_failure"
	OutcomeFailed         BulkOutcome = "failed"
)

// TargetResult is the per-target entry of a bulk deletion report. For
// partial failures the two store halves are reported independently so
// operators can reconcile by hand.
type TargetResult struct {
	SubjectID  string      `json:"subject_id"`
	Outcome    BulkOutcome `json:"outcome"`
	Reason     string      `json:"reason,omitempty"`
	IdentityOK bool        `json:"identity_ok"`
	DocumentOK bool        `json:"document_ok"`
}

type BulkDeleteReport struct {
	Results   []TargetResult `json:"results"`
	Deleted   int            `json:"deleted"`
	Skipped   int            `json:"skipped"`
	Partial   int            `json:"partial"`
	Failed    int            `json:"failed"`
	Requested int            `json:"requested"`
}

type UserService struct {
	identity        identity.Directory
	admins          repository.AdminRepository
	directory       *AdminDirectory
	protectedEmails map[string]struct{}
}

func NewUserService(dir identity.Directory, admins repository.AdminRepository, directory *AdminDirectory, protectedEmails []string) *UserService {
	protected := make(map[string]struct{}, len(protectedEmails))
	for _, e := range protectedEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			protected[e] = struct{}{}
		}
	}
	return &UserService{identity: dir, admins: admins, directory: directory, protectedEmails: protected}
}

func (s *UserService) List(ctx context.Context) ([]identity.User, error) {
	return s.identity.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, subjectID string) (*identity.User, error) {
	return s.identity.GetUser(ctx, subjectID)
}

// Update applies a partial mutation. The caller can never disable or
// demote their own account, regardless of admin status.
func (s *UserService) Update(ctx context.Context, callerID, targetID string, update UserUpdate) (*identity.User, error) {
	if callerID == targetID {
		if (update.Disabled != nil && *update.Disabled) || (update.Admin != nil && !*update.Admin) {
			return nil, ErrSelfProtection
		}
	}
	patch := identity.UserPatch{Email: update.Email, Disabled: update.Disabled}
	user, err := s.identity.UpdateUser(ctx, targetID, patch)
	if err != nil {
		return nil, err
	}
	if update.Admin != nil {
		claims := user.CustomClaims
		if claims == nil {
			claims = map[string]any{}
		}
		claims["admin"] = *update.Admin
		if err := s.identity.SetCustomClaims(ctx, targetID, claims); err != nil {
			return nil, err
		}
		user.CustomClaims = claims
		if err := s.syncAdminRecord(ctx, user, *update.Admin); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *UserService) syncAdminRecord(ctx context.Context, user *identity.User, admin bool) error {
	if admin {
		_, err := s.admins.UpsertLogin(ctx, user.SubjectID, user.Email, time.Now().UTC())
		return err
	}
	rec, err := s.admins.Find(ctx, user.SubjectID)
	if errors.Is(err, repository.ErrAdminRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	rec.IsAdmin = false
	rec.Role = "staff"
	return s.admins.Save(ctx, rec)
}

// Delete removes a single user from both stores. Self-deletion is
// rejected before anything is touched.
func (s *UserService) Delete(ctx context.Context, callerID, targetID string) error {
	if callerID == targetID {
		return ErrSelfProtection
	}
	if err := s.identity.DeleteUser(ctx, targetID); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		return err
	}
	if err := s.admins.Delete(ctx, targetID); err != nil && !errors.Is(err, repository.ErrAdminRecordNotFound) {
		return err
	}
	return nil
}

// BulkDelete removes a batch of users. The caller's own id is stripped
// first; remaining targets that are admins (by claim or protected
// address) are skipped with a reason; eligible targets are deleted
// concurrently, with the identity and document halves tracked
// independently. Deletes already in flight finish even if the request is
// cancelled.
func (s *UserService) BulkDelete(ctx context.Context, callerID string, targetIDs []string) (*BulkDeleteReport, error) {
	report := &BulkDeleteReport{Requested: len(targetIDs)}

	seen := make(map[string]struct{}, len(targetIDs))
	var eligible []string
	for _, id := range targetIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if id == callerID {
			report.Results = append(report.Results, TargetResult{
				SubjectID: id,
				Outcome:   OutcomeSkippedSelf,
				Reason:    "cannot delete own account",
			})
			report.Skipped++
			observability.RecordBulkDeleteOutcome(ctx, string(OutcomeSkippedSelf))
			continue
		}
		eligible = append(eligible, id)
	}
	if len(eligible) == 0 {
		return nil, ErrNoValidTargets
	}

	// Admin screening happens before any deletion starts, so a batch that
	// mixes admins and regular users deletes nothing it should not.
	var deletable []string
	for _, id := range eligible {
		skip, reason := s.adminScreen(ctx, id)
		if skip {
			report.Results = append(report.Results, TargetResult{
				SubjectID: id,
				Outcome:   OutcomeSkippedAdmin,
				Reason:    reason,
			})
			report.Skipped++
			observability.RecordBulkDeleteOutcome(ctx, string(OutcomeSkippedAdmin))
			continue
		}
		deletable = append(deletable, id)
	}

	results := make([]TargetResult, len(deletable))
	// Detached from the request context: a cancelled request must not
	// leave a target half-deleted when the work already started.
	deleteCtx := context.WithoutCancel(ctx)
	g, gctx := errgroup.WithContext(deleteCtx)
	g.SetLimit(bulkDeleteConcurrency)
	for i, id := range deletable {
		g.Go(func() error {
			results[i] = s.deleteBoth(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		report.Results = append(report.Results, res)
		switch res.Outcome {
		case OutcomeDeleted:
			report.Deleted++
		case OutcomePartialFailure:
			report.Partial++
			slog.ErrorContext(ctx, "bulk delete partial failure, manual reconciliation needed",
				"subject", res.SubjectID,
				"identity_ok", res.IdentityOK,
				"document_ok", res.DocumentOK,
			)
		case OutcomeFailed:
			report.Failed++
		}
		observability.RecordBulkDeleteOutcome(ctx, string(res.Outcome))
	}
	return report, nil
}

// adminScreen reports whether a target must be skipped, with the reason.
// Lookup errors screen the target out: deletion never proceeds on an
// unverifiable admin status.
func (s *UserService) adminScreen(ctx context.Context, subjectID string) (bool, string) {
	user, err := s.identity.GetUser(ctx, subjectID)
	if err == nil {
		if _, protected := s.protectedEmails[strings.ToLower(user.Email)]; protected {
			return true, "protected address"
		}
	} else if !errors.Is(err, identity.ErrUserNotFound) {
		return true, "admin status unverifiable"
	}
	isAdmin, err := s.directory.IsAdmin(ctx, subjectID)
	if err != nil {
		return true, "admin status unverifiable"
	}
	if isAdmin {
		return true, "target is an admin"
	}
	return false, ""
}

// deleteBoth removes one target from both stores. The halves are
// independent: neither aborts the other, and identity "not found" counts
// as success so retries converge.
func (s *UserService) deleteBoth(ctx context.Context, subjectID string) TargetResult {
	res := TargetResult{SubjectID: subjectID}

	err := s.identity.DeleteUser(ctx, subjectID)
	res.IdentityOK = err == nil || errors.Is(err, identity.ErrUserNotFound)

	err = s.admins.Delete(ctx, subjectID)
	res.DocumentOK = err == nil || errors.Is(err, repository.ErrAdminRecordNotFound)

	switch {
	case res.IdentityOK && res.DocumentOK:
		res.Outcome = OutcomeDeleted
	case res.IdentityOK || res.DocumentOK:
		res.Outcome = OutcomePartialFailure
		res.Reason = "one store failed"
	default:
		res.Outcome = OutcomeFailed
		res.Reason = "both stores failed"
	}
	return res
}
