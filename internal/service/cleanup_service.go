package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/repository"
	"github.com/villarosa/admin-api/internal/storage"
)

const cleanupConcurrency = 4

// CleanupReport summarizes one orphaned-image sweep.
type CleanupReport struct {
	Scanned    int `json:"scanned"`
	Referenced int `json:"referenced"`
	Deleted    int `json:"deleted"`
	TooRecent  int `json:"too_recent"`
	Failed     int `json:"failed"`
}

// CleanupService deletes bucket objects no property document references
// anymore. A grace period protects objects uploaded moments before their
// property document is saved.
type CleanupService struct {
	objects     storage.ObjectStore
	properties  repository.PropertyRepository
	gracePeriod time.Duration
	now         func() time.Time
}

func NewCleanupService(objects storage.ObjectStore, properties repository.PropertyRepository, gracePeriod time.Duration) *CleanupService {
	return &CleanupService{
		objects:     objects,
		properties:  properties,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

func (s *CleanupService) Run(ctx context.Context) (*CleanupReport, error) {
	refs, err := s.properties.AllImageRefs(ctx)
	if err != nil {
		observability.RecordCleanupRun(ctx, "error", 0)
		return nil, err
	}
	objects, err := s.objects.ListObjects(ctx)
	if err != nil {
		observability.RecordCleanupRun(ctx, "error", 0)
		return nil, err
	}

	report := &CleanupReport{Scanned: len(objects)}
	cutoff := s.now().Add(-s.gracePeriod)

	var candidates []storage.ObjectInfo
	for _, obj := range objects {
		if _, ok := refs[obj.Key]; ok {
			report.Referenced++
			continue
		}
		if obj.LastModified.After(cutoff) {
			report.TooRecent++
			continue
		}
		candidates = append(candidates, obj)
	}

	var deleted, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cleanupConcurrency)
	for _, obj := range candidates {
		g.Go(func() error {
			if err := s.objects.RemoveObject(gctx, obj.Key); err != nil {
				slog.WarnContext(gctx, "orphaned image delete failed", "key", obj.Key, "error", err)
				failed.Add(1)
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report.Deleted = int(deleted.Load())
	report.Failed = int(failed.Load())
	observability.RecordCleanupRun(ctx, "success", int64(report.Deleted))
	slog.InfoContext(ctx, "image cleanup finished",
		"scanned", report.Scanned,
		"referenced", report.Referenced,
		"deleted", report.Deleted,
		"too_recent", report.TooRecent,
		"failed", report.Failed,
	)
	return report, nil
}
