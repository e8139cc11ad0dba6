package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/vicraft/backend/internal/models"
	"github.com/vicraft/backend/internal/repository"
	"github.com/vicraft/backend/internal/shortapi"
)

// MaintenanceService hosts the admin-triggered housekeeping jobs: sweeping
// stuck in-progress records against the provider and pruning old history.
type MaintenanceService struct {
	history       *repository.HistoryRepository
	client        *shortapi.Client
	generation    *GenerationService
	retentionDays int
	log           *slog.Logger
}

func NewMaintenanceService(
	history *repository.HistoryRepository,
	client *shortapi.Client,
	generation *GenerationService,
	retentionDays int,
	log *slog.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		history:       history,
		client:        client,
		generation:    generation,
		retentionDays: retentionDays,
		log:           log,
	}
}

// SweepPending re-queries every in-progress record and settles those whose
// jobs finished. Records whose query fails are skipped and retried on the
// next sweep.
func (s *MaintenanceService) SweepPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.history.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range pending {
		rec := &pending[i]
		status, err := s.client.QueryJob(ctx, rec.JobID)
		if err != nil {
			s.log.Warn("sweep query failed", "job_id", rec.JobID, "error", err)
			continue
		}
		if status.Status == shortapi.StateInProgress {
			continue
		}
		updated, err := s.generation.Settle(ctx, rec, status)
		if err != nil {
			s.log.Warn("sweep settle failed", "job_id", rec.JobID, "error", err)
			continue
		}
		if updated.Status != models.StatusInProgress {
			settled++
		}
	}

	s.log.Info("pending sweep done", "checked", len(pending), "settled", settled)
	return settled, nil
}

// CleanupHistory deletes settled records older than the retention window.
func (s *MaintenanceService) CleanupHistory(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.history.DeleteFinishedOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.Info("history cleanup done", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
