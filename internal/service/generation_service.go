package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vicraft/backend/internal/models"
	"github.com/vicraft/backend/internal/params"
	"github.com/vicraft/backend/internal/pricing"
	"github.com/vicraft/backend/internal/repository"
	"github.com/vicraft/backend/internal/shortapi"
)

// ErrUnknownModel is returned when the requested model is not in the catalog
// or does not serve the requested task type.
var ErrUnknownModel = errors.New("unknown model")

// ErrInvalidParams is returned when the request parameters do not satisfy the
// model's declared schema.
var ErrInvalidParams = errors.New("invalid parameters")

// InsufficientCoinsError carries the amounts a client needs to show a
// meaningful top-up prompt.
type InsufficientCoinsError struct {
	Required int
	Balance  int
}

func (e *InsufficientCoinsError) Error() string {
	return fmt.Sprintf("insufficient coins: need %d, have %d", e.Required, e.Balance)
}

// GenerationService charges for and submits generation jobs, and settles
// their history records from poll results.
type GenerationService struct {
	catalog *repository.CatalogRepository
	users   *repository.UserRepository
	history *repository.HistoryRepository
	client  *shortapi.Client
	log     *slog.Logger
}

func NewGenerationService(
	catalog *repository.CatalogRepository,
	users *repository.UserRepository,
	history *repository.HistoryRepository,
	client *shortapi.Client,
	log *slog.Logger,
) *GenerationService {
	return &GenerationService{
		catalog: catalog,
		users:   users,
		history: history,
		client:  client,
		log:     log,
	}
}

// SubmitInput is one generation request.
type SubmitInput struct {
	UserID   string
	TaskType models.TaskType
	Model    string
	Prompt   string
	Params   map[string]any
}

// Submit prices the request, charges the user and submits the job. The
// deduction happens before submission; a job that later fails or times out is
// not refunded.
func (s *GenerationService) Submit(ctx context.Context, in SubmitInput) (*models.GenerationRecord, error) {
	if !in.TaskType.Valid() {
		return nil, fmt.Errorf("%w: task type %q", ErrUnknownModel, in.TaskType)
	}

	model, err := s.catalog.FindModel(ctx, in.Model)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, in.Model)
	}
	if err != nil {
		return nil, err
	}
	if model.Type != in.TaskType {
		return nil, fmt.Errorf("%w: %s does not serve %s", ErrUnknownModel, in.Model, in.TaskType)
	}

	validated, err := params.Validate(in.Params, model.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	price := pricing.CalculatePrice(string(in.TaskType), in.Model, validated)
	tier := ""
	if user.SubscriptionActive(time.Now()) {
		tier = user.RightsType
	}
	finalPrice := pricing.DiscountedPrice(price, tier, in.TaskType.ContentType(), s.log)

	if finalPrice > 0 {
		user, err = s.users.DeductCoins(ctx, in.UserID, finalPrice)
		if errors.Is(err, repository.ErrInsufficientCoins) {
			return nil, &InsufficientCoinsError{Required: finalPrice, Balance: user.TotalCoins()}
		}
		if err != nil {
			return nil, err
		}
	}

	args := make(map[string]any, len(validated)+1)
	for k, v := range validated {
		args[k] = v
	}
	if in.Prompt != "" {
		args["prompt"] = in.Prompt
	}

	jobID, err := s.client.CreateJob(ctx, in.Model, args)
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}

	encodedParams, err := json.Marshal(validated)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	rec := &models.GenerationRecord{
		UserID:   in.UserID,
		TaskType: in.TaskType,
		Model:    in.Model,
		JobID:    jobID,
		Prompt:   in.Prompt,
		Params:   encodedParams,
		Price:    finalPrice,
	}
	if err := s.history.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.log.Info("job submitted",
		"user_id", in.UserID, "job_id", jobID, "model", in.Model,
		"price", finalPrice, "original_price", price, "tier", tier)
	return rec, nil
}

// Result returns the current state of a job owned by the user, querying the
// provider once when the record is still in progress and settling it if the
// job finished.
func (s *GenerationService) Result(ctx context.Context, userID, jobID string) (*models.GenerationRecord, error) {
	rec, err := s.history.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if rec.Status != models.StatusInProgress {
		return rec, nil
	}

	status, err := s.client.QueryJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, rec, status)
}

// Wait blocks until the job settles or polling runs out of attempts. The
// record is settled either way; a timeout marks it failed without refund.
func (s *GenerationService) Wait(ctx context.Context, userID, jobID string, maxAttempts int, interval time.Duration) (*models.GenerationRecord, error) {
	rec, err := s.history.FindByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if rec.Status != models.StatusInProgress {
		return rec, nil
	}

	status, err := s.client.PollJob(ctx, jobID, maxAttempts, interval)
	if err != nil {
		if !errors.Is(err, shortapi.ErrPollTimeout) {
			// Provider or context error: the job may still be running, so the
			// record stays in progress for a later poll or the admin sweep.
			return nil, err
		}
		// Poll exhaustion: the job is considered failed.
		status = &shortapi.JobStatus{Status: shortapi.StateFailed, Error: "generation timed out"}
	}
	return s.settle(ctx, rec, status)
}

// Settle applies a poll result to an in-progress record. Used by the
// background sweep as well as the request path.
func (s *GenerationService) Settle(ctx context.Context, rec *models.GenerationRecord, status *shortapi.JobStatus) (*models.GenerationRecord, error) {
	return s.settle(ctx, rec, status)
}

func (s *GenerationService) settle(ctx context.Context, rec *models.GenerationRecord, status *shortapi.JobStatus) (*models.GenerationRecord, error) {
	switch status.Status {
	case shortapi.StateSuccess:
		done, err := s.history.FinalizeByJobID(ctx, rec.JobID, models.StatusSuccess, status.Result, "")
		if err != nil {
			return nil, err
		}
		if done {
			s.log.Info("job settled", "job_id", rec.JobID, "status", "success")
		}
	case shortapi.StateFailed:
		message := status.Error
		if message == "" {
			message = "generation failed"
		}
		done, err := s.history.FinalizeByJobID(ctx, rec.JobID, models.StatusFailed, nil, message)
		if err != nil {
			return nil, err
		}
		if done {
			s.log.Warn("job settled", "job_id", rec.JobID, "status", "failed", "error", message)
		}
	default:
		return rec, nil
	}

	// Re-read so concurrent settlers all return the winner's view.
	return s.history.FindByJobID(ctx, rec.JobID)
}

// History lists the user's recent generation records.
func (s *GenerationService) History(ctx context.Context, userID string, limit int) ([]models.GenerationRecord, error) {
	return s.history.ListByUser(ctx, userID, limit)
}
