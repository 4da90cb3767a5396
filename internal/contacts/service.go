package contacts

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/himalclinic/himalclinic/jobs"
)

// Enqueuer abstracts the asynq client so tests can stub it out.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service handles contact intake and console reads.
type Service struct {
	repo     Repository
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewService constructs a Service. A nil enqueuer disables notifications.
func NewService(repo Repository, enqueuer Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, enqueuer: enqueuer, logger: logger}
}

// Submit stores a submission and queues the practice notification. A queue
// failure is logged, not surfaced: the visitor's message is already safe in
// the database.
func (s *Service) Submit(ctx context.Context, c Contact) (Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Message = strings.TrimSpace(c.Message)

	created, err := s.repo.Insert(ctx, c)
	if err != nil {
		return Contact{}, err
	}

	if s.enqueuer != nil {
		task, err := jobs.NewContactNotifyTask(jobs.ContactNotifyPayload{
			ContactID: created.ID,
			Name:      created.Name,
			Email:     created.Email,
			Message:   created.Message,
		})
		if err == nil {
			_, err = s.enqueuer.EnqueueContext(ctx, task)
		}
		if err != nil {
			s.logger.Warn("enqueue contact notification", slog.Any("error", err))
		}
	}
	return created, nil
}

// ListFor returns contacts with the principal's read markers.
func (s *Service) ListFor(ctx context.Context, principalID string) ([]ListedContact, error) {
	return s.repo.ListFor(ctx, principalID)
}

// MarkViewed records a read marker. Idempotent.
func (s *Service) MarkViewed(ctx context.Context, contactID int64, principalID string) error {
	return s.repo.MarkViewed(ctx, contactID, principalID)
}

// CountUnviewed counts contacts the principal has not yet opened.
func (s *Service) CountUnviewed(ctx context.Context, principalID string) (int, error) {
	return s.repo.CountUnviewed(ctx, principalID)
}
