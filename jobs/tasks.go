package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskContactNotify notifies the practice inbox of a new contact submission.
	TaskContactNotify = "contact:notify"
	// TaskSessionPurge removes expired session bindings from postgres.
	TaskSessionPurge = "session:purge"
)

// ContactNotifyPayload describes a contact submission to announce.
type ContactNotifyPayload struct {
	ContactID int64  `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
}

// NewContactNotifyTask constructs an Asynq task for a submission.
func NewContactNotifyTask(payload ContactNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskContactNotify, data), nil
}

// ContactNotifier emails the practice when a submission arrives.
type ContactNotifier struct {
	Mailer *Mailer
	Inbox  string
	Logger *slog.Logger
}

// Handle processes TaskContactNotify tasks.
func (n *ContactNotifier) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ContactNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	subject := fmt.Sprintf("New contact from %s", payload.Name)
	body := fmt.Sprintf("Contact #%d\nFrom: %s <%s>\n\n%s",
		payload.ContactID, payload.Name, payload.Email, payload.Message)
	if err := n.Mailer.Send(ctx, n.Inbox, subject, body); err != nil {
		return fmt.Errorf("jobs: send contact notification: %w", err)
	}
	if n.Logger != nil {
		n.Logger.Info("contact notification sent", slog.Int64("contact_id", payload.ContactID))
	}
	return nil
}

// NewSessionPurgeTask constructs the nightly purge task.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionPurge, nil)
}

// SessionPurger deletes expired session bindings so the table stays small.
type SessionPurger struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// Handle processes TaskSessionPurge tasks.
func (p *SessionPurger) Handle(ctx context.Context, t *asynq.Task) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at <= now()`)
	if err != nil {
		return fmt.Errorf("jobs: purge sessions: %w", err)
	}
	if p.Logger != nil {
		p.Logger.Info("expired sessions purged", slog.Int64("count", tag.RowsAffected()))
	}
	return nil
}
