package contacts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/himalclinic/himalclinic/internal/contacts"
	"github.com/himalclinic/himalclinic/jobs"
	_ "github.com/himalclinic/himalclinic/testing"
)

type stubRepo struct {
	nextID   int64
	inserted []contacts.Contact
	viewed   map[int64]string
	err      error
}

func (s *stubRepo) Insert(ctx context.Context, c contacts.Contact) (contacts.Contact, error) {
	if s.err != nil {
		return contacts.Contact{}, s.err
	}
	s.nextID++
	c.ID = s.nextID
	s.inserted = append(s.inserted, c)
	return c, nil
}

func (s *stubRepo) ListFor(ctx context.Context, principalID string) ([]contacts.ListedContact, error) {
	var out []contacts.ListedContact
	for _, c := range s.inserted {
		out = append(out, contacts.ListedContact{Contact: c, Viewed: s.viewed[c.ID] == principalID})
	}
	return out, nil
}

func (s *stubRepo) MarkViewed(ctx context.Context, contactID int64, principalID string) error {
	if s.viewed == nil {
		s.viewed = make(map[int64]string)
	}
	s.viewed[contactID] = principalID
	return nil
}

func (s *stubRepo) CountUnviewed(ctx context.Context, principalID string) (int, error) {
	n := 0
	for _, c := range s.inserted {
		if s.viewed[c.ID] != principalID {
			n++
		}
	}
	return n, nil
}

type stubEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestSubmitStoresAndNotifies(t *testing.T) {
	repo := &stubRepo{}
	enqueuer := &stubEnqueuer{}
	service := contacts.NewService(repo, enqueuer, nil)

	created, err := service.Submit(context.Background(), contacts.Contact{
		Name:    "  Sita Rai  ",
		Email:   " sita@test.local ",
		Message: "I would like an appointment.",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned ID")
	}
	if created.Name != "Sita Rai" || created.Email != "sita@test.local" {
		t.Fatalf("expected trimmed fields, got %+v", created)
	}
	if len(enqueuer.tasks) != 1 || enqueuer.tasks[0].Type() != jobs.TaskContactNotify {
		t.Fatalf("expected one notify task, got %v", enqueuer.tasks)
	}
}

func TestSubmitSurvivesQueueFailure(t *testing.T) {
	repo := &stubRepo{}
	enqueuer := &stubEnqueuer{err: errors.New("redis down")}
	service := contacts.NewService(repo, enqueuer, nil)

	created, err := service.Submit(context.Background(), contacts.Contact{
		Name:    "Hari",
		Email:   "hari@test.local",
		Message: "Question about clinic hours.",
	})
	if err != nil {
		t.Fatalf("queue failure must not fail the submission: %v", err)
	}
	if created.ID == 0 || len(repo.inserted) != 1 {
		t.Fatalf("submission must still be stored")
	}
}

func TestSubmitWithoutEnqueuer(t *testing.T) {
	repo := &stubRepo{}
	service := contacts.NewService(repo, nil, nil)

	if _, err := service.Submit(context.Background(), contacts.Contact{
		Name: "Gita", Email: "gita@test.local", Message: "Hello",
	}); err != nil {
		t.Fatalf("submit without enqueuer: %v", err)
	}
}

func TestSubmitRepoFailure(t *testing.T) {
	repo := &stubRepo{err: errors.New("insert failed")}
	enqueuer := &stubEnqueuer{}
	service := contacts.NewService(repo, enqueuer, nil)

	if _, err := service.Submit(context.Background(), contacts.Contact{Name: "X", Email: "x@test.local", Message: "y"}); err == nil {
		t.Fatalf("expected error from repository")
	}
	if len(enqueuer.tasks) != 0 {
		t.Fatalf("failed insert must not enqueue a notification")
	}
}

func TestReadMarkersArePerPrincipal(t *testing.T) {
	repo := &stubRepo{}
	service := contacts.NewService(repo, nil, nil)
	ctx := context.Background()

	created, err := service.Submit(ctx, contacts.Contact{Name: "Sita", Email: "sita@test.local", Message: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.MarkViewed(ctx, created.ID, "admin-1"); err != nil {
		t.Fatalf("mark viewed: %v", err)
	}

	adminList, err := service.ListFor(ctx, "admin-1")
	if err != nil || len(adminList) != 1 || !adminList[0].Viewed {
		t.Fatalf("expected viewed marker for admin-1, got %+v (err %v)", adminList, err)
	}
	viewerList, err := service.ListFor(ctx, "viewer-1")
	if err != nil || len(viewerList) != 1 || viewerList[0].Viewed {
		t.Fatalf("read markers must not leak across principals, got %+v (err %v)", viewerList, err)
	}

	unviewed, err := service.CountUnviewed(ctx, "viewer-1")
	if err != nil || unviewed != 1 {
		t.Fatalf("expected one unviewed for viewer-1, got %d (err %v)", unviewed, err)
	}
}
