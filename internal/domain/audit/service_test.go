package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	entries []*Entry
	fail    bool
}

func (m *mockRepo) Append(ctx context.Context, e *Entry) error {
	if m.fail {
		return errors.New("db down")
	}
	e.ID = uuid.New()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func TestRecord(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	userID := uuid.New()
	rec.Record(context.Background(), Entry{
		UserID:       &userID,
		Action:       ActionLogin,
		ResourceType: "user",
		ResourceID:   userID.String(),
		IPAddress:    "10.0.0.1",
	})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.Action != ActionLogin {
		t.Errorf("expected action %s, got %s", ActionLogin, e.Action)
	}
	if e.ID == uuid.Nil {
		t.Error("expected entry to receive an id")
	}
}

func TestRecord_AppendFailureSuppressed(t *testing.T) {
	repo := &mockRepo{fail: true}
	rec := NewRecorder(repo, zerolog.Nop())

	// Must not panic or surface the error to the caller.
	rec.Record(context.Background(), Entry{Action: ActionPaymentRecord, ResourceType: "payment"})

	if len(repo.entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(repo.entries))
	}
}

func TestSearchPassthrough(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	rec.Record(context.Background(), Entry{Action: ActionUserCreate, ResourceType: "user"})
	rec.Record(context.Background(), Entry{Action: ActionUserUpdate, ResourceType: "user"})

	items, total, err := rec.Search(context.Background(), nil, 20, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 entries, got total=%d len=%d", total, len(items))
	}
}
