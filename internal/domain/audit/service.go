package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder writes audit entries. Recording is best-effort: a failed write is
// logged and suppressed so that it never fails the operation being audited.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, e Entry) {
	if err := r.repo.Append(ctx, &e); err != nil {
		r.logger.Error().Err(err).
			Str("action", e.Action).
			Str("resource_type", e.ResourceType).
			Str("resource_id", e.ResourceID).
			Msg("audit append failed")
	}
}

func (r *Recorder) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.repo.GetByID(ctx, id)
}

func (r *Recorder) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	return r.repo.Search(ctx, params, limit, offset)
}
