package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/docchat/internal/models"
)

type ArchiveRepository interface {
	SaveInteraction(ctx context.Context, in models.Interaction) error
	SaveError(ctx context.Context, ev models.ErrorEvent) error
}

// ArchiveWorker copies metrics records from the queue into durable storage.
type ArchiveWorker struct {
	repo ArchiveRepository
}

func NewArchiveWorker(repo ArchiveRepository) *ArchiveWorker {
	return &ArchiveWorker{repo: repo}
}

func (w *ArchiveWorker) ProcessInteraction(ctx context.Context, t *asynq.Task) error {
	var in models.Interaction
	if err := json.Unmarshal(t.Payload(), &in); err != nil {
		return fmt.Errorf("unmarshal interaction: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.repo.SaveInteraction(ctx, in); err != nil {
		return fmt.Errorf("archive interaction %s: %w", in.ID, err)
	}
	slog.Debug("archived interaction", "id", in.ID, "session_id", in.SessionID)
	return nil
}

func (w *ArchiveWorker) ProcessError(ctx context.Context, t *asynq.Task) error {
	var ev models.ErrorEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("unmarshal error event: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.repo.SaveError(ctx, ev); err != nil {
		return fmt.Errorf("archive error event %s: %w", ev.ID, err)
	}
	slog.Debug("archived error event", "id", ev.ID, "type", ev.Kind)
	return nil
}
