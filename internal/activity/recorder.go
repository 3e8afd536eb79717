// Package activity records human-readable audit events for workshop
// mutations. Events land in the structured log stream; a future sink can
// persist them without touching call sites.
package activity

import (
	"context"

	"github.com/google/uuid"

	"github.com/lukamarin/gearbox-backend/pkg/logger"
)

// Recorder captures one audit event. Implementations must be safe for
// concurrent use and must never fail the calling operation.
type Recorder interface {
	Record(ctx context.Context, workshopID uuid.UUID, action, message string)
}

type logRecorder struct {
	logg *logger.Logger
}

// NewLogRecorder emits audit events through the shared structured logger.
func NewLogRecorder(logg *logger.Logger) Recorder {
	return &logRecorder{logg: logg}
}

func (r *logRecorder) Record(ctx context.Context, workshopID uuid.UUID, action, message string) {
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"audit":       true,
		"action":      action,
		"workshop_id": workshopID.String(),
	})
	r.logg.Info(ctx, message)
}

type noopRecorder struct{}

// NewNoopRecorder returns a recorder that drops every event, for tests.
func NewNoopRecorder() Recorder {
	return noopRecorder{}
}

func (noopRecorder) Record(context.Context, uuid.UUID, string, string) {}
