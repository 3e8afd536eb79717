package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/lukamarin/gearbox-backend/api/responses"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
)

const workshopIDHeader = "X-Workshop-Id"

type contextKey string

const ctxWorkshopID contextKey = "workshop_id"

// WorkshopContext resolves the tenant for the request. Every route behind it
// is scoped to exactly one workshop; requests without a parseable workshop id
// are rejected before any handler runs.
func WorkshopContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(workshopIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "workshop context missing"))
				return
			}
			workshopID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid workshop id"))
				return
			}

			ctx := WithWorkshopID(r.Context(), workshopID)
			if logg != nil {
				ctx = logg.WithWorkshopID(ctx, workshopID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithWorkshopID injects the workshop identifier into the context.
func WithWorkshopID(ctx context.Context, workshopID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxWorkshopID, workshopID)
}

// WorkshopIDFromContext returns the workshop id placed by WorkshopContext.
func WorkshopIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	if v, ok := ctx.Value(ctxWorkshopID).(uuid.UUID); ok {
		return v, true
	}
	return uuid.Nil, false
}
