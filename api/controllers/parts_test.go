package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lukamarin/gearbox-backend/api/middleware"
	"github.com/lukamarin/gearbox-backend/internal/inventory"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

type stubInventoryService struct {
	created      *inventory.CreatePartInput
	deleteCalled bool
	deleteErr    error
}

func (s *stubInventoryService) CreatePart(_ context.Context, _ uuid.UUID, input inventory.CreatePartInput) (*inventory.PartDTO, error) {
	s.created = &input
	return &inventory.PartDTO{
		ID:                  uuid.New(),
		Name:                input.Name,
		PartNumber:          input.PartNumber,
		Quantity:            input.Quantity,
		AvailabilityBalance: input.Quantity,
		MinimumQuantity:     input.MinimumQuantity,
	}, nil
}

func (s *stubInventoryService) GetPart(context.Context, uuid.UUID, uuid.UUID) (*inventory.PartDTO, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) ListParts(context.Context, uuid.UUID, *uuid.UUID, pagination.Params) (*inventory.PartPage, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) UpdatePart(context.Context, uuid.UUID, uuid.UUID, inventory.UpdatePartInput) (*inventory.PartDTO, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) DeletePart(context.Context, uuid.UUID, uuid.UUID) error {
	s.deleteCalled = true
	return s.deleteErr
}

func (s *stubInventoryService) RecalculateAvailability(context.Context, uuid.UUID, *uuid.UUID) error {
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func TestCreatePartHandler(t *testing.T) {
	logg := testLogger()
	workshopID := uuid.New()

	t.Run("missing workshop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(`{"name":"pad"}`))
		rec := httptest.NewRecorder()
		CreatePart(&stubInventoryService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 without workshop context, got %d", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(`{"quantity":-1}`))
		req = req.WithContext(middleware.WithWorkshopID(req.Context(), workshopID))
		rec := httptest.NewRecorder()
		CreatePart(&stubInventoryService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid body, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		body := `{"name":"brake pad","part_number":"BP-1","quantity":10,"minimum_quantity":3}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/parts", strings.NewReader(body))
		req = req.WithContext(middleware.WithWorkshopID(req.Context(), workshopID))

		stub := &stubInventoryService{}
		rec := httptest.NewRecorder()
		CreatePart(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.created == nil || stub.created.Name != "brake pad" || stub.created.Quantity != 10 {
			t.Fatalf("unexpected input passed to service: %+v", stub.created)
		}

		var envelope struct {
			Data inventory.PartDTO `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.AvailabilityBalance != 10 {
			t.Fatalf("unexpected response: %+v", envelope.Data)
		}
	})
}

func TestDeletePartHandler(t *testing.T) {
	logg := testLogger()
	workshopID := uuid.New()
	partID := uuid.New()

	makeRequest := func(stub *stubInventoryService, rawID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/parts/"+rawID, nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("partId", rawID)
		ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
		ctx = middleware.WithWorkshopID(ctx, workshopID)
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		DeletePart(stub, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("invalid id", func(t *testing.T) {
		rec := makeRequest(&stubInventoryService{}, "not-a-uuid")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
		}
	})

	t.Run("open reservation conflict", func(t *testing.T) {
		stub := &stubInventoryService{deleteErr: pkgerrors.New(pkgerrors.CodeConflict, "part is referenced by jobs")}
		rec := makeRequest(stub, partID.String())
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 for referenced part, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubInventoryService{}
		rec := makeRequest(stub, partID.String())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !stub.deleteCalled {
			t.Fatal("expected DeletePart to be invoked")
		}
	})
}
