package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lukamarin/gearbox-backend/internal/activity"
	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
	"github.com/lukamarin/gearbox-backend/pkg/metrics"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// Service exposes part inventory operations scoped to a workshop.
type Service interface {
	CreatePart(ctx context.Context, workshopID uuid.UUID, input CreatePartInput) (*PartDTO, error)
	GetPart(ctx context.Context, workshopID, partID uuid.UUID) (*PartDTO, error)
	ListParts(ctx context.Context, workshopID uuid.UUID, folderID *uuid.UUID, params pagination.Params) (*PartPage, error)
	UpdatePart(ctx context.Context, workshopID, partID uuid.UUID, input UpdatePartInput) (*PartDTO, error)
	DeletePart(ctx context.Context, workshopID, partID uuid.UUID) error
	RecalculateAvailability(ctx context.Context, workshopID uuid.UUID, partID *uuid.UUID) error
}

type service struct {
	client   *db.Client
	repo     *Repository
	notifier Notifier
	recorder activity.Recorder
	metrics  *metrics.InventoryMetrics
	logg     *logger.Logger
}

// NewService wires the inventory service. Notifier, recorder and metrics may
// be nil for callers that do not need them.
func NewService(client *db.Client, repo *Repository, notifier Notifier, recorder activity.Recorder, m *metrics.InventoryMetrics, logg *logger.Logger) Service {
	if recorder == nil {
		recorder = activity.NewNoopRecorder()
	}
	return &service{
		client:   client,
		repo:     repo,
		notifier: notifier,
		recorder: recorder,
		metrics:  m,
		logg:     logg,
	}
}

func (s *service) CreatePart(ctx context.Context, workshopID uuid.UUID, input CreatePartInput) (*PartDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name is required")
	}
	partNumber := strings.TrimSpace(input.PartNumber)
	if partNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part number is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.MinimumQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum quantity cannot be negative")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.FolderID != nil {
		exists, err := s.repo.FolderExists(ctx, workshopID, *input.FolderID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "target folder not found")
		}
	}

	part := &models.Part{
		ID:         uuid.New(),
		WorkshopID: workshopID,
		FolderID:   input.FolderID,
		Name:       name,
		PartNumber: partNumber,
		Price:      input.Price,
		Quantity:   input.Quantity,
		// A new part has no reservations, so its balance equals quantity.
		AvailabilityBalance: input.Quantity,
		MinimumQuantity:     input.MinimumQuantity,
	}

	if err := s.repo.Create(ctx, part); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, workshopID, "part.create", "part "+part.Name+" created")
	if part.AvailabilityBalance < part.MinimumQuantity {
		s.dispatchAlerts(ctx, []LowStockAlert{{
			WorkshopID:          workshopID,
			PartID:              part.ID,
			PartName:            part.Name,
			AvailabilityBalance: part.AvailabilityBalance,
			MinimumQuantity:     part.MinimumQuantity,
		}})
	}
	return toPartDTO(part), nil
}

func (s *service) GetPart(ctx context.Context, workshopID, partID uuid.UUID) (*PartDTO, error) {
	part, err := s.repo.FindByID(ctx, workshopID, partID)
	if err != nil {
		return nil, err
	}
	return toPartDTO(part), nil
}

func (s *service) ListParts(ctx context.Context, workshopID uuid.UUID, folderID *uuid.UUID, params pagination.Params) (*PartPage, error) {
	parts, err := s.repo.ListByFolder(ctx, workshopID, folderID, params)
	if err != nil {
		return nil, err
	}
	return NewPartPage(parts, params.Limit), nil
}

func (s *service) UpdatePart(ctx context.Context, workshopID, partID uuid.UUID, input UpdatePartInput) (*PartDTO, error) {
	var (
		updated *models.Part
		alerts  []LowStockAlert
	)

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)

		part, err := scoped.FindByIDForUpdate(ctx, workshopID, partID)
		if err != nil {
			return err
		}

		stockChanged := false
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "part name is required")
			}
			part.Name = name
		}
		if input.PartNumber != nil {
			partNumber := strings.TrimSpace(*input.PartNumber)
			if partNumber == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "part number is required")
			}
			part.PartNumber = partNumber
		}
		if input.Price != nil {
			if input.Price.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
			}
			part.Price = *input.Price
		}
		if input.ClearFolder {
			part.FolderID = nil
		} else if input.FolderID != nil {
			exists, err := scoped.FolderExists(ctx, workshopID, *input.FolderID)
			if err != nil {
				return err
			}
			if !exists {
				return pkgerrors.New(pkgerrors.CodeValidation, "target folder not found")
			}
			part.FolderID = input.FolderID
		}
		if input.Quantity != nil {
			if *input.Quantity < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
			}
			part.Quantity = *input.Quantity
			stockChanged = true
		}
		if input.MinimumQuantity != nil {
			if *input.MinimumQuantity < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "minimum quantity cannot be negative")
			}
			part.MinimumQuantity = *input.MinimumQuantity
			stockChanged = true
		}

		if err := scoped.Save(ctx, part); err != nil {
			return err
		}

		// Quantity or threshold edits change what the balance derives from,
		// so recompute from reservations instead of patching incrementally.
		if stockChanged {
			alerts, err = RecalculateBalances(ctx, tx, s.repo, workshopID, []uuid.UUID{part.ID})
			if err != nil {
				return err
			}
			part, err = scoped.FindByID(ctx, workshopID, part.ID)
			if err != nil {
				return err
			}
		}

		updated = part
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, workshopID, "part.update", "part "+updated.Name+" updated")
	s.dispatchAlerts(ctx, alerts)
	return toPartDTO(updated), nil
}

func (s *service) DeletePart(ctx context.Context, workshopID, partID uuid.UUID) error {
	var name string
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)

		part, err := scoped.FindByIDForUpdate(ctx, workshopID, partID)
		if err != nil {
			return err
		}
		name = part.Name

		// Any referencing job line blocks the delete, whatever its status:
		// lines keep a foreign key to the part.
		references, err := scoped.CountJobReferences(ctx, workshopID, []uuid.UUID{partID})
		if err != nil {
			return err
		}
		if references > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "part is referenced by jobs").
				WithDetails(map[string]any{"part_name": part.Name, "job_references": references})
		}

		return scoped.Delete(ctx, workshopID, partID)
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, workshopID, "part.delete", "part "+name+" deleted")
	return nil
}

func (s *service) RecalculateAvailability(ctx context.Context, workshopID uuid.UUID, partID *uuid.UUID) error {
	started := time.Now()

	var partIDs []uuid.UUID
	if partID != nil {
		partIDs = []uuid.UUID{*partID}
	}

	var alerts []LowStockAlert
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		alerts, txErr = RecalculateBalances(ctx, tx, s.repo, workshopID, partIDs)
		return txErr
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveRecalcDuration(time.Since(started))
	s.dispatchAlerts(ctx, alerts)
	return nil
}

// dispatchAlerts delivers low-stock alerts after the owning transaction has
// committed. Delivery failures are logged, never surfaced to the caller.
func (s *service) dispatchAlerts(ctx context.Context, alerts []LowStockAlert) {
	if s.notifier == nil || len(alerts) == 0 {
		return
	}

	var failures error
	for _, alert := range alerts {
		s.metrics.IncLowStockAlert()
		if err := s.notifier.NotifyLowStock(ctx, alert); err != nil {
			failures = multierr.Append(failures, err)
		}
	}
	if failures != nil && s.logg != nil {
		s.logg.Error(ctx, "low stock alert delivery failed", failures)
	}
}
