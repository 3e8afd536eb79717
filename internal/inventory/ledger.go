package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	"github.com/lukamarin/gearbox-backend/pkg/enums"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/metrics"
)

// ApplyPartChange applies one part line's stock effect for the given job status.
//
// A line on an awaiting-parts job is a pure reservation and only lowers the
// availability balance. Any other status consumes physical quantity, which
// must never go negative; a consumption that would do so fails with
// InsufficientStock and mutates nothing.
func ApplyPartChange(part *models.Part, quantity int, status enums.JobStatus) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if status.Reserving() {
		part.AvailabilityBalance -= quantity
		return nil
	}
	if part.Quantity < quantity {
		return pkgerrors.InsufficientStock(part.Name)
	}
	part.Quantity -= quantity
	part.AvailabilityBalance -= quantity
	return nil
}

// RevertPartChange is the exact additive inverse of ApplyPartChange for the
// same (quantity, status) pair. It can be called any number of times that
// ApplyPartChange was, in any order, to restore the pre-change state.
func RevertPartChange(part *models.Part, quantity int, status enums.JobStatus) {
	if quantity <= 0 {
		return
	}
	if status.Reserving() {
		part.AvailabilityBalance += quantity
		return
	}
	part.Quantity += quantity
	part.AvailabilityBalance += quantity
}

// CommitReservation turns an awaiting-parts reservation into physical
// consumption. The reservation already lowered the availability balance, so
// only quantity moves; the invariant keeps the balance unchanged.
func CommitReservation(part *models.Part, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if part.Quantity < quantity {
		return pkgerrors.InsufficientStock(part.Name)
	}
	part.Quantity -= quantity
	return nil
}

// ReleaseCommitment is the inverse of CommitReservation: physical quantity is
// returned while the line goes back to being a pure reservation.
func ReleaseCommitment(part *models.Part, quantity int) {
	if quantity <= 0 {
		return
	}
	part.Quantity += quantity
}

// Ledger mutates persisted part stock inside a caller-owned transaction.
// Each mutation locks the part row first so concurrent operations touching
// the same part serialize instead of racing read-modify-write.
type Ledger struct {
	metrics *metrics.InventoryMetrics
}

// NewLedger builds a stock ledger. Metrics may be nil.
func NewLedger(m *metrics.InventoryMetrics) *Ledger {
	return &Ledger{metrics: m}
}

// Apply locks the part row and applies one line's stock effect.
func (l *Ledger) Apply(ctx context.Context, tx *gorm.DB, workshopID, partID uuid.UUID, quantity int, status enums.JobStatus) error {
	part, err := lockPart(ctx, tx, workshopID, partID)
	if err != nil {
		return err
	}
	if err := ApplyPartChange(part, quantity, status); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			l.metrics.IncInsufficientStock()
		}
		return err
	}
	l.metrics.IncMutation("apply")
	return savePartStock(ctx, tx, part)
}

// Revert locks the part row and undoes one line's stock effect.
func (l *Ledger) Revert(ctx context.Context, tx *gorm.DB, workshopID, partID uuid.UUID, quantity int, status enums.JobStatus) error {
	part, err := lockPart(ctx, tx, workshopID, partID)
	if err != nil {
		return err
	}
	RevertPartChange(part, quantity, status)
	l.metrics.IncMutation("revert")
	return savePartStock(ctx, tx, part)
}

// Commit locks the part row and consumes a previously reserved quantity.
func (l *Ledger) Commit(ctx context.Context, tx *gorm.DB, workshopID, partID uuid.UUID, quantity int) error {
	part, err := lockPart(ctx, tx, workshopID, partID)
	if err != nil {
		return err
	}
	if err := CommitReservation(part, quantity); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			l.metrics.IncInsufficientStock()
		}
		return err
	}
	l.metrics.IncMutation("commit")
	return savePartStock(ctx, tx, part)
}

// Release locks the part row and returns a committed quantity to stock.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, workshopID, partID uuid.UUID, quantity int) error {
	part, err := lockPart(ctx, tx, workshopID, partID)
	if err != nil {
		return err
	}
	ReleaseCommitment(part, quantity)
	l.metrics.IncMutation("release")
	return savePartStock(ctx, tx, part)
}

func lockPart(ctx context.Context, tx *gorm.DB, workshopID, partID uuid.UUID) (*models.Part, error) {
	var part models.Part
	query := tx.WithContext(ctx)
	// SQLite has no row locks; its transactions already serialize writers.
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.First(&part, "id = ? AND workshop_id = ?", partID, workshopID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock part")
	}
	return &part, nil
}

func savePartStock(ctx context.Context, tx *gorm.DB, part *models.Part) error {
	err := tx.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", part.ID).
		Updates(map[string]any{
			"quantity":             part.Quantity,
			"availability_balance": part.AvailabilityBalance,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist part stock")
	}
	return nil
}
