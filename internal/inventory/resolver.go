package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LowStockAlert describes a part whose availability dropped below its
// configured minimum during a balance recalculation.
type LowStockAlert struct {
	WorkshopID          uuid.UUID
	PartID              uuid.UUID
	PartName            string
	AvailabilityBalance int
	MinimumQuantity     int
}

// Notifier receives low-stock alerts after a recalculation commits. Failures
// are logged by callers and never roll the recalculation back.
type Notifier interface {
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// RecalculateBalances is the authoritative availability computation: it
// reloads quantities and awaiting-parts reservations inside tx and rewrites
// each part's persisted balance to quantity minus reserved. It returns the
// parts left below their minimum so callers can notify after commit.
//
// Running it twice in a row produces identical state.
func RecalculateBalances(ctx context.Context, tx *gorm.DB, repo *Repository, workshopID uuid.UUID, partIDs []uuid.UUID) ([]LowStockAlert, error) {
	scoped := repo.WithTx(tx)

	parts, err := scoped.ListForRecalc(ctx, workshopID, partIDs)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		ids = append(ids, part.ID)
	}
	reserved, err := scoped.SumReservedQuantities(ctx, workshopID, ids)
	if err != nil {
		return nil, err
	}

	var alerts []LowStockAlert
	for i := range parts {
		part := &parts[i]
		balance := part.Quantity - reserved[part.ID]
		if balance != part.AvailabilityBalance {
			part.AvailabilityBalance = balance
			if err := savePartStock(ctx, tx, part); err != nil {
				return nil, err
			}
		}
		if balance < part.MinimumQuantity {
			alerts = append(alerts, LowStockAlert{
				WorkshopID:          part.WorkshopID,
				PartID:              part.ID,
				PartName:            part.Name,
				AvailabilityBalance: balance,
				MinimumQuantity:     part.MinimumQuantity,
			})
		}
	}
	return alerts, nil
}
