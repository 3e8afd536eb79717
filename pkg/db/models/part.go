package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Part is a stock-keeping unit scoped to a workshop.
//
// Quantity is physical on-hand stock and never goes negative.
// AvailabilityBalance is derived (quantity minus awaiting-parts reservations)
// and persisted for read-heavy listing paths; it may legitimately go negative
// when a part is over-committed.
type Part struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	WorkshopID          uuid.UUID       `gorm:"column:workshop_id;type:uuid;not null;index;uniqueIndex:uq_parts_workshop_part_number,priority:1"`
	FolderID            *uuid.UUID      `gorm:"column:folder_id;type:uuid;index"`
	Name                string          `gorm:"column:name;not null"`
	PartNumber          string          `gorm:"column:part_number;not null;uniqueIndex:uq_parts_workshop_part_number,priority:2"`
	Price               decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Quantity            int             `gorm:"column:quantity;not null;default:0"`
	AvailabilityBalance int             `gorm:"column:availability_balance;not null;default:0"`
	MinimumQuantity     int             `gorm:"column:minimum_quantity;not null;default:0"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
