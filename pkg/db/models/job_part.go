package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JobPart is the reservation/consumption record of one part line on one job.
// Its lifetime is bound to the owning Job.
type JobPart struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	JobID     uuid.UUID       `gorm:"column:job_id;type:uuid;not null;index"`
	PartID    uuid.UUID       `gorm:"column:part_id;type:uuid;not null;index"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
