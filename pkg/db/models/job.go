package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lukamarin/gearbox-backend/pkg/enums"
)

// Job is a unit of workshop work whose status drives how its part lines hold
// stock: awaiting_parts lines are pure reservations, every other status
// consumes physical quantity.
type Job struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	WorkshopID uuid.UUID       `gorm:"column:workshop_id;type:uuid;not null;index"`
	OrderID    *uuid.UUID      `gorm:"column:order_id;type:uuid;index"`
	WorkerID   *uuid.UUID      `gorm:"column:worker_id;type:uuid"`
	JobTypeID  *uuid.UUID      `gorm:"column:job_type_id;type:uuid"`
	Status     enums.JobStatus `gorm:"column:status;not null;default:'pending'"`
	StartTime  *time.Time      `gorm:"column:start_time"`
	EndTime    *time.Time      `gorm:"column:end_time"`
	Parts      []JobPart       `gorm:"foreignKey:JobID"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
