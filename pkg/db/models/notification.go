package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lukamarin/gearbox-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to workshops.
type Notification struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	WorkshopID uuid.UUID              `gorm:"column:workshop_id;type:uuid;not null;index"`
	Type       enums.NotificationType `gorm:"column:type;not null"`
	Title      string                 `gorm:"column:title;type:text;not null"`
	Message    string                 `gorm:"column:message;type:text;not null"`
	PartID     *uuid.UUID             `gorm:"column:part_id;type:uuid"`
	ReadAt     *time.Time             `gorm:"column:read_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}
