package models

import (
	"time"

	"github.com/google/uuid"
)

// PartsFolder is a node in the hierarchical parts catalog. Folders form a
// forest per workshop; a nil ParentID marks a root. Children reference their
// parent by id only, so deletion cascades are issued explicitly by the
// catalog service rather than by foreign keys.
type PartsFolder struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	WorkshopID uuid.UUID  `gorm:"column:workshop_id;type:uuid;not null;index"`
	ParentID   *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	Name       string     `gorm:"column:name;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
