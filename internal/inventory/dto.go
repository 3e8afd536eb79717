package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// PartDTO is the API-facing projection of a part.
type PartDTO struct {
	ID                  uuid.UUID       `json:"id"`
	FolderID            *uuid.UUID      `json:"folder_id,omitempty"`
	Name                string          `json:"name"`
	PartNumber          string          `json:"part_number"`
	Price               decimal.Decimal `json:"price"`
	Quantity            int             `json:"quantity"`
	AvailabilityBalance int             `json:"availability_balance"`
	MinimumQuantity     int             `json:"minimum_quantity"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// PartPage is one page of parts plus the cursor for the next one.
type PartPage struct {
	Parts      []PartDTO `json:"parts"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// CreatePartInput carries the fields needed to register a part.
type CreatePartInput struct {
	FolderID        *uuid.UUID
	Name            string
	PartNumber      string
	Price           decimal.Decimal
	Quantity        int
	MinimumQuantity int
}

// UpdatePartInput carries optional field updates; nil means unchanged.
type UpdatePartInput struct {
	FolderID        *uuid.UUID
	ClearFolder     bool
	Name            *string
	PartNumber      *string
	Price           *decimal.Decimal
	Quantity        *int
	MinimumQuantity *int
}

func toPartDTO(part *models.Part) *PartDTO {
	return &PartDTO{
		ID:                  part.ID,
		FolderID:            part.FolderID,
		Name:                part.Name,
		PartNumber:          part.PartNumber,
		Price:               part.Price,
		Quantity:            part.Quantity,
		AvailabilityBalance: part.AvailabilityBalance,
		MinimumQuantity:     part.MinimumQuantity,
		CreatedAt:           part.CreatedAt,
		UpdatedAt:           part.UpdatedAt,
	}
}

// NewPartPage trims a limit-plus-one result set into one page and encodes the
// cursor for the next page when more rows exist.
func NewPartPage(parts []models.Part, limit int) *PartPage {
	normalized := pagination.NormalizeLimit(limit)
	page := &PartPage{Parts: make([]PartDTO, 0, len(parts))}

	hasMore := len(parts) > normalized
	if hasMore {
		parts = parts[:normalized]
	}
	for i := range parts {
		page.Parts = append(page.Parts, *toPartDTO(&parts[i]))
	}
	if hasMore && len(parts) > 0 {
		last := parts[len(parts)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page
}
