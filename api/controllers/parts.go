package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lukamarin/gearbox-backend/api/responses"
	"github.com/lukamarin/gearbox-backend/api/validators"
	"github.com/lukamarin/gearbox-backend/internal/inventory"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
)

type createPartRequest struct {
	Name            string           `json:"name" validate:"required,max=255"`
	PartNumber      string           `json:"part_number" validate:"required,max=128"`
	FolderID        *uuid.UUID       `json:"folder_id,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	Quantity        int              `json:"quantity" validate:"gte=0"`
	MinimumQuantity int              `json:"minimum_quantity" validate:"gte=0"`
}

type updatePartRequest struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,max=255"`
	PartNumber      *string          `json:"part_number,omitempty" validate:"omitempty,max=128"`
	FolderID        *uuid.UUID       `json:"folder_id,omitempty"`
	ClearFolder     bool             `json:"clear_folder,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	Quantity        *int             `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	MinimumQuantity *int             `json:"minimum_quantity,omitempty" validate:"omitempty,gte=0"`
}

// CreatePart registers a part in the workshop inventory.
func CreatePart(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createPartRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.CreatePartInput{
			FolderID:        req.FolderID,
			Name:            req.Name,
			PartNumber:      req.PartNumber,
			Quantity:        req.Quantity,
			MinimumQuantity: req.MinimumQuantity,
		}
		if req.Price != nil {
			input.Price = *req.Price
		}

		part, err := svc.CreatePart(r.Context(), workshopID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, part)
	}
}

// GetPart returns one part.
func GetPart(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partID, err := pathUUID(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		part, err := svc.GetPart(r.Context(), workshopID, partID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

// ListParts pages the parts in a folder; without a folderId query parameter
// it lists parts filed at the root.
func ListParts(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		folderID, err := optionalQueryUUID(r, "folderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListParts(r.Context(), workshopID, folderID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// UpdatePart edits a part; stock field updates trigger a balance
// recalculation.
func UpdatePart(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partID, err := pathUUID(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updatePartRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		part, err := svc.UpdatePart(r.Context(), workshopID, partID, inventory.UpdatePartInput{
			FolderID:        req.FolderID,
			ClearFolder:     req.ClearFolder,
			Name:            req.Name,
			PartNumber:      req.PartNumber,
			Price:           req.Price,
			Quantity:        req.Quantity,
			MinimumQuantity: req.MinimumQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

// DeletePart removes a part unless job lines still reference it.
func DeletePart(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partID, err := pathUUID(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePart(r.Context(), workshopID, partID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// RecalculatePart rebuilds one part's availability balance from its
// reservations.
func RecalculatePart(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		partID, err := pathUUID(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RecalculateAvailability(r.Context(), workshopID, &partID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "recalculated"})
	}
}

// RecalculateInventory rebuilds availability balances for the whole workshop.
func RecalculateInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RecalculateAvailability(r.Context(), workshopID, nil); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "recalculated"})
	}
}
