package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lukamarin/gearbox-backend/api/responses"
	"github.com/lukamarin/gearbox-backend/api/validators"
	"github.com/lukamarin/gearbox-backend/internal/catalog"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
)

type createFolderRequest struct {
	Name     string     `json:"name" validate:"required,max=255"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

type renameFolderRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type moveFolderRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// CreateFolder creates a catalog folder, optionally under a parent.
func CreateFolder(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createFolderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		folder, err := svc.CreateFolder(r.Context(), workshopID, req.ParentID, req.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, folder)
	}
}

// RenameFolder changes a folder's name.
func RenameFolder(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		folderID, err := pathUUID(r, "folderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req renameFolderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		folder, err := svc.RenameFolder(r.Context(), workshopID, folderID, req.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, folder)
	}
}

// MoveFolder reparents a folder; a null parent_id moves it to the root.
func MoveFolder(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		folderID, err := pathUUID(r, "folderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req moveFolderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		folder, err := svc.MoveFolder(r.Context(), workshopID, folderID, req.ParentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, folder)
	}
}

// DeleteFolder removes a folder subtree and every part inside it.
func DeleteFolder(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		folderID, err := pathUUID(r, "folderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteFolder(r.Context(), workshopID, folderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// BrowseFolder lists the subfolders and parts of one catalog level; without
// a folderId query parameter it lists the workshop root.
func BrowseFolder(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
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

		children, err := svc.ListChildren(r.Context(), workshopID, folderID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, children)
	}
}
