package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukamarin/gearbox-backend/internal/activity"
	"github.com/lukamarin/gearbox-backend/internal/inventory"
	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// FolderDTO is the API-facing projection of a catalog folder.
type FolderDTO struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ChildrenDTO is the browse view of one catalog level: its direct subfolders
// plus one page of the parts filed there.
type ChildrenDTO struct {
	Folders []FolderDTO         `json:"folders"`
	Parts   *inventory.PartPage `json:"parts"`
}

// Service exposes catalog folder operations scoped to a workshop.
type Service interface {
	CreateFolder(ctx context.Context, workshopID uuid.UUID, parentID *uuid.UUID, name string) (*FolderDTO, error)
	RenameFolder(ctx context.Context, workshopID, folderID uuid.UUID, name string) (*FolderDTO, error)
	MoveFolder(ctx context.Context, workshopID, folderID uuid.UUID, newParentID *uuid.UUID) (*FolderDTO, error)
	DeleteFolder(ctx context.Context, workshopID, folderID uuid.UUID) error
	ListChildren(ctx context.Context, workshopID uuid.UUID, folderID *uuid.UUID, params pagination.Params) (*ChildrenDTO, error)
}

type service struct {
	client   *db.Client
	repo     *Repository
	parts    *inventory.Repository
	recorder activity.Recorder
	logg     *logger.Logger
}

// NewService wires the catalog service.
func NewService(client *db.Client, repo *Repository, parts *inventory.Repository, recorder activity.Recorder, logg *logger.Logger) Service {
	if recorder == nil {
		recorder = activity.NewNoopRecorder()
	}
	return &service{
		client:   client,
		repo:     repo,
		parts:    parts,
		recorder: recorder,
		logg:     logg,
	}
}

func (s *service) CreateFolder(ctx context.Context, workshopID uuid.UUID, parentID *uuid.UUID, name string) (*FolderDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder name is required")
	}
	if parentID != nil {
		if _, err := s.repo.FindByID(ctx, workshopID, *parentID); err != nil {
			return nil, err
		}
	}

	folder := &models.PartsFolder{
		ID:         uuid.New(),
		WorkshopID: workshopID,
		ParentID:   parentID,
		Name:       name,
	}
	if err := s.repo.Create(ctx, folder); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, workshopID, "folder.create", "folder "+name+" created")
	return toFolderDTO(folder), nil
}

func (s *service) RenameFolder(ctx context.Context, workshopID, folderID uuid.UUID, name string) (*FolderDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder name is required")
	}

	folder, err := s.repo.FindByID(ctx, workshopID, folderID)
	if err != nil {
		return nil, err
	}
	folder.Name = name
	if err := s.repo.Save(ctx, folder); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, workshopID, "folder.rename", "folder renamed to "+name)
	return toFolderDTO(folder), nil
}

// MoveFolder reparents a folder. The new parent must not be the folder itself
// or any of its descendants; that is checked by walking the ancestor chain of
// the new parent up to a root before anything is written.
func (s *service) MoveFolder(ctx context.Context, workshopID, folderID uuid.UUID, newParentID *uuid.UUID) (*FolderDTO, error) {
	var moved *models.PartsFolder
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)

		folder, err := scoped.FindByID(ctx, workshopID, folderID)
		if err != nil {
			return err
		}

		if newParentID != nil {
			if *newParentID == folderID {
				return pkgerrors.New(pkgerrors.CodeValidation, "cannot move a folder into itself")
			}
			if err := s.ensureNotDescendant(ctx, scoped, workshopID, folderID, *newParentID); err != nil {
				return err
			}
		}

		folder.ParentID = newParentID
		if err := scoped.Save(ctx, folder); err != nil {
			return err
		}
		moved = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, workshopID, "folder.move", "folder "+moved.Name+" moved")
	return toFolderDTO(moved), nil
}

// ensureNotDescendant walks up from candidate to a root and fails if folderID
// appears on the way. The visited set guards against a corrupted chain that
// already contains a cycle.
func (s *service) ensureNotDescendant(ctx context.Context, repo *Repository, workshopID, folderID, candidate uuid.UUID) error {
	visited := make(map[uuid.UUID]struct{})
	current := candidate
	for {
		if _, seen := visited[current]; seen {
			return pkgerrors.New(pkgerrors.CodeConflict, "folder hierarchy contains a cycle")
		}
		visited[current] = struct{}{}

		node, err := repo.FindByID(ctx, workshopID, current)
		if err != nil {
			return err
		}
		if node.ParentID == nil {
			return nil
		}
		if *node.ParentID == folderID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot move a folder into its own subtree")
		}
		current = *node.ParentID
	}
}

// DeleteFolder removes a folder and its whole subtree, parts included. The
// subtree is collected with an iterative worklist, so depth is unbounded.
// Deletion is refused while any job line references a part in the subtree;
// lines keep a foreign key to their part.
func (s *service) DeleteFolder(ctx context.Context, workshopID, folderID uuid.UUID) error {
	var name string
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)
		partsScoped := s.parts.WithTx(tx)

		folder, err := scoped.FindByID(ctx, workshopID, folderID)
		if err != nil {
			return err
		}
		name = folder.Name

		subtree := []uuid.UUID{folderID}
		frontier := []uuid.UUID{folderID}
		for len(frontier) > 0 {
			children, err := scoped.ListChildIDs(ctx, workshopID, frontier)
			if err != nil {
				return err
			}
			subtree = append(subtree, children...)
			frontier = children
		}

		partIDs, err := partsScoped.ListIDsInFolders(ctx, workshopID, subtree)
		if err != nil {
			return err
		}
		references, err := partsScoped.CountJobReferences(ctx, workshopID, partIDs)
		if err != nil {
			return err
		}
		if references > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "folder contains parts referenced by jobs").
				WithDetails(map[string]any{"job_references": references})
		}

		if err := partsScoped.DeleteByFolders(ctx, workshopID, subtree); err != nil {
			return err
		}
		return scoped.DeleteByIDs(ctx, workshopID, subtree)
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, workshopID, "folder.delete", "folder "+name+" deleted with its subtree")
	return nil
}

func (s *service) ListChildren(ctx context.Context, workshopID uuid.UUID, folderID *uuid.UUID, params pagination.Params) (*ChildrenDTO, error) {
	if folderID != nil {
		if _, err := s.repo.FindByID(ctx, workshopID, *folderID); err != nil {
			return nil, err
		}
	}

	folders, err := s.repo.ListChildren(ctx, workshopID, folderID)
	if err != nil {
		return nil, err
	}
	parts, err := s.parts.ListByFolder(ctx, workshopID, folderID, params)
	if err != nil {
		return nil, err
	}

	dto := &ChildrenDTO{Folders: make([]FolderDTO, 0, len(folders))}
	for i := range folders {
		dto.Folders = append(dto.Folders, *toFolderDTO(&folders[i]))
	}
	dto.Parts = inventory.NewPartPage(parts, params.Limit)
	return dto, nil
}

func toFolderDTO(folder *models.PartsFolder) *FolderDTO {
	return &FolderDTO{
		ID:        folder.ID,
		ParentID:  folder.ParentID,
		Name:      folder.Name,
		CreatedAt: folder.CreatedAt,
		UpdatedAt: folder.UpdatedAt,
	}
}
