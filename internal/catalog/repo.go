package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
)

// Repository provides workshop-scoped folder persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{db: client.DB()}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, folder *models.PartsFolder) error {
	if err := r.db.WithContext(ctx).Create(folder).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create folder")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, workshopID, folderID uuid.UUID) (*models.PartsFolder, error) {
	var folder models.PartsFolder
	err := r.db.WithContext(ctx).
		First(&folder, "id = ? AND workshop_id = ?", folderID, workshopID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "folder not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find folder")
	}
	return &folder, nil
}

func (r *Repository) Save(ctx context.Context, folder *models.PartsFolder) error {
	if err := r.db.WithContext(ctx).Save(folder).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save folder")
	}
	return nil
}

// ListChildren returns the direct subfolders of a folder; a nil parentID
// lists workshop roots.
func (r *Repository) ListChildren(ctx context.Context, workshopID uuid.UUID, parentID *uuid.UUID) ([]models.PartsFolder, error) {
	query := r.db.WithContext(ctx).
		Where("workshop_id = ?", workshopID).
		Order("name")
	if parentID != nil {
		query = query.Where("parent_id = ?", *parentID)
	} else {
		query = query.Where("parent_id IS NULL")
	}

	var folders []models.PartsFolder
	if err := query.Find(&folders).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list folders")
	}
	return folders, nil
}

// ListChildIDs returns the ids of direct subfolders of the given folders.
func (r *Repository) ListChildIDs(ctx context.Context, workshopID uuid.UUID, parentIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PartsFolder{}).
		Where("workshop_id = ? AND parent_id IN ?", workshopID, parentIDs).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list child folder ids")
	}
	return ids, nil
}

func (r *Repository) DeleteByIDs(ctx context.Context, workshopID uuid.UUID, folderIDs []uuid.UUID) error {
	if len(folderIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("workshop_id = ? AND id IN ?", workshopID, folderIDs).
		Delete(&models.PartsFolder{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete folders")
	}
	return nil
}
