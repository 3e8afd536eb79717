package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	"github.com/lukamarin/gearbox-backend/pkg/enums"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// Repository provides workshop-scoped part persistence.
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

// partNumberConstraint is the unique index on (workshop_id, part_number).
const partNumberConstraint = "uq_parts_workshop_part_number"

func (r *Repository) Create(ctx context.Context, part *models.Part) error {
	if err := r.db.WithContext(ctx).Create(part).Error; err != nil {
		if db.IsUniqueViolation(err, partNumberConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "part number already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create part")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, workshopID, partID uuid.UUID) (*models.Part, error) {
	var part models.Part
	err := r.db.WithContext(ctx).
		First(&part, "id = ? AND workshop_id = ?", partID, workshopID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find part")
	}
	return &part, nil
}

// FindByIDForUpdate loads a part under a row lock where the dialect has one.
func (r *Repository) FindByIDForUpdate(ctx context.Context, workshopID, partID uuid.UUID) (*models.Part, error) {
	return lockPart(ctx, r.db, workshopID, partID)
}

func (r *Repository) Save(ctx context.Context, part *models.Part) error {
	if err := r.db.WithContext(ctx).Save(part).Error; err != nil {
		if db.IsUniqueViolation(err, partNumberConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "part number already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save part")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, workshopID, partID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND workshop_id = ?", partID, workshopID).
		Delete(&models.Part{})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "delete part")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
	}
	return nil
}

// DeleteByFolders removes every part filed under the given folders.
func (r *Repository) DeleteByFolders(ctx context.Context, workshopID uuid.UUID, folderIDs []uuid.UUID) error {
	if len(folderIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("workshop_id = ? AND folder_id IN ?", workshopID, folderIDs).
		Delete(&models.Part{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete folder parts")
	}
	return nil
}

// FolderExists reports whether the folder exists in the workshop. Parts only
// reference folders the caller's workshop owns.
func (r *Repository) FolderExists(ctx context.Context, workshopID, folderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PartsFolder{}).
		Where("id = ? AND workshop_id = ?", folderID, workshopID).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check folder")
	}
	return count > 0, nil
}

// ListByFolder pages parts in a folder; a nil folderID lists root parts.
func (r *Repository) ListByFolder(ctx context.Context, workshopID uuid.UUID, folderID *uuid.UUID, params pagination.Params) ([]models.Part, error) {
	query := r.db.WithContext(ctx).
		Where("workshop_id = ?", workshopID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if folderID != nil {
		query = query.Where("folder_id = ?", *folderID)
	} else {
		query = query.Where("folder_id IS NULL")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var parts []models.Part
	if err := query.Find(&parts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}
	return parts, nil
}

// ListIDsInFolders returns the ids of every part filed under the folders.
func (r *Repository) ListIDsInFolders(ctx context.Context, workshopID uuid.UUID, folderIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("workshop_id = ? AND folder_id IN ?", workshopID, folderIDs).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list folder part ids")
	}
	return ids, nil
}

// ListForRecalc loads the parts whose balances should be recomputed, locked
// where the dialect supports it. A nil partIDs slice selects the whole
// workshop.
func (r *Repository) ListForRecalc(ctx context.Context, workshopID uuid.UUID, partIDs []uuid.UUID) ([]models.Part, error) {
	query := r.db.WithContext(ctx).Where("workshop_id = ?", workshopID)
	if len(partIDs) > 0 {
		query = query.Where("id IN ?", partIDs)
	}
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var parts []models.Part
	// Deterministic lock order keeps concurrent recalculations deadlock free.
	if err := query.Order("id").Find(&parts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parts for recalc")
	}
	return parts, nil
}

// SumReservedQuantities totals awaiting-parts job line quantities per part.
func (r *Repository) SumReservedQuantities(ctx context.Context, workshopID uuid.UUID, partIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	type row struct {
		PartID   uuid.UUID
		Reserved int
	}

	query := r.db.WithContext(ctx).
		Table("job_parts").
		Select("job_parts.part_id AS part_id, COALESCE(SUM(job_parts.quantity), 0) AS reserved").
		Joins("JOIN jobs ON jobs.id = job_parts.job_id").
		Where("jobs.workshop_id = ? AND jobs.status = ?", workshopID, enums.JobStatusAwaitingParts).
		Group("job_parts.part_id")
	if len(partIDs) > 0 {
		query = query.Where("job_parts.part_id IN ?", partIDs)
	}

	var rows []row
	if err := query.Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum reserved quantities")
	}

	reserved := make(map[uuid.UUID]int, len(rows))
	for _, entry := range rows {
		reserved[entry.PartID] = entry.Reserved
	}
	return reserved, nil
}

// CountJobReferences counts job lines referencing the parts, at any status.
// Lines keep a foreign key to their part, so a referenced part cannot be
// deleted until its jobs are gone.
func (r *Repository) CountJobReferences(ctx context.Context, workshopID uuid.UUID, partIDs []uuid.UUID) (int64, error) {
	if len(partIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Table("job_parts").
		Joins("JOIN jobs ON jobs.id = job_parts.job_id").
		Where("jobs.workshop_id = ? AND job_parts.part_id IN ?", workshopID, partIDs).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count job references")
	}
	return count, nil
}
