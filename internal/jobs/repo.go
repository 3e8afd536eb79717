package jobs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// Repository provides workshop-scoped job persistence.
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

func (r *Repository) Create(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, workshopID, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Preload("Parts").
		First(&job, "id = ? AND workshop_id = ?", jobID, workshopID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find job")
	}
	return &job, nil
}

func (r *Repository) ListByWorkshop(ctx context.Context, workshopID uuid.UUID, params pagination.Params) ([]models.Job, error) {
	query := r.db.WithContext(ctx).
		Preload("Parts").
		Where("workshop_id = ?", workshopID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

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

	var rows []models.Job
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list jobs")
	}
	return rows, nil
}

// ListByOrder returns every job attached to an order, lines included.
func (r *Repository) ListByOrder(ctx context.Context, workshopID, orderID uuid.UUID) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Preload("Parts").
		Where("workshop_id = ? AND order_id = ?", workshopID, orderID).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order jobs")
	}
	return rows, nil
}

func (r *Repository) Save(ctx context.Context, job *models.Job) error {
	err := r.db.WithContext(ctx).
		Omit("Parts").
		Save(job).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save job")
	}
	return nil
}

// ReplaceLines swaps the job's part lines for the given set.
func (r *Repository) ReplaceLines(ctx context.Context, jobID uuid.UUID, lines []models.JobPart) error {
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&models.JobPart{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear job lines")
	}
	if len(lines) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&lines).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job lines")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, workshopID, jobID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&models.JobPart{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete job lines")
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND workshop_id = ?", jobID, workshopID).
		Delete(&models.Job{})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "delete job")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "job not found")
	}
	return nil
}
