package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	"github.com/lukamarin/gearbox-backend/pkg/enums"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// Repository provides workshop-scoped notification persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{db: client.DB()}
}

func (r *Repository) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, workshopID, notificationID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		First(&notification, "id = ? AND workshop_id = ?", notificationID, workshopID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find notification")
	}
	return &notification, nil
}

// List pages notifications newest first; unreadOnly narrows to unread rows.
func (r *Repository) List(ctx context.Context, workshopID uuid.UUID, unreadOnly bool, params pagination.Params) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).
		Where("workshop_id = ?", workshopID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if unreadOnly {
		query = query.Where("read_at IS NULL")
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

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return rows, nil
}

func (r *Repository) CountUnread(ctx context.Context, workshopID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("workshop_id = ? AND read_at IS NULL", workshopID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, workshopID, notificationID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND workshop_id = ? AND read_at IS NULL", notificationID, workshopID).
		Update("read_at", time.Now().UTC())
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "mark notification read")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "unread notification not found")
	}
	return nil
}

// ListUnreadLowStockPartIDs returns the distinct part ids behind the
// workshop's unread low-stock rows.
func (r *Repository) ListUnreadLowStockPartIDs(ctx context.Context, workshopID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Distinct("part_id").
		Where("workshop_id = ? AND read_at IS NULL AND type = ? AND part_id IS NOT NULL",
			workshopID, enums.NotificationTypeLowStock).
		Pluck("part_id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unread low stock part ids")
	}
	return ids, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, workshopID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("workshop_id = ? AND read_at IS NULL", workshopID).
		Update("read_at", time.Now().UTC()).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark all notifications read")
	}
	return nil
}
