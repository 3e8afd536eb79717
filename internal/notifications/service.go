package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lukamarin/gearbox-backend/internal/inventory"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	"github.com/lukamarin/gearbox-backend/pkg/enums"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// Deduper suppresses repeat low-stock alerts within a TTL window. The redis
// client satisfies this.
type Deduper interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LowStockAlertKey(workshopID, partID string) string
}

// NotificationDTO is the API-facing projection of a notification.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	PartID    *uuid.UUID             `json:"part_id,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationPage is one page of notifications plus the next cursor and the
// workshop's unread total.
type NotificationPage struct {
	Notifications []NotificationDTO `json:"notifications"`
	UnreadCount   int64             `json:"unread_count"`
	NextCursor    string            `json:"next_cursor,omitempty"`
}

// Service exposes notification operations and receives low-stock alerts from
// the inventory engine.
type Service interface {
	inventory.Notifier

	List(ctx context.Context, workshopID uuid.UUID, unreadOnly bool, params pagination.Params) (*NotificationPage, error)
	MarkRead(ctx context.Context, workshopID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, workshopID uuid.UUID) error
}

type service struct {
	repo     *Repository
	deduper  Deduper
	alertTTL time.Duration
	logg     *logger.Logger
}

// NewService wires the notification service. A nil deduper disables alert
// deduplication, which is what tests and single-node dev setups want.
func NewService(repo *Repository, deduper Deduper, alertTTL time.Duration, logg *logger.Logger) Service {
	return &service{
		repo:     repo,
		deduper:  deduper,
		alertTTL: alertTTL,
		logg:     logg,
	}
}

// NotifyLowStock persists a low-stock notification unless an identical alert
// fired for the same part within the TTL window. A dedupe backend failure
// fails open: a duplicate alert beats a silently dropped one.
func (s *service) NotifyLowStock(ctx context.Context, alert inventory.LowStockAlert) error {
	if s.deduper != nil {
		key := s.deduper.LowStockAlertKey(alert.WorkshopID.String(), alert.PartID.String())
		acquired, err := s.deduper.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.alertTTL)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "low stock dedupe check failed", err)
			}
		} else if !acquired {
			return nil
		}
	}

	partID := alert.PartID
	return s.repo.Create(ctx, &models.Notification{
		ID:         uuid.New(),
		WorkshopID: alert.WorkshopID,
		Type:       enums.NotificationTypeLowStock,
		Title:      "Low stock: " + alert.PartName,
		Message: fmt.Sprintf("Available balance for %s is %d, below the minimum of %d.",
			alert.PartName, alert.AvailabilityBalance, alert.MinimumQuantity),
		PartID: &partID,
	})
}

func (s *service) List(ctx context.Context, workshopID uuid.UUID, unreadOnly bool, params pagination.Params) (*NotificationPage, error) {
	rows, err := s.repo.List(ctx, workshopID, unreadOnly, params)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, workshopID)
	if err != nil {
		return nil, err
	}

	normalized := pagination.NormalizeLimit(params.Limit)
	page := &NotificationPage{
		Notifications: make([]NotificationDTO, 0, len(rows)),
		UnreadCount:   unread,
	}

	hasMore := len(rows) > normalized
	if hasMore {
		rows = rows[:normalized]
	}
	for _, row := range rows {
		page.Notifications = append(page.Notifications, NotificationDTO{
			ID:        row.ID,
			Type:      row.Type,
			Title:     row.Title,
			Message:   row.Message,
			PartID:    row.PartID,
			ReadAt:    row.ReadAt,
			CreatedAt: row.CreatedAt,
		})
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// MarkRead acknowledges a notification. Reading a low-stock alert also clears
// its dedupe key, so the next dip below threshold alerts again right away
// instead of waiting out the TTL.
func (s *service) MarkRead(ctx context.Context, workshopID, notificationID uuid.UUID) error {
	notification, err := s.repo.FindByID(ctx, workshopID, notificationID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, workshopID, notificationID); err != nil {
		return err
	}

	if s.deduper != nil && notification.Type == enums.NotificationTypeLowStock && notification.PartID != nil {
		s.clearDedupe(ctx, workshopID, []uuid.UUID{*notification.PartID})
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, workshopID uuid.UUID) error {
	var partIDs []uuid.UUID
	if s.deduper != nil {
		var err error
		partIDs, err = s.repo.ListUnreadLowStockPartIDs(ctx, workshopID)
		if err != nil {
			return err
		}
	}
	if err := s.repo.MarkAllRead(ctx, workshopID); err != nil {
		return err
	}

	s.clearDedupe(ctx, workshopID, partIDs)
	return nil
}

// clearDedupe drops dedupe keys for acknowledged alerts. Failures are logged
// only; the keys expire on their own.
func (s *service) clearDedupe(ctx context.Context, workshopID uuid.UUID, partIDs []uuid.UUID) {
	if s.deduper == nil || len(partIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(partIDs))
	for _, partID := range partIDs {
		keys = append(keys, s.deduper.LowStockAlertKey(workshopID.String(), partID.String()))
	}
	if err := s.deduper.Del(ctx, keys...); err != nil && s.logg != nil {
		s.logg.Error(ctx, "low stock dedupe clear failed", err)
	}
}
