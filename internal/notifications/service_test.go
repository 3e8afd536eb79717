package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lukamarin/gearbox-backend/internal/inventory"
	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

type fakeDeduper struct {
	keys map[string]bool
	err  error
}

func (d *fakeDeduper) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.keys == nil {
		d.keys = make(map[string]bool)
	}
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *fakeDeduper) Del(_ context.Context, keys ...string) error {
	if d.err != nil {
		return d.err
	}
	for _, key := range keys {
		delete(d.keys, key)
	}
	return nil
}

func (d *fakeDeduper) LowStockAlertKey(workshopID, partID string) string {
	return "gb:alert:low_stock:" + workshopID + ":" + partID
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(db.NewWithConn(conn))
}

func sampleAlert(workshopID uuid.UUID) inventory.LowStockAlert {
	return inventory.LowStockAlert{
		WorkshopID:          workshopID,
		PartID:              uuid.New(),
		PartName:            "brake pad",
		AvailabilityBalance: 1,
		MinimumQuantity:     3,
	}
}

func TestNotifyLowStockDeduplicates(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	svc := NewService(repo, &fakeDeduper{}, 12*time.Hour, nil)
	workshopID := uuid.New()
	ctx := context.Background()
	alert := sampleAlert(workshopID)

	if err := svc.NotifyLowStock(ctx, alert); err != nil {
		t.Fatalf("first alert: %v", err)
	}
	// Same part within the window is suppressed.
	if err := svc.NotifyLowStock(ctx, alert); err != nil {
		t.Fatalf("duplicate alert: %v", err)
	}
	// A different part gets its own notification.
	other := sampleAlert(workshopID)
	if err := svc.NotifyLowStock(ctx, other); err != nil {
		t.Fatalf("other alert: %v", err)
	}

	page, err := svc.List(ctx, workshopID, false, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(page.Notifications))
	}
	if page.UnreadCount != 2 {
		t.Fatalf("expected 2 unread, got %d", page.UnreadCount)
	}
	got := page.Notifications[0]
	if got.Title != "Low stock: brake pad" || got.PartID == nil {
		t.Fatalf("unexpected notification: %+v", got)
	}
}

func TestNotifyLowStockFailsOpenOnDedupeError(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	deduper := &fakeDeduper{err: context.DeadlineExceeded}
	svc := NewService(repo, deduper, time.Hour, nil)
	workshopID := uuid.New()

	if err := svc.NotifyLowStock(context.Background(), sampleAlert(workshopID)); err != nil {
		t.Fatalf("alert with broken deduper: %v", err)
	}

	page, err := svc.List(context.Background(), workshopID, false, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 1 {
		t.Fatalf("expected alert despite dedupe failure, got %d", len(page.Notifications))
	}
}

func TestMarkReadClearsAlertDedupe(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	svc := NewService(repo, &fakeDeduper{}, 12*time.Hour, nil)
	workshopID := uuid.New()
	ctx := context.Background()
	alert := sampleAlert(workshopID)

	if err := svc.NotifyLowStock(ctx, alert); err != nil {
		t.Fatalf("first alert: %v", err)
	}
	// Suppressed while unacknowledged.
	if err := svc.NotifyLowStock(ctx, alert); err != nil {
		t.Fatalf("duplicate alert: %v", err)
	}
	page, err := svc.List(ctx, workshopID, false, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 1 {
		t.Fatalf("expected 1 notification while unread, got %d", len(page.Notifications))
	}

	if err := svc.MarkRead(ctx, workshopID, page.Notifications[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// Acknowledging the alert re-arms it for the same part.
	if err := svc.NotifyLowStock(ctx, alert); err != nil {
		t.Fatalf("alert after ack: %v", err)
	}
	page, err = svc.List(ctx, workshopID, false, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 2 {
		t.Fatalf("expected a fresh alert after mark read, got %d", len(page.Notifications))
	}

	// MarkAllRead re-arms every unread low-stock part at once.
	if err := svc.MarkAllRead(ctx, workshopID); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if err := svc.NotifyLowStock(ctx, alert); err != nil {
		t.Fatalf("alert after mark all: %v", err)
	}
	page, err = svc.List(ctx, workshopID, false, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 3 {
		t.Fatalf("expected alert after mark all read, got %d", len(page.Notifications))
	}
}

func TestMarkReadFlow(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	svc := NewService(repo, nil, 0, nil)
	workshopID := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.NotifyLowStock(ctx, sampleAlert(workshopID)); err != nil {
			t.Fatalf("alert %d: %v", i, err)
		}
	}

	page, err := svc.List(ctx, workshopID, true, pagination.Params{})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(page.Notifications) != 3 || page.UnreadCount != 3 {
		t.Fatalf("expected 3 unread, got %d (%d)", len(page.Notifications), page.UnreadCount)
	}

	first := page.Notifications[0].ID
	if err := svc.MarkRead(ctx, workshopID, first); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// Marking the same row twice is a not found: it is no longer unread.
	err = svc.MarkRead(ctx, workshopID, first)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second mark, got %v", err)
	}

	if err := svc.MarkAllRead(ctx, workshopID); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	page, err = svc.List(ctx, workshopID, true, pagination.Params{})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(page.Notifications) != 0 || page.UnreadCount != 0 {
		t.Fatalf("expected everything read, got %d (%d)", len(page.Notifications), page.UnreadCount)
	}
}

func TestMarkReadScopedToWorkshop(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	svc := NewService(repo, nil, 0, nil)
	workshopID := uuid.New()
	ctx := context.Background()

	if err := svc.NotifyLowStock(ctx, sampleAlert(workshopID)); err != nil {
		t.Fatalf("alert: %v", err)
	}
	page, err := svc.List(ctx, workshopID, false, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	err = svc.MarkRead(ctx, uuid.New(), page.Notifications[0].ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found across workshops, got %v", err)
	}
}
