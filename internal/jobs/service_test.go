package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lukamarin/gearbox-backend/internal/inventory"
	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	"github.com/lukamarin/gearbox-backend/pkg/enums"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
)

type fakeNotifier struct {
	alerts []inventory.LowStockAlert
}

func (n *fakeNotifier) NotifyLowStock(_ context.Context, alert inventory.LowStockAlert) error {
	n.alerts = append(n.alerts, alert)
	return nil
}

type fixture struct {
	client   *db.Client
	svc      Service
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:jobs_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Part{}, &models.Job{}, &models.JobPart{}))

	client := db.NewWithConn(conn)
	notifier := &fakeNotifier{}
	svc := NewService(
		client,
		NewRepository(client),
		inventory.NewRepository(client),
		inventory.NewLedger(nil),
		notifier,
		nil,
		nil,
	)
	return &fixture{client: client, svc: svc, notifier: notifier}
}

func (f *fixture) seedPart(t *testing.T, workshopID uuid.UUID, name string, quantity, minimum int) *models.Part {
	t.Helper()
	part := &models.Part{
		ID:                  uuid.New(),
		WorkshopID:          workshopID,
		Name:                name,
		PartNumber:          "PN-" + uuid.NewString()[:8],
		Quantity:            quantity,
		AvailabilityBalance: quantity,
		MinimumQuantity:     minimum,
	}
	require.NoError(t, f.client.DB().Create(part).Error)
	return part
}

func (f *fixture) partState(t *testing.T, partID uuid.UUID) (quantity, balance int) {
	t.Helper()
	var part models.Part
	require.NoError(t, f.client.DB().First(&part, "id = ?", partID).Error)
	return part.Quantity, part.AvailabilityBalance
}

func TestReservationLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	part := f.seedPart(t, workshopID, "brake pad", 10, 3)

	// Two awaiting-parts jobs reserve 4 and 5 units. Physical stock is
	// untouched while the balance tracks remaining availability.
	j1, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatusAwaitingParts,
		Parts:  []JobLineInput{{PartID: part.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	qty, balance := f.partState(t, part.ID)
	assert.Equal(t, 10, qty)
	assert.Equal(t, 6, balance)

	j2, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatusAwaitingParts,
		Parts:  []JobLineInput{{PartID: part.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	qty, balance = f.partState(t, part.ID)
	assert.Equal(t, 10, qty)
	assert.Equal(t, 1, balance)
	require.Len(t, f.notifier.alerts, 1, "balance 1 under minimum 3 must alert")
	assert.Equal(t, "brake pad", f.notifier.alerts[0].PartName)

	// Starting the first job consumes its reservation: quantity drops,
	// balance stays because the reservation already accounted for it.
	status := enums.JobStatusInProgress
	_, err = f.svc.UpdateJob(ctx, workshopID, j1.ID, UpdateJobInput{Status: &status})
	require.NoError(t, err)

	qty, balance = f.partState(t, part.ID)
	assert.Equal(t, 6, qty)
	assert.Equal(t, 1, balance)

	// Deleting the second job releases its reservation.
	require.NoError(t, f.svc.DeleteJob(ctx, workshopID, j2.ID))

	qty, balance = f.partState(t, part.ID)
	assert.Equal(t, 6, qty)
	assert.Equal(t, 6, balance)
}

func TestCreateJobInsufficientStockHasNoPartialEffect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	plentiful := f.seedPart(t, workshopID, "washer", 50, 0)
	scarce := f.seedPart(t, workshopID, "oil filter", 2, 0)

	_, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatusInProgress,
		Parts: []JobLineInput{
			{PartID: plentiful.ID, Quantity: 10},
			{PartID: scarce.ID, Quantity: 5},
		},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// The plentiful part's consumption rolled back with the transaction.
	qty, balance := f.partState(t, plentiful.ID)
	assert.Equal(t, 50, qty)
	assert.Equal(t, 50, balance)
	qty, balance = f.partState(t, scarce.ID)
	assert.Equal(t, 2, qty)
	assert.Equal(t, 2, balance)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Job{}).Count(&count).Error)
	assert.Zero(t, count, "no job row may survive a failed create")
}

func TestCommitTransitionInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	part := f.seedPart(t, workshopID, "gasket", 3, 0)

	job, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatusAwaitingParts,
		Parts:  []JobLineInput{{PartID: part.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	// Physical stock shrank out of band; committing 5 from 2 must fail and
	// leave the job awaiting.
	require.NoError(t, f.client.DB().Model(&models.Part{}).
		Where("id = ?", part.ID).Update("quantity", 2).Error)

	status := enums.JobStatusDone
	_, err = f.svc.UpdateJob(ctx, workshopID, job.ID, UpdateJobInput{Status: &status})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	reloaded, err := f.svc.GetJob(ctx, workshopID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.JobStatusAwaitingParts, reloaded.Status)
}

func TestReleaseTransitionReturnsStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	part := f.seedPart(t, workshopID, "spark plug", 8, 0)

	job, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatusInProgress,
		Parts:  []JobLineInput{{PartID: part.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	qty, balance := f.partState(t, part.ID)
	assert.Equal(t, 5, qty)
	assert.Equal(t, 5, balance)

	// Moving back to awaiting returns quantity; the line reserves again.
	status := enums.JobStatusAwaitingParts
	_, err = f.svc.UpdateJob(ctx, workshopID, job.ID, UpdateJobInput{Status: &status})
	require.NoError(t, err)

	qty, balance = f.partState(t, part.ID)
	assert.Equal(t, 8, qty)
	assert.Equal(t, 5, balance)
}

func TestEditPartsListAppliesDeltas(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	kept := f.seedPart(t, workshopID, "brake pad", 10, 0)
	added := f.seedPart(t, workshopID, "rotor", 6, 0)

	job, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatusAwaitingParts,
		Parts:  []JobLineInput{{PartID: kept.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	// Reduce the existing line and add a new one.
	newParts := []JobLineInput{
		{PartID: kept.ID, Quantity: 1},
		{PartID: added.ID, Quantity: 2},
	}
	updated, err := f.svc.UpdateJob(ctx, workshopID, job.ID, UpdateJobInput{Parts: &newParts})
	require.NoError(t, err)
	require.Len(t, updated.Parts, 2)

	_, balance := f.partState(t, kept.ID)
	assert.Equal(t, 9, balance)
	_, balance = f.partState(t, added.ID)
	assert.Equal(t, 4, balance)

	// Clearing the list releases everything.
	empty := []JobLineInput{}
	updated, err = f.svc.UpdateJob(ctx, workshopID, job.ID, UpdateJobInput{Parts: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Parts)

	_, balance = f.partState(t, kept.ID)
	assert.Equal(t, 10, balance)
	_, balance = f.partState(t, added.ID)
	assert.Equal(t, 6, balance)
}

func TestEditPartsAndStatusTogether(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	part := f.seedPart(t, workshopID, "belt", 10, 0)

	job, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatusAwaitingParts,
		Parts:  []JobLineInput{{PartID: part.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	status := enums.JobStatusInProgress
	newParts := []JobLineInput{{PartID: part.ID, Quantity: 2}}
	updated, err := f.svc.UpdateJob(ctx, workshopID, job.ID, UpdateJobInput{
		Status: &status,
		Parts:  &newParts,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.JobStatusInProgress, updated.Status)

	// Reservation of 4 reverted, consumption of 2 applied.
	qty, balance := f.partState(t, part.ID)
	assert.Equal(t, 8, qty)
	assert.Equal(t, 8, balance)
}

func TestCreateJobMergesDuplicateLines(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	part := f.seedPart(t, workshopID, "clip", 10, 0)

	job, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatusAwaitingParts,
		Parts: []JobLineInput{
			{PartID: part.ID, Quantity: 2},
			{PartID: part.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, job.Parts, 1)
	assert.Equal(t, 5, job.Parts[0].Quantity)

	_, balance := f.partState(t, part.ID)
	assert.Equal(t, 5, balance)
}

func TestCreateJobValidatesLines(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	part := f.seedPart(t, workshopID, "nut", 10, 0)

	_, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Parts: []JobLineInput{{PartID: part.ID, Quantity: 0}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		Status: enums.JobStatus("bogus"),
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDeleteOrderJobsRevertsEverything(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()
	orderID := uuid.New()
	part := f.seedPart(t, workshopID, "hose", 10, 0)

	_, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		OrderID: &orderID,
		Status:  enums.JobStatusAwaitingParts,
		Parts:   []JobLineInput{{PartID: part.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	_, err = f.svc.CreateJob(ctx, workshopID, CreateJobInput{
		OrderID: &orderID,
		Status:  enums.JobStatusInProgress,
		Parts:   []JobLineInput{{PartID: part.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	qty, balance := f.partState(t, part.ID)
	require.Equal(t, 8, qty)
	require.Equal(t, 5, balance)

	require.NoError(t, f.svc.DeleteOrderJobs(ctx, workshopID, orderID))

	qty, balance = f.partState(t, part.ID)
	assert.Equal(t, 10, qty)
	assert.Equal(t, 10, balance)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Job{}).
		Where("order_id = ?", orderID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestJobScopedToWorkshop(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	workshopID := uuid.New()

	job, err := f.svc.CreateJob(ctx, workshopID, CreateJobInput{})
	require.NoError(t, err)

	_, err = f.svc.GetJob(ctx, uuid.New(), job.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
