package jobs

import (
	"bytes"
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lukamarin/gearbox-backend/internal/activity"
	"github.com/lukamarin/gearbox-backend/internal/inventory"
	"github.com/lukamarin/gearbox-backend/pkg/db"
	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	"github.com/lukamarin/gearbox-backend/pkg/enums"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// Service exposes job lifecycle operations. Every mutation that touches part
// lines runs in one transaction: either all stock effects land or none do.
type Service interface {
	CreateJob(ctx context.Context, workshopID uuid.UUID, input CreateJobInput) (*JobDTO, error)
	GetJob(ctx context.Context, workshopID, jobID uuid.UUID) (*JobDTO, error)
	ListJobs(ctx context.Context, workshopID uuid.UUID, params pagination.Params) (*JobPage, error)
	UpdateJob(ctx context.Context, workshopID, jobID uuid.UUID, input UpdateJobInput) (*JobDTO, error)
	DeleteJob(ctx context.Context, workshopID, jobID uuid.UUID) error
	DeleteOrderJobs(ctx context.Context, workshopID, orderID uuid.UUID) error
}

type service struct {
	client   *db.Client
	repo     *Repository
	parts    *inventory.Repository
	ledger   *inventory.Ledger
	notifier inventory.Notifier
	recorder activity.Recorder
	logg     *logger.Logger
}

// NewService wires the job service.
func NewService(client *db.Client, repo *Repository, parts *inventory.Repository, ledger *inventory.Ledger, notifier inventory.Notifier, recorder activity.Recorder, logg *logger.Logger) Service {
	if recorder == nil {
		recorder = activity.NewNoopRecorder()
	}
	return &service{
		client:   client,
		repo:     repo,
		parts:    parts,
		ledger:   ledger,
		notifier: notifier,
		recorder: recorder,
		logg:     logg,
	}
}

type stockOpKind int

const (
	opApply stockOpKind = iota
	opRevert
	opCommit
	opRelease
)

// stockOp is one planned ledger mutation. Plans execute sorted by part id so
// concurrent transactions acquire part row locks in the same order.
type stockOp struct {
	kind   stockOpKind
	partID uuid.UUID
	qty    int
	status enums.JobStatus
}

func (s *service) executePlan(ctx context.Context, tx *gorm.DB, workshopID uuid.UUID, plan []stockOp) error {
	sort.SliceStable(plan, func(i, j int) bool {
		return bytes.Compare(plan[i].partID[:], plan[j].partID[:]) < 0
	})
	for _, op := range plan {
		var err error
		switch op.kind {
		case opApply:
			err = s.ledger.Apply(ctx, tx, workshopID, op.partID, op.qty, op.status)
		case opRevert:
			err = s.ledger.Revert(ctx, tx, workshopID, op.partID, op.qty, op.status)
		case opCommit:
			err = s.ledger.Commit(ctx, tx, workshopID, op.partID, op.qty)
		case opRelease:
			err = s.ledger.Release(ctx, tx, workshopID, op.partID, op.qty)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// normalizeLines validates the requested lines and merges duplicate part ids
// by summing their quantities. The first line's price wins for a merged part.
func normalizeLines(lines []JobLineInput) ([]JobLineInput, error) {
	merged := make([]JobLineInput, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part line quantity must be positive")
		}
		if line.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part line price cannot be negative")
		}
		if at, ok := index[line.PartID]; ok {
			merged[at].Quantity += line.Quantity
			continue
		}
		index[line.PartID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

func lineQuantities(lines []models.JobPart) map[uuid.UUID]int {
	quantities := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		quantities[line.PartID] += line.Quantity
	}
	return quantities
}

func (s *service) CreateJob(ctx context.Context, workshopID uuid.UUID, input CreateJobInput) (*JobDTO, error) {
	status := input.Status
	if status == "" {
		status = enums.JobStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid job status")
	}
	lines, err := normalizeLines(input.Parts)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		ID:         uuid.New(),
		WorkshopID: workshopID,
		OrderID:    input.OrderID,
		WorkerID:   input.WorkerID,
		JobTypeID:  input.JobTypeID,
		Status:     status,
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
	}
	for _, line := range lines {
		job.Parts = append(job.Parts, models.JobPart{
			ID:       uuid.New(),
			JobID:    job.ID,
			PartID:   line.PartID,
			Quantity: line.Quantity,
			Price:    line.Price,
		})
	}

	var alerts []inventory.LowStockAlert
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		plan := make([]stockOp, 0, len(lines))
		touched := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			plan = append(plan, stockOp{kind: opApply, partID: line.PartID, qty: line.Quantity, status: status})
			touched = append(touched, line.PartID)
		}
		if err := s.executePlan(ctx, tx, workshopID, plan); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, job); err != nil {
			return err
		}

		var txErr error
		alerts, txErr = inventory.RecalculateBalances(ctx, tx, s.parts, workshopID, touched)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, workshopID, "job.create", "job created with "+string(status)+" status")
	s.dispatchAlerts(ctx, alerts)
	return toJobDTO(job), nil
}

func (s *service) GetJob(ctx context.Context, workshopID, jobID uuid.UUID) (*JobDTO, error) {
	job, err := s.repo.FindByID(ctx, workshopID, jobID)
	if err != nil {
		return nil, err
	}
	return toJobDTO(job), nil
}

func (s *service) ListJobs(ctx context.Context, workshopID uuid.UUID, params pagination.Params) (*JobPage, error) {
	rows, err := s.repo.ListByWorkshop(ctx, workshopID, params)
	if err != nil {
		return nil, err
	}
	return toJobPage(rows, params.Limit), nil
}

func (s *service) UpdateJob(ctx context.Context, workshopID, jobID uuid.UUID, input UpdateJobInput) (*JobDTO, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid job status")
	}
	var newLines []JobLineInput
	if input.Parts != nil {
		var err error
		newLines, err = normalizeLines(*input.Parts)
		if err != nil {
			return nil, err
		}
	}

	var (
		updated *models.Job
		alerts  []inventory.LowStockAlert
	)
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		scoped := s.repo.WithTx(tx)

		job, err := scoped.FindByID(ctx, workshopID, jobID)
		if err != nil {
			return err
		}

		prevStatus := job.Status
		newStatus := prevStatus
		if input.Status != nil {
			newStatus = *input.Status
		}

		plan, touched := planUpdate(job, prevStatus, newStatus, input.Parts != nil, newLines)
		if err := s.executePlan(ctx, tx, workshopID, plan); err != nil {
			return err
		}

		if input.Parts != nil {
			rows := make([]models.JobPart, 0, len(newLines))
			for _, line := range newLines {
				rows = append(rows, models.JobPart{
					ID:       uuid.New(),
					JobID:    job.ID,
					PartID:   line.PartID,
					Quantity: line.Quantity,
					Price:    line.Price,
				})
			}
			if err := scoped.ReplaceLines(ctx, job.ID, rows); err != nil {
				return err
			}
			job.Parts = rows
		}

		job.Status = newStatus
		if input.WorkerID != nil {
			job.WorkerID = input.WorkerID
		}
		if input.JobTypeID != nil {
			job.JobTypeID = input.JobTypeID
		}
		if input.StartTime != nil {
			job.StartTime = input.StartTime
		}
		if input.EndTime != nil {
			job.EndTime = input.EndTime
		}
		if err := scoped.Save(ctx, job); err != nil {
			return err
		}

		if len(touched) > 0 {
			alerts, err = inventory.RecalculateBalances(ctx, tx, s.parts, workshopID, touched)
			if err != nil {
				return err
			}
		}
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, workshopID, "job.update", "job updated")
	s.dispatchAlerts(ctx, alerts)
	return toJobDTO(updated), nil
}

// planUpdate computes the ledger mutations an update needs, plus the distinct
// part ids the update touches.
//
// Three shapes exist. A pure status change moves stock along the transition
// edge: leaving awaiting_parts commits each reserved line, entering it
// releases consumption back into a reservation. A parts edit at an unchanged
// status applies only the per-part deltas between the old and new lists. When
// both change at once, the old list is reverted at the old status and the new
// list applied at the new one, which composes to the same end state.
func planUpdate(job *models.Job, prevStatus, newStatus enums.JobStatus, partsProvided bool, newLines []JobLineInput) ([]stockOp, []uuid.UUID) {
	var plan []stockOp
	touchedSet := make(map[uuid.UUID]struct{})
	touch := func(id uuid.UUID) { touchedSet[id] = struct{}{} }

	switch {
	case partsProvided && prevStatus == newStatus:
		previous := lineQuantities(job.Parts)
		requested := make(map[uuid.UUID]int, len(newLines))
		for _, line := range newLines {
			requested[line.PartID] = line.Quantity
		}
		// Each part gets at most one net op, so shrinking one line while
		// growing another never double-counts a part.
		for partID, prevQty := range previous {
			if delta := prevQty - requested[partID]; delta > 0 {
				plan = append(plan, stockOp{kind: opRevert, partID: partID, qty: delta, status: prevStatus})
				touch(partID)
			}
		}
		for partID, newQty := range requested {
			if delta := newQty - previous[partID]; delta > 0 {
				plan = append(plan, stockOp{kind: opApply, partID: partID, qty: delta, status: newStatus})
				touch(partID)
			}
		}

	case partsProvided:
		for partID, qty := range lineQuantities(job.Parts) {
			plan = append(plan, stockOp{kind: opRevert, partID: partID, qty: qty, status: prevStatus})
			touch(partID)
		}
		for _, line := range newLines {
			plan = append(plan, stockOp{kind: opApply, partID: line.PartID, qty: line.Quantity, status: newStatus})
			touch(line.PartID)
		}

	case prevStatus != newStatus && prevStatus.Reserving() != newStatus.Reserving():
		kind := opCommit
		if newStatus.Reserving() {
			kind = opRelease
		}
		for partID, qty := range lineQuantities(job.Parts) {
			plan = append(plan, stockOp{kind: kind, partID: partID, qty: qty})
			touch(partID)
		}
	}

	touched := make([]uuid.UUID, 0, len(touchedSet))
	for id := range touchedSet {
		touched = append(touched, id)
	}
	return plan, touched
}

func (s *service) DeleteJob(ctx context.Context, workshopID, jobID uuid.UUID) error {
	var alerts []inventory.LowStockAlert
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		alerts, txErr = s.deleteJobTx(ctx, tx, workshopID, jobID)
		return txErr
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, workshopID, "job.delete", "job deleted")
	s.dispatchAlerts(ctx, alerts)
	return nil
}

// DeleteOrderJobs removes every job attached to an order, reverting each
// job's stock effects. The whole order tears down atomically.
func (s *service) DeleteOrderJobs(ctx context.Context, workshopID, orderID uuid.UUID) error {
	var alerts []inventory.LowStockAlert
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).ListByOrder(ctx, workshopID, orderID)
		if err != nil {
			return err
		}
		for _, job := range rows {
			jobAlerts, err := s.deleteJobTx(ctx, tx, workshopID, job.ID)
			if err != nil {
				return err
			}
			alerts = append(alerts, jobAlerts...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, workshopID, "order.jobs.delete", "order jobs deleted")
	s.dispatchAlerts(ctx, alerts)
	return nil
}

func (s *service) deleteJobTx(ctx context.Context, tx *gorm.DB, workshopID, jobID uuid.UUID) ([]inventory.LowStockAlert, error) {
	scoped := s.repo.WithTx(tx)

	job, err := scoped.FindByID(ctx, workshopID, jobID)
	if err != nil {
		return nil, err
	}

	plan := make([]stockOp, 0, len(job.Parts))
	touched := make([]uuid.UUID, 0, len(job.Parts))
	for partID, qty := range lineQuantities(job.Parts) {
		plan = append(plan, stockOp{kind: opRevert, partID: partID, qty: qty, status: job.Status})
		touched = append(touched, partID)
	}
	if err := s.executePlan(ctx, tx, workshopID, plan); err != nil {
		return nil, err
	}
	if err := scoped.Delete(ctx, workshopID, jobID); err != nil {
		return nil, err
	}
	if len(touched) == 0 {
		return nil, nil
	}
	return inventory.RecalculateBalances(ctx, tx, s.parts, workshopID, touched)
}

func (s *service) dispatchAlerts(ctx context.Context, alerts []inventory.LowStockAlert) {
	if s.notifier == nil || len(alerts) == 0 {
		return
	}
	var failures error
	for _, alert := range alerts {
		if err := s.notifier.NotifyLowStock(ctx, alert); err != nil {
			failures = multierr.Append(failures, err)
		}
	}
	if failures != nil && s.logg != nil {
		s.logg.Error(ctx, "low stock alert delivery failed", failures)
	}
}
