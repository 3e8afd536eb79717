package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lukamarin/gearbox-backend/api/responses"
	"github.com/lukamarin/gearbox-backend/api/validators"
	"github.com/lukamarin/gearbox-backend/internal/jobs"
	"github.com/lukamarin/gearbox-backend/pkg/enums"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
)

type jobLineRequest struct {
	PartID   uuid.UUID        `json:"part_id" validate:"required"`
	Quantity int              `json:"quantity" validate:"gt=0"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

type createJobRequest struct {
	OrderID   *uuid.UUID       `json:"order_id,omitempty"`
	WorkerID  *uuid.UUID       `json:"worker_id,omitempty"`
	JobTypeID *uuid.UUID       `json:"job_type_id,omitempty"`
	Status    string           `json:"status,omitempty"`
	StartTime *time.Time       `json:"start_time,omitempty"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Parts     []jobLineRequest `json:"parts,omitempty" validate:"dive"`
}

type updateJobRequest struct {
	WorkerID  *uuid.UUID        `json:"worker_id,omitempty"`
	JobTypeID *uuid.UUID        `json:"job_type_id,omitempty"`
	Status    *string           `json:"status,omitempty"`
	StartTime *time.Time        `json:"start_time,omitempty"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	Parts     *[]jobLineRequest `json:"parts,omitempty" validate:"omitempty,dive"`
}

func toLineInputs(lines []jobLineRequest) []jobs.JobLineInput {
	inputs := make([]jobs.JobLineInput, 0, len(lines))
	for _, line := range lines {
		input := jobs.JobLineInput{PartID: line.PartID, Quantity: line.Quantity}
		if line.Price != nil {
			input.Price = *line.Price
		}
		inputs = append(inputs, input)
	}
	return inputs
}

// CreateJob opens a job; part lines reserve or consume stock depending on the
// requested status.
func CreateJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createJobRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := jobs.CreateJobInput{
			OrderID:   req.OrderID,
			WorkerID:  req.WorkerID,
			JobTypeID: req.JobTypeID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Parts:     toLineInputs(req.Parts),
		}
		if req.Status != "" {
			status, err := enums.ParseJobStatus(req.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = status
		}

		job, err := svc.CreateJob(r.Context(), workshopID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

// GetJob returns one job with its part lines.
func GetJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		jobID, err := pathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.GetJob(r.Context(), workshopID, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// ListJobs pages the workshop's jobs.
func ListJobs(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListJobs(r.Context(), workshopID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// UpdateJob edits a job's fields, status, or parts list. Status and parts
// changes move stock atomically.
func UpdateJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		jobID, err := pathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateJobRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := jobs.UpdateJobInput{
			WorkerID:  req.WorkerID,
			JobTypeID: req.JobTypeID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		}
		if req.Status != nil {
			status, err := enums.ParseJobStatus(*req.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}
		if req.Parts != nil {
			lines := toLineInputs(*req.Parts)
			input.Parts = &lines
		}

		job, err := svc.UpdateJob(r.Context(), workshopID, jobID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// DeleteJob removes a job, reverting its stock effects.
func DeleteJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		jobID, err := pathUUID(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteJob(r.Context(), workshopID, jobID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// DeleteOrderJobs removes every job attached to an order in one transaction.
func DeleteOrderJobs(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workshopID, err := workshopFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteOrderJobs(r.Context(), workshopID, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
