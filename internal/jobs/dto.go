package jobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lukamarin/gearbox-backend/pkg/db/models"
	"github.com/lukamarin/gearbox-backend/pkg/enums"
	"github.com/lukamarin/gearbox-backend/pkg/pagination"
)

// JobLineInput is one requested part line on a job.
type JobLineInput struct {
	PartID   uuid.UUID
	Quantity int
	Price    decimal.Decimal
}

// CreateJobInput carries the fields needed to open a job.
type CreateJobInput struct {
	OrderID   *uuid.UUID
	WorkerID  *uuid.UUID
	JobTypeID *uuid.UUID
	Status    enums.JobStatus
	StartTime *time.Time
	EndTime   *time.Time
	Parts     []JobLineInput
}

// UpdateJobInput carries optional job updates; nil means unchanged. A non-nil
// Parts slice replaces the whole parts list, empty slice included.
type UpdateJobInput struct {
	WorkerID  *uuid.UUID
	JobTypeID *uuid.UUID
	Status    *enums.JobStatus
	StartTime *time.Time
	EndTime   *time.Time
	Parts     *[]JobLineInput
}

// JobLineDTO is the API-facing projection of one job part line.
type JobLineDTO struct {
	ID       uuid.UUID       `json:"id"`
	PartID   uuid.UUID       `json:"part_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// JobDTO is the API-facing projection of a job.
type JobDTO struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   *uuid.UUID      `json:"order_id,omitempty"`
	WorkerID  *uuid.UUID      `json:"worker_id,omitempty"`
	JobTypeID *uuid.UUID      `json:"job_type_id,omitempty"`
	Status    enums.JobStatus `json:"status"`
	StartTime *time.Time      `json:"start_time,omitempty"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Parts     []JobLineDTO    `json:"parts"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobPage is one page of jobs plus the cursor for the next one.
type JobPage struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

func toJobDTO(job *models.Job) *JobDTO {
	dto := &JobDTO{
		ID:        job.ID,
		OrderID:   job.OrderID,
		WorkerID:  job.WorkerID,
		JobTypeID: job.JobTypeID,
		Status:    job.Status,
		StartTime: job.StartTime,
		EndTime:   job.EndTime,
		Parts:     make([]JobLineDTO, 0, len(job.Parts)),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	for _, line := range job.Parts {
		dto.Parts = append(dto.Parts, JobLineDTO{
			ID:       line.ID,
			PartID:   line.PartID,
			Quantity: line.Quantity,
			Price:    line.Price,
		})
	}
	return dto
}

func toJobPage(rows []models.Job, limit int) *JobPage {
	normalized := pagination.NormalizeLimit(limit)
	page := &JobPage{Jobs: make([]JobDTO, 0, len(rows))}

	hasMore := len(rows) > normalized
	if hasMore {
		rows = rows[:normalized]
	}
	for i := range rows {
		page.Jobs = append(page.Jobs, *toJobDTO(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page
}
