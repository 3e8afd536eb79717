package enums

import "fmt"

// JobStatus maps to the job_status enum in Postgres.
type JobStatus string

const (
	JobStatusPending       JobStatus = "pending"
	JobStatusAwaitingParts JobStatus = "awaiting_parts"
	JobStatusInProgress    JobStatus = "in_progress"
	JobStatusDone          JobStatus = "done"
)

var validJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusAwaitingParts,
	JobStatusInProgress,
	JobStatusDone,
}

// IsValid checks whether the given status matches the canonical enum.
func (s JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Reserving reports whether part lines on a job in this status hold stock as a
// pure reservation. Every other status consumes physical quantity.
func (s JobStatus) Reserving() bool {
	return s == JobStatusAwaitingParts
}

// ParseJobStatus converts raw strings into JobStatus.
func ParseJobStatus(value string) (JobStatus, error) {
	for _, candidate := range validJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}
