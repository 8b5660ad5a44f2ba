package entity

import "fmt"

type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// JobStatusNone is the zero value: a job with an empty status history.
const JobStatusNone JobStatus = ""

func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return JobStatus(s), nil
	}
	return JobStatusNone, fmt.Errorf("unknown job status %q", s)
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether a job may move from current to next.
// Terminal states are absorbing; everything not listed is rejected.
func CanTransition(current, next JobStatus) bool {
	switch current {
	case JobStatusNone:
		return next == JobStatusQueued
	case JobStatusQueued:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}
