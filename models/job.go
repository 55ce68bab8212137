package models

import "time"

// Job lifecycle states.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// CloneJob is the state of one asynchronous clone run as exposed by the job
// API. Jobs live in memory for the lifetime of the server process.
type CloneJob struct {
	// ID is the job identifier.
	ID string `json:"id"`

	// Name is the solution name the job was started with.
	Name string `json:"name"`

	// RootIDs are the requested root item ids.
	RootIDs []string `json:"rootIds"`

	// Status is one of pending, running, completed, failed.
	Status string `json:"status"`

	// Events is the recorded progress trail, oldest first.
	Events []ProgressEvent `json:"events"`

	// Results lists the created items once the job completes.
	Results []DeployedItem `json:"results,omitempty"`

	// ErrorMessage describes the first failure for failed jobs.
	ErrorMessage string `json:"errorMessage,omitempty"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
