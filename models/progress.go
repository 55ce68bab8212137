package models

import "time"

// ProgressStatus is a deployment checkpoint for one template.
type ProgressStatus string

const (
	StatusQueued   ProgressStatus = "queued"
	StatusStarting ProgressStatus = "starting"
	StatusCreating ProgressStatus = "creating"
	StatusUpdating ProgressStatus = "updating"
	StatusDone     ProgressStatus = "done"
	StatusFailed   ProgressStatus = "failed"
	StatusWarning  ProgressStatus = "warning"
)

// ProgressEvent is one observability checkpoint emitted during discovery or
// deployment. Events are keyed by the template's process-local key and never
// affect ordering or error semantics.
type ProgressEvent struct {
	Key       string         `json:"key"`
	ItemID    string         `json:"itemId"`
	Type      string         `json:"type"`
	Status    ProgressStatus `json:"status"`
	Message   string         `json:"message,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ProgressFunc receives progress events. A nil ProgressFunc disables
// reporting.
type ProgressFunc func(ProgressEvent)
