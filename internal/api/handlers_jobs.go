package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gisops/solclone/models"
)

// CloneRequest represents a clone job submission.
type CloneRequest struct {
	// IDs are the root item or group ids to clone.
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`

	// SolutionName labels the created destination folder.
	SolutionName string `json:"solutionName"`

	// Folder is an existing destination folder id. Optional.
	Folder string `json:"folder"`
}

// Runner executes one clone run, reporting checkpoints through progress.
// The production runner drives the full pipeline against live portals;
// tests substitute their own.
type Runner func(ctx context.Context, req CloneRequest, progress models.ProgressFunc) ([]models.DeployedItem, error)

// createJob submits a new clone job and returns it immediately. The clone
// itself runs in the background; poll the job for progress and results.
func (s *Server) createJob(c echo.Context) error {
	var req CloneRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	if err := c.Validate(&req); err != nil {
		return BadRequestError("Validation failed", err.Error())
	}

	job := s.store.Create(req.SolutionName, req.IDs)

	go s.runJob(job.ID, req)

	created, _ := s.store.Get(job.ID)
	return c.JSON(http.StatusAccepted, created)
}

// runJob drives one clone run to completion, recording its progress trail.
func (s *Server) runJob(jobID string, req CloneRequest) {
	s.store.SetStatus(jobID, models.JobRunning)

	results, err := s.runner(context.Background(), req, func(event models.ProgressEvent) {
		s.store.AppendEvent(jobID, event)
	})
	if err != nil {
		s.debugLog("job %s failed: %v", jobID, err)
		s.store.Fail(jobID, err.Error())
		return
	}

	s.store.Complete(jobID, results)
}

// getJob returns the state of one clone job.
func (s *Server) getJob(c echo.Context) error {
	job, ok := s.store.Get(c.Param("id"))
	if !ok {
		return NotFoundError("job", c.Param("id"))
	}
	return c.JSON(http.StatusOK, job)
}

// listJobs returns all known clone jobs, newest first.
func (s *Server) listJobs(c echo.Context) error {
	jobs := s.store.List()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"total": len(jobs),
	})
}
