package api

import (
	"sort"
	"sync"
	"time"

	"github.com/gisops/solclone/models"
)

// JobStore holds clone jobs in memory for the lifetime of the server.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.CloneJob
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*models.CloneJob)}
}

// Create registers a new pending job and returns it.
func (s *JobStore) Create(name string, rootIDs []string) *models.CloneJob {
	job := &models.CloneJob{
		ID:        models.GenerateID("job"),
		Name:      name,
		RootIDs:   rootIDs,
		Status:    models.JobPending,
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

// Get returns a copy of the job with the given id.
func (s *JobStore) Get(id string) (models.CloneJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.CloneJob{}, false
	}
	return *job, true
}

// List returns copies of all jobs, newest first.
func (s *JobStore) List() []models.CloneJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CloneJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// SetStatus transitions a job to a new lifecycle state.
func (s *JobStore) SetStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
	}
}

// AppendEvent records a progress checkpoint on a job.
func (s *JobStore) AppendEvent(id string, event models.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Events = append(job.Events, event)
	}
}

// Complete marks a job as finished with its created items.
func (s *JobStore) Complete(id string, results []models.DeployedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.Status = models.JobCompleted
		job.Results = results
		job.CompletedAt = &now
	}
}

// Fail marks a job as failed with its first error.
func (s *JobStore) Fail(id string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.Status = models.JobFailed
		job.ErrorMessage = errMsg
		job.CompletedAt = &now
	}
}
