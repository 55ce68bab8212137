package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gisops/solclone/internal/config"
	"github.com/gisops/solclone/models"
)

func testServerConfig() *config.Config {
	return &config.Config{
		Source:      config.PortalConfig{URL: "https://src.maps.arcgis.com", RateLimit: 20},
		Destination: config.PortalConfig{URL: "https://dst.maps.arcgis.com", RateLimit: 20},
		Server:      config.ServerConfig{Host: "localhost", Port: 8095},
		Security: config.SecurityConfig{
			JWTSecret:     "test-secret",
			JWTExpiration: time.Hour,
		},
	}
}

// stubRunner reports one event per requested id and succeeds.
func stubRunner(ctx context.Context, req CloneRequest, progress models.ProgressFunc) ([]models.DeployedItem, error) {
	results := make([]models.DeployedItem, 0, len(req.IDs))
	for _, id := range req.IDs {
		if progress != nil {
			progress(models.ProgressEvent{ItemID: id, Status: models.StatusDone})
		}
		results = append(results, models.DeployedItem{SourceID: id, ID: "new-" + id})
	}
	return results, nil
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var fields map[string]json.RawMessage
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
			t.Fatalf("response is not a JSON object: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, fields
}

// waitForJob polls the store until the job leaves the running states.
func waitForJob(t *testing.T, srv *Server, id string) models.CloneJob {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := srv.store.Get(id)
		if ok && job.Status != models.JobPending && job.Status != models.JobRunning {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", id)
	return models.CloneJob{}
}

func TestHealthCheck(t *testing.T) {
	srv := New(testServerConfig(), stubRunner)

	rec, fields := doJSON(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status string
	json.Unmarshal(fields["status"], &status)
	if status != "healthy" {
		t.Errorf("status field = %q, want healthy", status)
	}
}

func TestCreateJobRunsToCompletion(t *testing.T) {
	srv := New(testServerConfig(), stubRunner)

	rec, fields := doJSON(t, srv, http.MethodPost, "/api/v1/jobs",
		`{"ids":["abc123","def456"],"solutionName":"Wildfire Response"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202\n%s", rec.Code, rec.Body.String())
	}

	var jobID string
	json.Unmarshal(fields["id"], &jobID)
	if jobID == "" {
		t.Fatal("no job id in response")
	}

	job := waitForJob(t, srv, jobID)
	if job.Status != models.JobCompleted {
		t.Fatalf("job status = %q, want completed (%s)", job.Status, job.ErrorMessage)
	}
	if len(job.Results) != 2 {
		t.Errorf("results = %v, want 2 items", job.Results)
	}
	if len(job.Events) != 2 {
		t.Errorf("events = %v, want 2 checkpoints", job.Events)
	}
}

func TestCreateJobValidation(t *testing.T) {
	srv := New(testServerConfig(), stubRunner)

	tests := []struct {
		name string
		body string
	}{
		{"no ids", `{"solutionName":"Empty"}`},
		{"empty ids", `{"ids":[]}`},
		{"blank id", `{"ids":[""]}`},
		{"not json", `ids=abc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/jobs", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400\n%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateJobFailureRecorded(t *testing.T) {
	failing := func(ctx context.Context, req CloneRequest, progress models.ProgressFunc) ([]models.DeployedItem, error) {
		return nil, errors.New("item abc123 is not available")
	}
	srv := New(testServerConfig(), failing)

	_, fields := doJSON(t, srv, http.MethodPost, "/api/v1/jobs", `{"ids":["abc123"]}`)
	var jobID string
	json.Unmarshal(fields["id"], &jobID)

	job := waitForJob(t, srv, jobID)
	if job.Status != models.JobFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}
	if !strings.Contains(job.ErrorMessage, "abc123") {
		t.Errorf("error message = %q", job.ErrorMessage)
	}
}

func TestGetJobNotFound(t *testing.T) {
	srv := New(testServerConfig(), stubRunner)

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/jobs/job:missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetJobInvalidID(t *testing.T) {
	srv := New(testServerConfig(), stubRunner)

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/jobs/has%20space", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListJobs(t *testing.T) {
	srv := New(testServerConfig(), stubRunner)

	_, fields := doJSON(t, srv, http.MethodPost, "/api/v1/jobs", `{"ids":["abc123"]}`)
	var jobID string
	json.Unmarshal(fields["id"], &jobID)
	waitForJob(t, srv, jobID)

	rec, listFields := doJSON(t, srv, http.MethodGet, "/api/v1/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var total int
	json.Unmarshal(listFields["total"], &total)
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestJobsRequireAuthWhenEnabled(t *testing.T) {
	cfg := testServerConfig()
	cfg.Security.AuthEnabled = true
	srv := New(cfg, stubRunner)

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/jobs", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without a token", rec.Code)
	}
}

func TestRejectsWrongContentType(t *testing.T) {
	srv := New(testServerConfig(), stubRunner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader("ids=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
