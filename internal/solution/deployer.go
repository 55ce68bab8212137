package solution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gisops/solclone/models"
)

// DeployOptions configures one deployment run.
type DeployOptions struct {
	// SolutionName names the destination folder when one is created.
	SolutionName string

	// FolderID is an existing destination folder. When empty a new
	// folder is created before any item.
	FolderID string

	// PortalURL seeds the destination server token.
	PortalURL string

	// Extent seeds the shared org-level extent placeholder.
	Extent any

	// Progress receives deployment checkpoints. Optional.
	Progress models.ProgressFunc
}

// Deployer replays a template collection against a destination organization.
//
// Every template's deploy launches as its own task contingent on its
// dependencies' completion handles, so independent branches run
// concurrently while the ordering guarantee holds: no item's deploy begins
// before all of its dependencies' deploys have completed and recorded their
// value map entries.
type Deployer struct {
	Portal Portal
}

// NewDeployer creates a deployer over a destination-organization portal.
func NewDeployer(p Portal) *Deployer {
	return &Deployer{Portal: p}
}

// Deploy clones the collection into the destination organization and
// returns the created items in completion order. The topological sort runs
// first so a cyclic collection fails before any network call. Any single
// item failure fails the run; already-created items are not rolled back.
func (d *Deployer) Deploy(ctx context.Context, collection models.TemplateCollection, opts DeployOptions) ([]models.DeployedItem, error) {
	order, err := SortTemplates(collection)
	if err != nil {
		return nil, err
	}

	folderID := opts.FolderID
	if folderID == "" {
		name := opts.SolutionName
		if name == "" {
			name = "Solution"
		}
		title := fmt.Sprintf("%s (%s)", name, time.Now().Format("2006-01-02 15:04:05"))
		folderID, err = d.Portal.CreateFolder(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("failed to create destination folder: %w", err)
		}
	}

	run := &Run{
		Portal:   d.Portal,
		Values:   NewValueStore(),
		FolderID: folderID,
		progress: opts.Progress,
	}
	run.Values.Set("portal", models.ValueEntry{URL: opts.PortalURL})
	if opts.Extent != nil {
		run.Values.Set("initiative", models.ValueEntry{Extent: opts.Extent})
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(map[string]chan struct{}, len(order))
	for _, id := range order {
		done[id] = make(chan struct{})
	}

	var (
		mu       sync.Mutex
		results  []models.DeployedItem
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for _, id := range order {
		tmpl := collection[id]
		run.Report(tmpl, models.StatusQueued, "")

		wg.Add(1)
		go func(id string, tmpl *models.Template) {
			defer wg.Done()

			for _, dep := range tmpl.Dependencies {
				select {
				case <-done[BaseID(dep)]:
				case <-runCtx.Done():
					return
				}
			}

			run.Report(tmpl, models.StatusStarting, "")
			item, err := HandlerFor(tmpl.Kind).Deploy(runCtx, tmpl, run)
			if err != nil {
				run.Report(tmpl, models.StatusFailed, err.Error())
				fail(&DeployStepError{Key: tmpl.Key, ItemID: tmpl.ItemID, Err: err})
				return
			}

			run.Report(tmpl, models.StatusDone, "")
			mu.Lock()
			results = append(results, item)
			mu.Unlock()
			close(done[id])
		}(id, tmpl)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func newProgressEvent(tmpl *models.Template, status models.ProgressStatus, msg string) models.ProgressEvent {
	return models.ProgressEvent{
		Key:       tmpl.Key,
		ItemID:    tmpl.ItemID,
		Type:      tmpl.Type,
		Status:    status,
		Message:   msg,
		Timestamp: time.Now(),
	}
}
