package solution

import (
	"context"
	"sync"

	"github.com/gisops/solclone/models"
)

// Handler is the per-type triple of operations the pipeline dispatches to.
// Handlers are stateless singletons selected by the template's Kind.
type Handler interface {
	// Dependencies returns the source ids that must deploy before the
	// template. Most handlers derive them purely from the template's
	// content; Group enumerates its members over the network and WebMap
	// may resolve a layer's owning item id with a service query.
	Dependencies(ctx context.Context, tmpl *models.Template, p Portal) ([]string, error)

	// Templatize replaces source-specific ids and URLs with placeholder
	// tokens in place. It is idempotent.
	Templatize(tmpl *models.Template) error

	// Deploy recreates the item in the destination organization,
	// interpolating placeholders from the run's value map, and returns
	// the created item's identity. Deploy records the template's own
	// value map entry before returning.
	Deploy(ctx context.Context, tmpl *models.Template, run *Run) (models.DeployedItem, error)
}

// HandlerFor returns the handler owning a template kind.
func HandlerFor(kind models.ItemKind) Handler {
	switch kind {
	case models.KindDashboard:
		return dashboardHandler{}
	case models.KindFeatureService:
		return featureServiceHandler{}
	case models.KindGroup:
		return groupHandler{}
	case models.KindWebMap:
		return webMapHandler{}
	case models.KindWebMappingApplication:
		return webAppHandler{}
	default:
		return genericHandler{}
	}
}

// Run carries the shared state of one deployment run: the destination
// portal, the folder every item is created in, and the growing value map.
type Run struct {
	Portal   Portal
	Values   *ValueStore
	FolderID string

	progress models.ProgressFunc
}

// Report emits a progress checkpoint for a template. Reporting is pure
// observability and never affects ordering or error semantics.
func (r *Run) Report(tmpl *models.Template, status models.ProgressStatus, msg string) {
	if r.progress == nil {
		return
	}
	r.progress(newProgressEvent(tmpl, status, msg))
}

// ValueStore is the concurrency-safe value map of one deployment run.
// Entries are append-only; readers take a snapshot before interpolating.
type ValueStore struct {
	mu      sync.RWMutex
	entries models.ValueMap
}

// NewValueStore returns an empty store.
func NewValueStore() *ValueStore {
	return &ValueStore{entries: make(models.ValueMap)}
}

// Set records the destination identity for a source id.
func (s *ValueStore) Set(id string, entry models.ValueEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[BaseID(id)] = entry
}

// Get returns the entry for a source id, accepting templatized id forms.
func (s *ValueStore) Get(id string) (models.ValueEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[BaseID(id)]
	return entry, ok
}

// Snapshot returns a copy of the current value map.
func (s *ValueStore) Snapshot() models.ValueMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(models.ValueMap, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// templatizeExtent swaps a concrete item extent for the shared org-level
// extent placeholder.
func templatizeExtent(tmpl *models.Template) {
	if _, ok := tmpl.Item["extent"]; ok {
		tmpl.Item["extent"] = ExtentToken
	}
}
