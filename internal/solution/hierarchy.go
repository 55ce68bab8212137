package solution

import (
	"context"
	"sync"

	"github.com/gisops/solclone/models"
)

// BuildHierarchy recursively discovers the dependency graph reachable from
// the root ids, accumulating templatized templates into collection. The
// collection is keyed by base id and doubles as the memoization table:
// repeated and diamond dependencies collapse to one fetch, and a collection
// reused across calls makes already-resolved branches free.
//
// Discovery is fail-fast: any branch failing fails the whole call and no
// partial hierarchy is kept (in-flight markers are removed before
// returning). Sibling branches are fetched concurrently.
func BuildHierarchy(ctx context.Context, p Portal, rootIDs []string, collection models.TemplateCollection) error {
	if len(rootIDs) == 0 {
		return &ItemUnavailableError{}
	}

	b := &hierarchyBuilder{
		classifier: NewClassifier(p),
		collection: collection,
	}

	if err := b.visitAll(ctx, rootIDs); err != nil {
		b.removeInFlight()
		return err
	}
	return nil
}

type hierarchyBuilder struct {
	classifier *Classifier
	mu         sync.Mutex
	collection models.TemplateCollection
}

// visit resolves one id and recurses into its dependencies. The nil entry
// pushed before classification marks the id as in flight, so concurrent and
// cyclic lookups short-circuit instead of re-fetching.
func (b *hierarchyBuilder) visit(ctx context.Context, id string) error {
	base := BaseID(id)

	b.mu.Lock()
	if _, seen := b.collection[base]; seen {
		b.mu.Unlock()
		return nil
	}
	b.collection[base] = nil
	b.mu.Unlock()

	tmpl, err := b.classifier.Classify(ctx, base)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.collection[base] = tmpl
	b.mu.Unlock()

	return b.visitAll(ctx, tmpl.Dependencies)
}

// visitAll resolves ids concurrently and settles once every branch has;
// the first failure wins.
func (b *hierarchyBuilder) visitAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := b.visit(ctx, id); err != nil {
				errCh <- err
			}
		}(id)
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}

// removeInFlight drops unresolved markers so a failed call leaves the
// caller's collection reusable.
func (b *hierarchyBuilder) removeInFlight() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, tmpl := range b.collection {
		if tmpl == nil {
			delete(b.collection, id)
		}
	}
}
