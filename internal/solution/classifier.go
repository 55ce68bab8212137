package solution

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gisops/solclone/models"
)

// Classifier turns a raw item id into a resolved, templatized Template by
// fetching the item's sections from the source organization and dispatching
// to the type's handler.
type Classifier struct {
	portal Portal
}

// NewClassifier creates a classifier over a source-organization portal.
func NewClassifier(p Portal) *Classifier {
	return &Classifier{portal: p}
}

// discoveryEnricher is implemented by handlers that need extra discovery
// work before templatization. Feature services hydrate their full layer and
// table definitions this way.
type discoveryEnricher interface {
	enrich(ctx context.Context, tmpl *models.Template, p Portal) error
}

// Classify fetches an id as an item, falling back to a group when the item
// fetch fails, and returns the fully templatized template with its
// dependencies extracted. Both fetch paths failing is the only hard error;
// missing data or resource sections are normal.
func (c *Classifier) Classify(ctx context.Context, id string) (*models.Template, error) {
	id = BaseID(id)
	if id == "" {
		return nil, &ItemUnavailableError{}
	}

	tmpl, err := c.fetchAsItem(ctx, id)
	if err != nil {
		group, gerr := c.portal.FetchGroup(ctx, id)
		if gerr != nil {
			return nil, &ItemUnavailableError{ID: id}
		}
		tmpl = &models.Template{
			ItemID: id,
			Type:   "Group",
			Kind:   models.KindGroup,
			Key:    models.ShortKey(),
			Item:   RemoveUndesirableItemProperties(group),
		}
	}

	handler := HandlerFor(tmpl.Kind)

	if enricher, ok := handler.(discoveryEnricher); ok {
		if err := enricher.enrich(ctx, tmpl, c.portal); err != nil {
			return nil, fmt.Errorf("failed to enrich %s template %s: %w", tmpl.Type, id, err)
		}
	}

	// Group membership enumeration must complete before the template is
	// considered resolved, so dependency extraction happens here and not
	// lazily.
	deps, err := handler.Dependencies(ctx, tmpl, c.portal)
	if err != nil {
		return nil, err
	}
	tmpl.Dependencies = RemoveDuplicates(deps)

	if err := handler.Templatize(tmpl); err != nil {
		return nil, fmt.Errorf("failed to templatize %s template %s: %w", tmpl.Type, id, err)
	}

	return tmpl, nil
}

// fetchAsItem fetches the base, data and resource sections concurrently.
// Data and resource failures are independent of each other and of the item
// fetch: both are fetched with a catch-to-null policy.
func (c *Classifier) fetchAsItem(ctx context.Context, id string) (*models.Template, error) {
	var (
		item      models.JSONMap
		itemErr   error
		data      json.RawMessage
		resources *models.ResourceList
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		item, itemErr = c.portal.FetchItem(ctx, id)
	}()

	dataDone := make(chan struct{})
	go func() {
		defer close(dataDone)
		if d, err := c.portal.FetchItemData(ctx, id); err == nil {
			data = d
		}
	}()

	resDone := make(chan struct{})
	go func() {
		defer close(resDone)
		if r, err := c.portal.FetchItemResources(ctx, id); err == nil {
			resources = r
		}
	}()

	<-done
	<-dataDone
	<-resDone

	if itemErr != nil {
		return nil, itemErr
	}

	tmpl := &models.Template{
		ItemID: id,
		Type:   item.Str("type"),
		Kind:   models.KindForType(item.Str("type")),
		Key:    models.ShortKey(),
		Item:   RemoveUndesirableItemProperties(item),
		Data:   data,
	}
	if resources != nil {
		tmpl.Resources = resources.Resources
	}
	return tmpl, nil
}
