package solution

import (
	"context"
	"fmt"

	"github.com/gisops/solclone/models"
)

// genericHandler is the fallback for item types the registry does not
// recognize. It contributes no dependencies and clones the item as-is.
type genericHandler struct{}

func (genericHandler) Dependencies(ctx context.Context, tmpl *models.Template, p Portal) ([]string, error) {
	return nil, nil
}

func (genericHandler) Templatize(tmpl *models.Template) error {
	templatizeExtent(tmpl)
	return nil
}

func (genericHandler) Deploy(ctx context.Context, tmpl *models.Template, run *Run) (models.DeployedItem, error) {
	run.Report(tmpl, models.StatusCreating, "creating item")

	newID, item, err := createInterpolatedItem(ctx, tmpl, run)
	if err != nil {
		return models.DeployedItem{}, err
	}

	entry := models.ValueEntry{ID: newID, Title: item.Str("title"), URL: item.Str("url")}
	run.Values.Set(tmpl.ItemID, entry)

	return deployedFrom(tmpl, entry), nil
}

// createInterpolatedItem interpolates the template's item and data sections
// against the current value map and creates the destination item.
func createInterpolatedItem(ctx context.Context, tmpl *models.Template, run *Run) (string, models.JSONMap, error) {
	vm := run.Values.Snapshot()

	item := InterpolateMap(tmpl.Item, vm)
	data, err := InterpolateBytes(tmpl.Data, vm)
	if err != nil {
		return "", nil, fmt.Errorf("failed to interpolate data of %s: %w", tmpl.ItemID, err)
	}

	newID, err := run.Portal.CreateItem(ctx, item, data, run.FolderID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create %s item: %w", tmpl.Type, err)
	}
	return newID, item, nil
}

// finalizeItemURL resolves the template's URL now that the item's own id is
// known, writes it back to the created item, and returns the concrete URL.
// Types whose URL embeds their own id cannot know it at creation time, so
// creation happens with the placeholder still in place and the URL is
// patched in a second call.
func finalizeItemURL(ctx context.Context, tmpl *models.Template, run *Run, newID string) (string, error) {
	templatized := tmpl.Item.Str("url")
	if templatized == "" {
		return "", nil
	}

	resolved, _ := Interpolate(templatized, run.Values.Snapshot())
	url, _ := resolved.(string)
	if url == "" || url == templatized && IsTemplatized(url) {
		return "", nil
	}

	run.Report(tmpl, models.StatusUpdating, "updating URL")
	if err := run.Portal.UpdateItem(ctx, newID, models.JSONMap{"url": url}); err != nil {
		return "", fmt.Errorf("failed to update URL of %s: %w", newID, err)
	}
	return url, nil
}

// deployedFrom builds the per-item result from a value map entry.
func deployedFrom(tmpl *models.Template, entry models.ValueEntry) models.DeployedItem {
	return models.DeployedItem{
		SourceID: tmpl.ItemID,
		ID:       entry.ID,
		URL:      entry.URL,
		Title:    entry.Title,
		Type:     tmpl.Type,
	}
}
