package solution

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/gisops/solclone/models"
)

// dashboardURLPath is the operations dashboard viewer path appended to the
// destination server token.
const dashboardURLPath = "/apps/opsdashboard/index.html#/"

// dashboardHandler clones operations dashboards. A dashboard depends on the
// web maps referenced by its map widgets.
type dashboardHandler struct{}

func (dashboardHandler) Dependencies(ctx context.Context, tmpl *models.Template, p Portal) ([]string, error) {
	var deps []string
	for _, widget := range gjson.GetBytes(tmpl.Data, "widgets").Array() {
		if widget.Get("type").String() != "mapWidget" {
			continue
		}
		if id := widget.Get("itemId").String(); id != "" {
			deps = append(deps, BaseID(id))
		}
	}
	return deps, nil
}

func (dashboardHandler) Templatize(tmpl *models.Template) error {
	tmpl.Item["url"] = PortalToken + dashboardURLPath + Placeholder(tmpl.ItemID, "itemId")
	templatizeExtent(tmpl)

	for i, widget := range gjson.GetBytes(tmpl.Data, "widgets").Array() {
		if widget.Get("type").String() != "mapWidget" {
			continue
		}
		id := widget.Get("itemId").String()
		if id == "" || IsTemplatized(id) {
			continue
		}
		data, err := sjson.SetBytes(tmpl.Data, fmt.Sprintf("widgets.%d.itemId", i), Placeholder(id, "itemId"))
		if err != nil {
			return fmt.Errorf("failed to templatize map widget %d: %w", i, err)
		}
		tmpl.Data = data
	}
	return nil
}

func (dashboardHandler) Deploy(ctx context.Context, tmpl *models.Template, run *Run) (models.DeployedItem, error) {
	run.Report(tmpl, models.StatusCreating, "creating dashboard")

	newID, item, err := createInterpolatedItem(ctx, tmpl, run)
	if err != nil {
		return models.DeployedItem{}, err
	}

	entry := models.ValueEntry{ID: newID, Title: item.Str("title")}
	run.Values.Set(tmpl.ItemID, entry)

	url, err := finalizeItemURL(ctx, tmpl, run, newID)
	if err != nil {
		return models.DeployedItem{}, err
	}
	entry.URL = url
	run.Values.Set(tmpl.ItemID, entry)

	return deployedFrom(tmpl, entry), nil
}
