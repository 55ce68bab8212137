package solution

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/gisops/solclone/models"
)

// webMapURLPath is the map viewer path appended to the destination server
// token; the map's own id is appended after it.
const webMapURLPath = "/home/webmap/viewer.html?webmap="

// webMapHandler clones web maps. A web map depends on the items backing its
// operational layers and tables.
type webMapHandler struct{}

// Dependencies unions the itemIds of operational layers and tables. A layer
// carrying a URL but no itemId is resolved with a lightweight service query;
// that lookup backfills the layer's itemId in place so templatization can
// rebuild the layer URL from it.
func (webMapHandler) Dependencies(ctx context.Context, tmpl *models.Template, p Portal) ([]string, error) {
	var deps []string

	for _, section := range []string{"operationalLayers", "tables"} {
		for i, layer := range gjson.GetBytes(tmpl.Data, section).Array() {
			id := layer.Get("itemId").String()
			if id == "" {
				url := layer.Get("url").String()
				if url == "" || IsTemplatized(url) {
					continue
				}
				resolved, err := resolveServiceItemID(ctx, p, url)
				if err != nil || resolved == "" {
					// Layers without a resolvable owning item are
					// not dependencies.
					continue
				}
				data, serr := sjson.SetBytes(tmpl.Data, fmt.Sprintf("%s.%d.itemId", section, i), resolved)
				if serr != nil {
					return nil, fmt.Errorf("failed to backfill layer itemId: %w", serr)
				}
				tmpl.Data = data
				id = resolved
			}
			deps = append(deps, BaseID(id))
		}
	}
	return deps, nil
}

// resolveServiceItemID asks the service endpoint which item owns it.
func resolveServiceItemID(ctx context.Context, p Portal, layerURL string) (string, error) {
	serviceURL := layerURL
	if idx := strings.LastIndex(serviceURL, "/"); idx > 0 {
		if isLayerIndex(serviceURL[idx+1:]) {
			serviceURL = serviceURL[:idx]
		}
	}
	raw, err := p.RawGet(ctx, serviceURL)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(raw, "serviceItemId").String(), nil
}

func isLayerIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Templatize rewrites every layer and table so its identity survives
// relocation: the itemId becomes a placeholder and the absolute URL is
// rebuilt as {{<itemId>.url}} plus the trailing feature-layer index. The
// original absolute URL is discarded.
func (webMapHandler) Templatize(tmpl *models.Template) error {
	tmpl.Item["url"] = PortalToken + webMapURLPath + Placeholder(tmpl.ItemID, "itemId")
	templatizeExtent(tmpl)

	for _, section := range []string{"operationalLayers", "tables"} {
		for i, layer := range gjson.GetBytes(tmpl.Data, section).Array() {
			id := layer.Get("itemId").String()
			url := layer.Get("url").String()
			if id == "" || IsTemplatized(id) {
				continue
			}

			data, err := sjson.SetBytes(tmpl.Data, fmt.Sprintf("%s.%d.itemId", section, i), Placeholder(id, "itemId"))
			if err != nil {
				return fmt.Errorf("failed to templatize layer itemId: %w", err)
			}
			tmpl.Data = data

			if url != "" && !IsTemplatized(url) {
				index := ""
				if idx := strings.LastIndex(url, "/"); idx >= 0 && isLayerIndex(url[idx+1:]) {
					index = url[idx:]
				}
				data, err = sjson.SetBytes(tmpl.Data, fmt.Sprintf("%s.%d.url", section, i), Placeholder(id, "url")+index)
				if err != nil {
					return fmt.Errorf("failed to templatize layer url: %w", err)
				}
				tmpl.Data = data
			}
		}
	}
	return nil
}

func (webMapHandler) Deploy(ctx context.Context, tmpl *models.Template, run *Run) (models.DeployedItem, error) {
	run.Report(tmpl, models.StatusCreating, "creating web map")

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
