package solution

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gisops/solclone/models"
)

// defaultServiceName is used when neither the service description nor any
// layer carries a name.
const defaultServiceName = "Feature Service"

// shapeGeometryField is the admin descriptor the destination endpoint
// requires on every added layer.
var shapeGeometryField = models.JSONMap{
	"name": "Shape",
	"srid": 102100,
}

// featureServiceHandler clones hosted feature services. Layers and tables
// are intrinsic to the service rather than separate portal items, so the
// item graph sees no dependencies; the full definitions travel in the
// template's properties instead.
type featureServiceHandler struct{}

func (featureServiceHandler) Dependencies(ctx context.Context, tmpl *models.Template, p Portal) ([]string, error) {
	return nil, nil
}

// enrich is the discovery-time flesh-out: it hydrates the template with the
// service description and the full definition of every layer and table, so
// the template can be redeployed faithfully without touching the source
// service again.
func (featureServiceHandler) enrich(ctx context.Context, tmpl *models.Template, p Portal) error {
	serviceURL := tmpl.Item.Str("url")
	if serviceURL == "" {
		return fmt.Errorf("feature service %s has no url", tmpl.ItemID)
	}

	raw, err := p.RawGet(ctx, serviceURL)
	if err != nil {
		return fmt.Errorf("failed to describe service: %w", err)
	}

	var service models.JSONMap
	if err := json.Unmarshal(raw, &service); err != nil {
		return fmt.Errorf("failed to decode service description: %w", err)
	}

	layers, err := fetchDefinitions(ctx, p, serviceURL, service, "layers")
	if err != nil {
		return err
	}
	tables, err := fetchDefinitions(ctx, p, serviceURL, service, "tables")
	if err != nil {
		return err
	}

	if service.Str("name") == "" {
		service["name"] = backfillServiceName(layers, tables)
	}

	tmpl.Properties = models.JSONMap{
		"service": service,
		"layers":  layers,
		"tables":  tables,
	}
	return nil
}

// fetchDefinitions fans out one request per layer/table id and returns the
// full definitions with source-only fields removed.
func fetchDefinitions(ctx context.Context, p Portal, serviceURL string, service models.JSONMap, section string) ([]models.JSONMap, error) {
	summaries, _ := service[section].([]any)
	if len(summaries) == 0 {
		return nil, nil
	}

	defs := make([]models.JSONMap, len(summaries))
	errs := make([]error, len(summaries))
	var wg sync.WaitGroup

	for i, summary := range summaries {
		entry, _ := summary.(map[string]any)
		id := jsonNumber(entry["id"])

		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			raw, err := p.RawGet(ctx, fmt.Sprintf("%s/%s", strings.TrimRight(serviceURL, "/"), id))
			if err != nil {
				errs[i] = fmt.Errorf("failed to fetch %s definition %s: %w", section, id, err)
				return
			}
			var def models.JSONMap
			if err := json.Unmarshal(raw, &def); err != nil {
				errs[i] = fmt.Errorf("failed to decode %s definition %s: %w", section, id, err)
				return
			}
			// editFieldsInfo references fields that may not exist after
			// the clone.
			delete(def, "editFieldsInfo")
			defs[i] = def
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// backfillServiceName picks the first non-empty layer or table name.
func backfillServiceName(layers, tables []models.JSONMap) string {
	for _, def := range append(append([]models.JSONMap{}, layers...), tables...) {
		if name := def.Str("name"); name != "" {
			return name
		}
	}
	return defaultServiceName
}

// Templatize swaps the service URL for the template's own url placeholder
// and generalizes every definition's serviceItemId.
func (featureServiceHandler) Templatize(tmpl *models.Template) error {
	if url := tmpl.Item.Str("url"); url != "" && !IsTemplatized(url) {
		tmpl.Item["url"] = Placeholder(tmpl.ItemID, "url")
	}
	templatizeExtent(tmpl)

	for _, section := range []string{"layers", "tables"} {
		defs, _ := tmpl.Properties[section].([]models.JSONMap)
		for _, def := range defs {
			if id := def.Str("serviceItemId"); id != "" && !IsTemplatized(id) {
				def["serviceItemId"] = Placeholder(tmpl.ItemID, "itemId")
			}
		}
	}
	return nil
}

// Deploy creates the bare service, then adds layers and tables one at a time
// in ascending id order, and finally restores the relationships that were
// stripped before the adds. The destination admin API neither supports
// creating interrelated layers atomically nor concurrent definition
// updates, hence the two passes and the strictly serial adds.
func (h featureServiceHandler) Deploy(ctx context.Context, tmpl *models.Template, run *Run) (models.DeployedItem, error) {
	run.Report(tmpl, models.StatusCreating, "creating feature service")

	vm := run.Values.Snapshot()
	service, _ := tmpl.Properties["service"].(models.JSONMap)
	if service == nil {
		return models.DeployedItem{}, fmt.Errorf("feature service %s was not fleshed out", tmpl.ItemID)
	}

	definition := InterpolateMap(service, vm)
	// Destination servers reject duplicate service names.
	name := definition.Str("name")
	if name == "" {
		name = defaultServiceName
	}
	definition["name"] = fmt.Sprintf("%s_%v", name, time.Now().Unix())
	delete(definition, "layers")
	delete(definition, "tables")

	info, err := run.Portal.CreateFeatureService(ctx, definition, run.FolderID)
	if err != nil {
		return models.DeployedItem{}, err
	}

	entry := models.ValueEntry{
		ID:    info.ServiceItemID,
		URL:   strings.TrimRight(info.ServiceURL, "/"),
		Name:  definition.Str("name"),
		Title: tmpl.Item.Str("title"),
	}
	run.Values.Set(tmpl.ItemID, entry)

	item := InterpolateMap(tmpl.Item, run.Values.Snapshot())
	if title := item.Str("title"); title != "" {
		if err := run.Portal.UpdateItem(ctx, info.ServiceItemID, models.JSONMap{
			"title":   title,
			"snippet": item.Str("snippet"),
			"tags":    item["tags"],
		}); err != nil {
			return models.DeployedItem{}, err
		}
	}

	if err := h.addLayersAndTables(ctx, tmpl, run, entry.URL); err != nil {
		return models.DeployedItem{}, err
	}

	return deployedFrom(tmpl, entry), nil
}

// addLayersAndTables performs the two-pass restore: first every layer and
// table is added without its relationships, then the stashed relationships
// are patched back in. A failed add is fatal; a failed relationship restore
// is logged as a warning and does not block the remaining layers.
func (featureServiceHandler) addLayersAndTables(ctx context.Context, tmpl *models.Template, run *Run, serviceURL string) error {
	vm := run.Values.Snapshot()

	type pending struct {
		def     models.JSONMap
		section string
		id      float64
	}

	var queue []pending
	for _, section := range []string{"layers", "tables"} {
		defs, _ := tmpl.Properties[section].([]models.JSONMap)
		for _, def := range defs {
			id, _ := def["id"].(float64)
			queue = append(queue, pending{def: def, section: section, id: id})
		}
	}
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].id < queue[j].id })

	// Relationships reference sibling layers that may not exist yet, so
	// they are stashed by original id and re-attached after every add.
	relationships := make(map[float64]any)

	for _, p := range queue {
		def := InterpolateMap(p.def, vm)
		if rels, ok := def["relationships"]; ok {
			relationships[p.id] = rels
			delete(def, "relationships")
		}
		if p.section == "layers" {
			admin, _ := def["adminLayerInfo"].(map[string]any)
			if admin == nil {
				admin = map[string]any{}
			}
			admin["geometryField"] = shapeGeometryField
			def["adminLayerInfo"] = admin
		}

		run.Report(tmpl, models.StatusUpdating, fmt.Sprintf("adding %s %v", strings.TrimSuffix(p.section, "s"), p.id))

		payload := models.JSONMap{p.section: []any{map[string]any(def)}}
		if err := run.Portal.AddToServiceDefinition(ctx, serviceURL, payload); err != nil {
			return fmt.Errorf("failed to add %s %v: %w", strings.TrimSuffix(p.section, "s"), p.id, err)
		}
	}

	restoreIDs := make([]float64, 0, len(relationships))
	for id := range relationships {
		restoreIDs = append(restoreIDs, id)
	}
	sort.Slice(restoreIDs, func(i, j int) bool { return restoreIDs[i] < restoreIDs[j] })

	for _, id := range restoreIDs {
		payload := models.JSONMap{
			"layers": []any{map[string]any{
				"id":            id,
				"relationships": relationships[id],
			}},
		}
		if err := run.Portal.AddToServiceDefinition(ctx, serviceURL, payload); err != nil {
			run.Report(tmpl, models.StatusWarning, fmt.Sprintf("failed to restore relationships on layer %v", id))
			log.Printf("feature service %s: relationship restore on layer %v failed: %v", tmpl.ItemID, id, err)
		}
	}
	return nil
}

// jsonNumber formats a decoded JSON number without a trailing fraction.
func jsonNumber(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}
