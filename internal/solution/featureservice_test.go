package solution

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gisops/solclone/models"
)

const sourceServiceURL = "https://src.example.com/rest/services/hydrants/FeatureServer"

func serviceTemplate() *models.Template {
	return &models.Template{
		ItemID: "svc4567890123456789012345678901a",
		Type:   "Feature Service",
		Kind:   models.KindFeatureService,
		Key:    "svckey",
		Item: models.JSONMap{
			"title":   "Hydrants",
			"snippet": "City hydrants",
			"tags":    []any{"water", "assets"},
			"type":    "Feature Service",
			"url":     sourceServiceURL,
		},
	}
}

func seedService(fake *fakePortal) {
	fake.raw[sourceServiceURL] = json.RawMessage(`{
		"name": "hydrants",
		"serviceItemId": "svc4567890123456789012345678901a",
		"capabilities": "Query,Editing",
		"layers": [{"id": 0, "name": "Hydrants"}, {"id": 1, "name": "Inspections"}],
		"tables": [{"id": 2, "name": "Audit"}]
	}`)
	fake.raw[sourceServiceURL+"/0"] = json.RawMessage(`{
		"id": 0,
		"name": "Hydrants",
		"serviceItemId": "svc4567890123456789012345678901a",
		"editFieldsInfo": {"creatorField": "created_user"},
		"relationships": [{"id": 0, "relatedTableId": 2}]
	}`)
	fake.raw[sourceServiceURL+"/1"] = json.RawMessage(`{
		"id": 1,
		"name": "Inspections",
		"serviceItemId": "svc4567890123456789012345678901a"
	}`)
	fake.raw[sourceServiceURL+"/2"] = json.RawMessage(`{
		"id": 2,
		"name": "Audit",
		"serviceItemId": "svc4567890123456789012345678901a"
	}`)
}

func enrichedTemplate(t *testing.T, fake *fakePortal) *models.Template {
	t.Helper()
	tmpl := serviceTemplate()
	require.NoError(t, featureServiceHandler{}.enrich(context.Background(), tmpl, fake))
	return tmpl
}

func TestFeatureServiceEnrich(t *testing.T) {
	fake := newFakePortal()
	seedService(fake)

	tmpl := enrichedTemplate(t, fake)

	service, _ := tmpl.Properties["service"].(models.JSONMap)
	require.NotNil(t, service)
	assert.Equal(t, "hydrants", service.Str("name"))

	layers, _ := tmpl.Properties["layers"].([]models.JSONMap)
	require.Len(t, layers, 2)
	assert.Equal(t, "Hydrants", layers[0].Str("name"))
	assert.NotContains(t, layers[0], "editFieldsInfo")
	assert.Contains(t, layers[0], "relationships")

	tables, _ := tmpl.Properties["tables"].([]models.JSONMap)
	require.Len(t, tables, 1)
	assert.Equal(t, "Audit", tables[0].Str("name"))
}

func TestFeatureServiceEnrichBackfillsName(t *testing.T) {
	fake := newFakePortal()
	seedService(fake)
	fake.raw[sourceServiceURL] = json.RawMessage(`{
		"layers": [{"id": 0, "name": "Hydrants"}]
	}`)

	tmpl := enrichedTemplate(t, fake)
	service, _ := tmpl.Properties["service"].(models.JSONMap)
	assert.Equal(t, "Hydrants", service.Str("name"))
}

func TestFeatureServiceEnrichNoURL(t *testing.T) {
	tmpl := serviceTemplate()
	delete(tmpl.Item, "url")
	err := featureServiceHandler{}.enrich(context.Background(), tmpl, newFakePortal())
	require.Error(t, err)
}

func TestFeatureServiceTemplatize(t *testing.T) {
	fake := newFakePortal()
	seedService(fake)
	tmpl := enrichedTemplate(t, fake)

	require.NoError(t, featureServiceHandler{}.Templatize(tmpl))
	assert.Equal(t, "{{svc4567890123456789012345678901a.url}}", tmpl.Item.Str("url"))

	layers, _ := tmpl.Properties["layers"].([]models.JSONMap)
	for _, layer := range layers {
		assert.Equal(t, "{{svc4567890123456789012345678901a.itemId}}", layer.Str("serviceItemId"))
	}

	// A second pass does not stack placeholders.
	require.NoError(t, featureServiceHandler{}.Templatize(tmpl))
	assert.Equal(t, "{{svc4567890123456789012345678901a.url}}", tmpl.Item.Str("url"))
}

func TestFeatureServiceDeploy(t *testing.T) {
	fake := newFakePortal()
	seedService(fake)
	tmpl := enrichedTemplate(t, fake)
	require.NoError(t, featureServiceHandler{}.Templatize(tmpl))

	run := newTestRun(fake)
	item, err := featureServiceHandler{}.Deploy(context.Background(), tmpl, run)
	require.NoError(t, err)

	require.Len(t, fake.services, 1)
	definition := fake.services[0]
	assert.True(t, strings.HasPrefix(definition.Str("name"), "hydrants_"), "service name %q", definition.Str("name"))
	assert.NotContains(t, definition, "layers")
	assert.NotContains(t, definition, "tables")

	// Title and snippet come from the portal item, not the service.
	require.Len(t, fake.updates[item.ID], 1)
	assert.Equal(t, "Hydrants", fake.updates[item.ID][0].Str("title"))
	assert.Equal(t, "City hydrants", fake.updates[item.ID][0].Str("snippet"))

	// Three adds in ascending id order, then one relationship restore.
	require.Len(t, fake.definitions, 4)
	for i, want := range []string{"Hydrants", "Inspections", "Audit"} {
		section := "layers"
		if want == "Audit" {
			section = "tables"
		}
		defs, _ := fake.definitions[i][section].([]any)
		require.Len(t, defs, 1, "add %d", i)
		def, _ := defs[0].(map[string]any)
		assert.Equal(t, want, def["name"])
		assert.NotContains(t, def, "relationships")

		if section == "layers" {
			admin, _ := def["adminLayerInfo"].(map[string]any)
			require.NotNil(t, admin)
			assert.Equal(t, map[string]any(shapeGeometryField), map[string]any(admin["geometryField"].(models.JSONMap)))
		} else {
			assert.NotContains(t, def, "adminLayerInfo")
		}

		// The added definition references the new service item.
		assert.Equal(t, item.ID, def["serviceItemId"])
	}

	restore := fake.definitions[3]
	layers, _ := restore["layers"].([]any)
	require.Len(t, layers, 1)
	restored, _ := layers[0].(map[string]any)
	assert.Equal(t, float64(0), restored["id"])
	assert.Contains(t, restored, "relationships")

	entry, ok := run.Values.Get("svc4567890123456789012345678901a")
	require.True(t, ok)
	assert.Equal(t, item.ID, entry.ID)
	assert.Equal(t, fake.serviceURL, entry.URL)
}

func TestFeatureServiceDeployRestoreFailureIsNonFatal(t *testing.T) {
	fake := newFakePortal()
	fake.failRestores = true
	seedService(fake)
	tmpl := enrichedTemplate(t, fake)
	require.NoError(t, featureServiceHandler{}.Templatize(tmpl))

	run := newTestRun(fake)
	var warnings []models.ProgressEvent
	run.progress = func(ev models.ProgressEvent) {
		if ev.Status == models.StatusWarning {
			warnings = append(warnings, ev)
		}
	}

	_, err := featureServiceHandler{}.Deploy(context.Background(), tmpl, run)
	require.NoError(t, err)
	assert.Len(t, fake.definitions, 3, "only the plain adds got through")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "relationships")
}
