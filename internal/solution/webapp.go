package solution

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/gisops/solclone/models"
)

// guidPattern matches the 32-hex-digit ids the portal embeds in item and
// webpage URLs.
var guidPattern = regexp.MustCompile(`[0-9a-f]{32}`)

// genericAppPaths are the data locations a plain configurable app keeps its
// references in.
var genericAppPaths = []string{"webmap", "itemId", "values.webmap", "values.group"}

// webAppHandler clones web mapping applications. Extraction dispatches on
// the app's type keywords: the Story Map family mines format-specific
// nested JSON, Web AppBuilder apps reference a single map, and everything
// else uses a fixed list of data paths.
type webAppHandler struct{}

func (webAppHandler) Dependencies(ctx context.Context, tmpl *models.Template, p Portal) ([]string, error) {
	switch {
	case isStoryMap(tmpl):
		return storyMapDependencies(tmpl), nil
	case isWebAppBuilder(tmpl):
		if id := gjson.GetBytes(tmpl.Data, "map.itemId").String(); id != "" {
			return []string{BaseID(id)}, nil
		}
		return nil, nil
	default:
		var deps []string
		for _, path := range genericAppPaths {
			result := gjson.GetBytes(tmpl.Data, path)
			switch {
			case result.IsArray():
				for _, v := range result.Array() {
					if id := v.String(); id != "" {
						deps = append(deps, BaseID(id))
					}
				}
			case result.String() != "":
				deps = append(deps, BaseID(result.String()))
			}
		}
		return deps, nil
	}
}

func (h webAppHandler) Templatize(tmpl *models.Template) error {
	templatizeAppURL(tmpl)
	templatizeExtent(tmpl)

	if isStoryMap(tmpl) {
		for _, id := range storyMapDependencies(tmpl) {
			tmpl.Data = replaceIDWithPlaceholder(tmpl.Data, id)
		}
		return nil
	}

	if isWebAppBuilder(tmpl) {
		id := gjson.GetBytes(tmpl.Data, "map.itemId").String()
		if id != "" && !IsTemplatized(id) {
			data, err := sjson.SetBytes(tmpl.Data, "map.itemId", Placeholder(id, "itemId"))
			if err != nil {
				return err
			}
			tmpl.Data = data
		}
		return nil
	}

	for _, path := range genericAppPaths {
		result := gjson.GetBytes(tmpl.Data, path)
		if !result.Exists() || result.IsArray() {
			continue
		}
		id := result.String()
		if id == "" || IsTemplatized(id) {
			continue
		}
		data, err := sjson.SetBytes(tmpl.Data, path, Placeholder(id, "itemId"))
		if err != nil {
			return err
		}
		tmpl.Data = data
	}
	return nil
}

func (webAppHandler) Deploy(ctx context.Context, tmpl *models.Template, run *Run) (models.DeployedItem, error) {
	run.Report(tmpl, models.StatusCreating, "creating application")

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

// typeKeywords returns the item's typeKeywords as strings.
func typeKeywords(tmpl *models.Template) []string {
	raw, _ := tmpl.Item["typeKeywords"].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func hasKeyword(tmpl *models.Template, keywords ...string) bool {
	for _, kw := range typeKeywords(tmpl) {
		for _, want := range keywords {
			if strings.EqualFold(kw, want) {
				return true
			}
		}
	}
	return false
}

func isStoryMap(tmpl *models.Template) bool {
	return hasKeyword(tmpl, "Story Map", "Story Maps", "Cascade", "MapJournal", "mapseries")
}

func isWebAppBuilder(tmpl *models.Template) bool {
	return hasKeyword(tmpl, "WAB2D", "WAB3D", "Web AppBuilder")
}

// storyMapDependencies mines the format-specific nested JSON of the Story
// Map family. Cascade, MapJournal and map series each keep their media
// nodes under a different root.
func storyMapDependencies(tmpl *models.Template) []string {
	var root gjson.Result
	switch {
	case hasKeyword(tmpl, "Cascade"):
		root = gjson.GetBytes(tmpl.Data, "values.sections")
	case hasKeyword(tmpl, "mapseries"):
		root = gjson.GetBytes(tmpl.Data, "values.story.entries")
	default:
		root = gjson.GetBytes(tmpl.Data, "values.story.sections")
	}

	var deps []string
	collectStoryMedia(root, &deps)
	return RemoveDuplicates(deps)
}

// collectStoryMedia walks a story subtree collecting embedded webmap ids and
// GUID-shaped ids parsed out of webpage URLs.
func collectStoryMedia(node gjson.Result, deps *[]string) {
	if node.IsObject() {
		if id := node.Get("webmap.id").String(); id != "" && !IsTemplatized(id) {
			*deps = append(*deps, BaseID(id))
		}
		if url := node.Get("webpage.url").String(); url != "" {
			if id := guidPattern.FindString(url); id != "" {
				*deps = append(*deps, id)
			}
		}
	}
	node.ForEach(func(_, child gjson.Result) bool {
		if child.IsObject() || child.IsArray() {
			collectStoryMedia(child, deps)
		}
		return true
	})
}

// replaceIDWithPlaceholder swaps every occurrence of a raw id in the data
// document for its itemId placeholder; this covers both quoted id values and
// ids embedded in webpage URLs. Documents that already carry the placeholder
// pass through, keeping the rewrite idempotent.
func replaceIDWithPlaceholder(data []byte, id string) []byte {
	placeholder := Placeholder(id, "itemId")
	if bytes.Contains(data, []byte(placeholder)) {
		return data
	}
	return bytes.ReplaceAll(data, []byte(id), []byte(placeholder))
}

// templatizeAppURL generalizes the app URL: the path between the scheme's
// authority and the final "=" is preserved and the app's own id placeholder
// is appended, so the relocated app keeps its shape with a different server
// and id.
func templatizeAppURL(tmpl *models.Template) {
	url := tmpl.Item.Str("url")
	if url == "" || IsTemplatized(url) {
		return
	}

	rest := url
	if i := strings.Index(url, "://"); i >= 0 {
		rest = url[i+3:]
	}
	path := ""
	if j := strings.Index(rest, "/"); j >= 0 {
		path = rest[j:]
	}
	if k := strings.LastIndex(path, "="); k >= 0 {
		path = path[:k+1]
	}

	tmpl.Item["url"] = PortalToken + path + Placeholder(tmpl.ItemID, "itemId")
}
