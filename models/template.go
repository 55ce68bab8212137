package models

import (
	"encoding/json"
	"strings"
)

// ItemKind identifies which type handler owns a template. It is resolved once
// at classification time from the portal item type and carried on the template
// as a tag, so behavior is never serialized with the data.
type ItemKind int

const (
	// KindGeneric is the fallback for unrecognized item types.
	KindGeneric ItemKind = iota
	KindDashboard
	KindFeatureService
	KindGroup
	KindWebMap
	KindWebMappingApplication
)

// String returns the canonical portal type name for the kind.
func (k ItemKind) String() string {
	switch k {
	case KindDashboard:
		return "Dashboard"
	case KindFeatureService:
		return "Feature Service"
	case KindGroup:
		return "Group"
	case KindWebMap:
		return "Web Map"
	case KindWebMappingApplication:
		return "Web Mapping Application"
	default:
		return "Generic"
	}
}

// KindForType resolves a portal item type name to its handler kind. Matching
// is case-insensitive; unknown types map to KindGeneric.
func KindForType(itemType string) ItemKind {
	switch strings.ToLower(strings.TrimSpace(itemType)) {
	case "dashboard", "operation view":
		return KindDashboard
	case "feature service":
		return KindFeatureService
	case "group":
		return KindGroup
	case "web map":
		return KindWebMap
	case "web mapping application":
		return KindWebMappingApplication
	default:
		return KindGeneric
	}
}

// Template is the portable representation of one portal item or group.
//
// ItemID is the immutable source-organization id for the whole run;
// destination identity is recorded only in the ValueMap. After deployment a
// template is treated as a provenance record and no longer mutated.
type Template struct {
	// ItemID is the source-organization item id.
	ItemID string `json:"itemId"`

	// Type is the normalized portal type name.
	Type string `json:"type"`

	// Kind selects the type handler. Derived from Type, never persisted.
	Kind ItemKind `json:"-"`

	// Key is a process-local short identifier used only for progress
	// event correlation.
	Key string `json:"key"`

	// Item is the sanitized, templatized base metadata.
	Item JSONMap `json:"item"`

	// Data is the item's opaque data section, templatized in place by the
	// owning type handler. Nil when the item has no data section.
	Data json.RawMessage `json:"data,omitempty"`

	// Resources lists the item's resource descriptors, passed through
	// largely unmodified.
	Resources []JSONMap `json:"resources,omitempty"`

	// Dependencies are the source ids that must deploy before this item.
	Dependencies []string `json:"dependencies"`

	// Properties holds type-specific supplementary data outside the
	// item/data split. Feature services keep their full service, layer
	// and table definitions here.
	Properties JSONMap `json:"properties,omitempty"`
}

// TemplateCollection accumulates resolved templates keyed by base item id.
// A nil value marks an id whose classification is still in flight.
type TemplateCollection map[string]*Template

// IDs returns the resolved template ids in unspecified order.
func (c TemplateCollection) IDs() []string {
	ids := make([]string, 0, len(c))
	for id, tmpl := range c {
		if tmpl != nil {
			ids = append(ids, id)
		}
	}
	return ids
}
