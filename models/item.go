package models

// JSONMap is a loosely typed JSON object. Portal item shapes vary per item
// type, so the base metadata, group metadata and type-specific properties are
// carried as maps rather than fixed structs.
type JSONMap map[string]any

// Str returns the string value for key, or "" when absent or not a string.
func (m JSONMap) Str(key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Clone returns a shallow copy of the map.
func (m JSONMap) Clone() JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ResourceList is the result of an item resource listing.
type ResourceList struct {
	Total     int       `json:"total"`
	Resources []JSONMap `json:"resources"`
}

// GroupContentPage is one tranche of a paginated group contents listing.
type GroupContentPage struct {
	Items     []JSONMap `json:"items"`
	Start     int       `json:"start"`
	Num       int       `json:"num"`
	NextStart int       `json:"nextStart"`
	Total     int       `json:"total"`
}

// ItemIDs returns the ids of the page's member items.
func (p *GroupContentPage) ItemIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		if id := it.Str("id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// PageRequest describes one tranche of a paginated listing.
type PageRequest struct {
	Start int
	Num   int
}

// ServiceInfo is the result of creating a hosted feature service.
type ServiceInfo struct {
	ServiceItemID string `json:"serviceItemId"`
	ServiceURL    string `json:"serviceurl"`
	Name          string `json:"name"`
}
