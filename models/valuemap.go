package models

// ValueEntry records the destination identity of one deployed item. Entries
// are written once per item and never removed during a run.
type ValueEntry struct {
	// ID is the destination-organization item id.
	ID string `json:"id"`

	// URL is the destination item or service URL, when the type has one.
	URL string `json:"url,omitempty"`

	// Name is the destination service name, when the type has one.
	Name string `json:"name,omitempty"`

	// Title is the destination item title.
	Title string `json:"title,omitempty"`

	// Extent is an org-level extent value, used only by the shared
	// "initiative" entry.
	Extent any `json:"extent,omitempty"`
}

// Field returns the entry value for a placeholder field name.
func (e ValueEntry) Field(name string) (any, bool) {
	switch name {
	case "itemId", "id":
		return e.ID, e.ID != ""
	case "url":
		return e.URL, e.URL != ""
	case "name":
		return e.Name, e.Name != ""
	case "title":
		return e.Title, e.Title != ""
	case "extent":
		return e.Extent, e.Extent != nil
	default:
		return nil, false
	}
}

// ValueMap maps source-organization ids to destination identity info. It
// grows monotonically during a deployment run and is shared by every deploy
// step of that run.
type ValueMap map[string]ValueEntry

// DeployedItem is the per-item result of a deployment run.
type DeployedItem struct {
	// SourceID is the item's id in the source organization.
	SourceID string `json:"sourceId"`

	// ID is the item's id in the destination organization.
	ID string `json:"id"`

	// URL is the created item's URL, when the type has one.
	URL string `json:"url,omitempty"`

	// Title is the created item's title.
	Title string `json:"title,omitempty"`

	// Type is the portal type name.
	Type string `json:"type"`
}
