package solution

import "github.com/gisops/solclone/models"

// undesirableItemProperties are artifacts of the source copy that must never
// travel to another organization: timestamps, counters, ownership and
// storage bookkeeping.
var undesirableItemProperties = []string{
	"avgRating",
	"created",
	"guid",
	"modified",
	"numComments",
	"numRatings",
	"numViews",
	"orgId",
	"owner",
	"size",
	"uploaded",
}

// RemoveUndesirableItemProperties returns a shallow copy of the item with the
// source-copy artifacts stripped. The input map is left unmodified.
func RemoveUndesirableItemProperties(item models.JSONMap) models.JSONMap {
	out := item.Clone()
	for _, key := range undesirableItemProperties {
		delete(out, key)
	}
	return out
}
