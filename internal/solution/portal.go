// Package solution implements the solution cloning pipeline: discovering an
// item's dependency graph from a source organization, converting every item
// into a portable template with placeholder tokens, ordering the templates by
// dependency, and replaying creation against a destination organization.
package solution

import (
	"context"
	"encoding/json"

	"github.com/gisops/solclone/models"
)

// Portal is the set of portal REST operations the pipeline depends on. A
// Portal value is bound to one organization; discovery uses the source org's
// portal and deployment uses the destination org's portal.
// *portal.Client satisfies this interface.
type Portal interface {
	FetchItem(ctx context.Context, id string) (models.JSONMap, error)
	FetchItemData(ctx context.Context, id string) (json.RawMessage, error)
	FetchItemResources(ctx context.Context, id string) (*models.ResourceList, error)
	FetchGroup(ctx context.Context, id string) (models.JSONMap, error)
	FetchGroupContents(ctx context.Context, id string, page models.PageRequest) (*models.GroupContentPage, error)

	CreateItem(ctx context.Context, item models.JSONMap, data []byte, folderID string) (string, error)
	UpdateItem(ctx context.Context, id string, fields models.JSONMap) error
	CreateFolder(ctx context.Context, title string) (string, error)
	CreateGroup(ctx context.Context, group models.JSONMap) (string, error)
	ShareItemWithGroup(ctx context.Context, itemID, groupID string) error
	SetItemAccess(ctx context.Context, id, access string) error
	CreateFeatureService(ctx context.Context, definition models.JSONMap, folderID string) (*models.ServiceInfo, error)
	AddToServiceDefinition(ctx context.Context, serviceURL string, payload models.JSONMap) error

	RawGet(ctx context.Context, rawURL string) (json.RawMessage, error)
}
