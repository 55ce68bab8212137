package solution

import (
	"context"
	"fmt"
	"time"

	"github.com/gisops/solclone/models"
)

// groupPageSize is the tranche size for group content enumeration.
const groupPageSize = 100

// groupHandler clones groups. A group's "dependencies" are its member
// items: the relationship is deliberately inverted so the contents deploy
// first and the new group can add them as members right after its creation.
type groupHandler struct{}

func (groupHandler) Dependencies(ctx context.Context, tmpl *models.Template, p Portal) ([]string, error) {
	return GetGroupContents(ctx, p, tmpl.ItemID, models.PageRequest{Start: 1, Num: groupPageSize})
}

// GetGroupContents fetches one tranche of a group's membership and recurses
// while the response advertises a further page. Callers always want the full
// list, so the sequence is materialized eagerly; a failing page fails the
// whole enumeration.
func GetGroupContents(ctx context.Context, p Portal, groupID string, page models.PageRequest) ([]string, error) {
	tranche, err := p.FetchGroupContents(ctx, groupID, page)
	if err != nil {
		return nil, &GroupContentError{GroupID: groupID, Start: page.Start, Err: err}
	}

	ids := tranche.ItemIDs()
	if tranche.NextStart > 0 {
		rest, err := GetGroupContents(ctx, p, groupID, models.PageRequest{Start: tranche.NextStart, Num: page.Num})
		if err != nil {
			return nil, err
		}
		ids = append(ids, rest...)
	}
	return ids, nil
}

func (groupHandler) Templatize(tmpl *models.Template) error {
	return nil
}

// Deploy creates the group and then shares each deployed member into it.
// Group titles must be unique per organization, so the title carries a
// timestamp suffix.
func (groupHandler) Deploy(ctx context.Context, tmpl *models.Template, run *Run) (models.DeployedItem, error) {
	run.Report(tmpl, models.StatusCreating, "creating group")

	vm := run.Values.Snapshot()
	group := InterpolateMap(tmpl.Item, vm)

	title := group.Str("title")
	if title == "" {
		title = "Group"
	}
	group["title"] = fmt.Sprintf("%s %v", title, time.Now().Unix())

	newID, err := run.Portal.CreateGroup(ctx, group)
	if err != nil {
		return models.DeployedItem{}, fmt.Errorf("failed to create group: %w", err)
	}

	entry := models.ValueEntry{ID: newID, Title: group.Str("title")}
	run.Values.Set(tmpl.ItemID, entry)

	access := tmpl.Item.Str("access")
	for _, dep := range tmpl.Dependencies {
		member, ok := run.Values.Get(dep)
		if !ok {
			return models.DeployedItem{}, fmt.Errorf("group member %s has no deployed id", dep)
		}
		if err := run.Portal.ShareItemWithGroup(ctx, member.ID, newID); err != nil {
			return models.DeployedItem{}, err
		}
		run.Report(tmpl, models.StatusUpdating, fmt.Sprintf("added group member %s", member.ID))

		if access == "public" || access == "org" {
			if err := run.Portal.SetItemAccess(ctx, member.ID, access); err != nil {
				return models.DeployedItem{}, err
			}
		}
	}

	return deployedFrom(tmpl, entry), nil
}
