package solution

import (
	"context"

	"github.com/gisops/solclone/models"
)

// CloneOptions configures a full clone of one or more root items from a
// source organization into a destination organization.
type CloneOptions struct {
	Source      Portal
	Destination Portal

	// IDs are the root item or group ids to clone. Their dependency
	// graphs are discovered and cloned with them.
	IDs []string

	// SolutionName names the destination folder when one is created.
	SolutionName string

	// FolderID is an existing destination folder. When empty a new
	// folder is created.
	FolderID string

	// PortalURL is the destination organization's base URL, made
	// available to templates through the server token.
	PortalURL string

	// Extent is the destination org-level default extent. Optional.
	Extent any

	// Progress receives deployment checkpoints. Optional.
	Progress models.ProgressFunc
}

// Clone discovers the dependency hierarchy of the root ids in the source
// organization and replays it, dependency-first, into the destination
// organization. It returns the created items in completion order.
func Clone(ctx context.Context, opts CloneOptions) ([]models.DeployedItem, error) {
	collection := make(models.TemplateCollection)
	if err := BuildHierarchy(ctx, opts.Source, opts.IDs, collection); err != nil {
		return nil, err
	}

	d := NewDeployer(opts.Destination)
	return d.Deploy(ctx, collection, DeployOptions{
		SolutionName: opts.SolutionName,
		FolderID:     opts.FolderID,
		PortalURL:    opts.PortalURL,
		Extent:       opts.Extent,
		Progress:     opts.Progress,
	})
}
