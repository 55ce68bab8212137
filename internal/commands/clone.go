package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gisops/solclone/internal/portal"
	"github.com/gisops/solclone/internal/solution"
	"github.com/gisops/solclone/models"
)

var (
	cloneManifest string
	cloneName     string
	cloneFolder   string
	cloneQuiet    bool
)

var cloneCmd = &cobra.Command{
	Use:   "clone [item-id...]",
	Short: "Clone a solution into the destination organization",
	Long: `Clone one or more root items, with their full dependency graphs, from
the source organization into the destination organization.

Root items can be given as arguments or through a YAML manifest.

Examples:
  # Clone one item and everything it depends on
  solclone clone 5be7ec9455e14c65b7b4f7c6a8a0fcf3

  # Clone several roots into a named solution folder
  solclone clone 5be7ec945... 38ab66059... --name "Wildfire Response"

  # Clone from a manifest
  solclone clone --manifest wildfire.yaml`,
	RunE: runClone,
}

func init() {
	cloneCmd.Flags().StringVarP(&cloneManifest, "manifest", "m", "", "YAML manifest describing the solution")
	cloneCmd.Flags().StringVar(&cloneName, "name", "", "solution name for the destination folder")
	cloneCmd.Flags().StringVar(&cloneFolder, "folder", "", "existing destination folder id")
	cloneCmd.Flags().BoolVarP(&cloneQuiet, "quiet", "q", false, "suppress progress output")
}

func runClone(cmd *cobra.Command, args []string) error {
	ids := args
	name := cloneName
	folder := cloneFolder
	var extent any

	if cloneManifest != "" {
		manifest, err := models.LoadManifest(cloneManifest)
		if err != nil {
			return err
		}
		ids = append(ids, manifest.Items...)
		if name == "" {
			name = manifest.Name
		}
		if folder == "" {
			folder = manifest.Folder
		}
		extent = manifest.Extent
	}

	if len(ids) == 0 {
		return fmt.Errorf("no items to clone: pass item ids or --manifest")
	}
	if name == "" {
		name = cfg.Deploy.SolutionName
	}
	if folder == "" {
		folder = cfg.Deploy.Folder
	}

	source, dest, err := buildClients()
	if err != nil {
		return err
	}

	var progress models.ProgressFunc
	if !cloneQuiet {
		progress = printProgress
	}

	fmt.Printf("Cloning %d root item(s) from %s\n", len(ids), cfg.Source.URL)

	results, err := solution.Clone(cmd.Context(), solution.CloneOptions{
		Source:       source,
		Destination:  dest,
		IDs:          ids,
		SolutionName: name,
		FolderID:     folder,
		PortalURL:    dest.BaseURL(),
		Extent:       extent,
		Progress:     progress,
	})
	if err != nil {
		return fmt.Errorf("clone failed: %w", err)
	}

	fmt.Printf("\nCloned %d item(s)\n\n", len(results))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tTYPE\tSOURCE ID\tNEW ID")
	for _, item := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.Title, item.Type, item.SourceID, item.ID)
	}
	w.Flush()

	return nil
}

// buildClients creates the source and destination portal clients from the
// loaded configuration.
func buildClients() (*portal.Client, *portal.Client, error) {
	source, err := portal.New(cfg.Source.URL, cfg.Source.Username, cfg.Source.Token,
		portal.WithRateLimit(cfg.Source.RateLimit, 5),
		portal.WithTimeout(cfg.Source.Timeout),
		portal.WithDebug(cfg.Server.Debug))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create source client: %w", err)
	}

	dest, err := portal.New(cfg.Destination.URL, cfg.Destination.Username, cfg.Destination.Token,
		portal.WithRateLimit(cfg.Destination.RateLimit, 5),
		portal.WithTimeout(cfg.Destination.Timeout),
		portal.WithDebug(cfg.Server.Debug))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create destination client: %w", err)
	}

	return source, dest, nil
}

// printProgress writes one line per deployment checkpoint.
func printProgress(event models.ProgressEvent) {
	if event.Message != "" {
		fmt.Printf("  [%s] %s %s: %s\n", event.Status, event.Type, event.ItemID, event.Message)
		return
	}
	fmt.Printf("  [%s] %s %s\n", event.Status, event.Type, event.ItemID)
}
