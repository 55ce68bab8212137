package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gisops/solclone/internal/solution"
	"github.com/gisops/solclone/models"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <item-id...>",
	Short: "Inspect a solution's dependency hierarchy",
	Long: `Discover and print the dependency hierarchy of one or more root items
without deploying anything. Items are listed in the order they would be
created, dependencies first.

Examples:
  solclone inspect 5be7ec9455e14c65b7b4f7c6a8a0fcf3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	source, _, err := buildClients()
	if err != nil {
		return err
	}

	collection := make(models.TemplateCollection)
	if err := solution.BuildHierarchy(cmd.Context(), source, args, collection); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	order, err := solution.SortTemplates(collection)
	if err != nil {
		return fmt.Errorf("failed to order hierarchy: %w", err)
	}

	fmt.Printf("Discovered %d item(s)\n\n", len(order))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tID\tTYPE\tTITLE\tDEPENDS ON")
	for i, id := range order {
		tmpl := collection[id]
		deps := make([]string, 0, len(tmpl.Dependencies))
		for _, dep := range tmpl.Dependencies {
			deps = append(deps, solution.BaseID(dep))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i+1, id, tmpl.Type, tmpl.Item.Str("title"), strings.Join(deps, ", "))
	}
	w.Flush()

	return nil
}
