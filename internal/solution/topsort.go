package solution

import (
	"fmt"
	"sort"

	"github.com/gisops/solclone/models"
)

// DFS vertex colors: white is unvisited, gray is on the current path, black
// is finished.
type vertexColor int

const (
	white vertexColor = iota
	gray
	black
)

// SortTemplates orders the collection so that every template's dependencies
// appear strictly before it. The classic three-color DFS appends a vertex on
// finish, which directly yields dependency-first order (the textbook
// prepend-on-finish variant would yield the reverse). A gray dependency
// means the current path re-entered itself: the sort stops immediately with
// a CyclicalDependencyError carrying the cycle's member ids; self-loops are
// caught the same way because a vertex is gray while its own dependency list
// is being visited.
func SortTemplates(collection models.TemplateCollection) ([]string, error) {
	ids := collection.IDs()
	sort.Strings(ids)

	colors := make(map[string]vertexColor, len(ids))
	order := make([]string, 0, len(ids))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		colors[id] = gray
		path = append(path, id)

		tmpl := collection[id]
		for _, dep := range tmpl.Dependencies {
			depID := BaseID(dep)
			depTmpl, ok := collection[depID]
			if !ok || depTmpl == nil {
				return fmt.Errorf("dependency %s of %s is not in the collection", depID, id)
			}
			switch colors[depID] {
			case white:
				if err := visit(depID); err != nil {
					return err
				}
			case gray:
				return &CyclicalDependencyError{Cycle: cyclePath(path, depID)}
			}
		}

		colors[id] = black
		path = path[:len(path)-1]
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if colors[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}

	return order, nil
}

// cyclePath trims the DFS path to the ids participating in the detected
// cycle and closes the loop for readability.
func cyclePath(path []string, repeated string) []string {
	for i, id := range path {
		if id == repeated {
			cycle := make([]string, 0, len(path)-i+1)
			cycle = append(cycle, path[i:]...)
			cycle = append(cycle, repeated)
			return cycle
		}
	}
	return []string{repeated, repeated}
}
