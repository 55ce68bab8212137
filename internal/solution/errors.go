package solution

import (
	"fmt"
	"strings"
)

// ItemUnavailableError is returned when an id resolves to neither an item
// nor a group in the source organization.
type ItemUnavailableError struct {
	ID string
}

// Error implements the error interface.
func (e *ItemUnavailableError) Error() string {
	if e.ID == "" {
		return "no item id was provided"
	}
	return fmt.Sprintf("item or group %s is not available", e.ID)
}

// CyclicalDependencyError is raised by the topological sorter when the
// template collection contains a dependency cycle, including self-loops.
// Cycle lists the member ids in traversal order.
type CyclicalDependencyError struct {
	Cycle []string
}

// Error implements the error interface.
func (e *CyclicalDependencyError) Error() string {
	if len(e.Cycle) == 0 {
		return "cyclical dependency detected"
	}
	return fmt.Sprintf("cyclical dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// DeployStepError wraps the first creation/update/share failure of a
// deployment run. The overall run fails with this error; already-created
// sibling items are not rolled back by the pipeline.
type DeployStepError struct {
	Key    string
	ItemID string
	Err    error
}

// Error implements the error interface.
func (e *DeployStepError) Error() string {
	return fmt.Sprintf("deployment of item %s (key %s) failed: %v", e.ItemID, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DeployStepError) Unwrap() error {
	return e.Err
}

// GroupContentError is returned when a page fetch fails mid-pagination while
// enumerating a group's contents. It aborts discovery of that group.
type GroupContentError struct {
	GroupID string
	Start   int
	Err     error
}

// Error implements the error interface.
func (e *GroupContentError) Error() string {
	return fmt.Sprintf("failed to list contents of group %s at start=%d: %v", e.GroupID, e.Start, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GroupContentError) Unwrap() error {
	return e.Err
}
