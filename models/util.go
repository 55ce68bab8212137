package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateID generates a unique ID with the given prefix
// Example: GenerateID("job") -> "job:uuid-here"
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s:%s", prefix, uuid.New().String())
}

// ShortKey returns a short process-local identifier. It is used only for
// progress event correlation, so the reduced entropy is acceptable.
func ShortKey() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
