package domain

import (
	"github.com/google/uuid"
)

// NewID generates a UUIDv7 string used to tag audit runs in logs and reports.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
