package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a new UUID v4 string used as a primary key.
func GenerateID() string {
	return uuid.NewString()
}

// GeneratePublicToken returns an unguessable token for links shared with
// clients. It is a UUID without dashes so it reads well in URLs.
func GeneratePublicToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsValidUUID checks if the string is a valid UUID
func IsValidUUID(u string) bool {
	_, err := uuid.Parse(u)
	return err == nil
}
