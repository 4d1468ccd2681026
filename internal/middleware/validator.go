package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

var publicIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{22}$`)

// ValidateAnalysisID checks that id is a uuid as issued on create.
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid analysis id format")
	}
	return nil
}

// ValidatePublicID checks the 22 character url-safe share id.
func ValidatePublicID(id string) error {
	if !publicIDPattern.MatchString(id) {
		return fmt.Errorf("invalid share id format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateOffset clamps negative offsets to zero.
func ValidateOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
