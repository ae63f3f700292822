package utils

import (
	"strings"
)

// IsValidRole checks if a role is one the pipeline knows.
func IsValidRole(role string) bool {
	switch role {
	case "admin", "guru", "guruwali", "orangtua", "siswa":
		return true
	}
	return false
}

// IsValidFileExtension checks if the filename carries an allowed extension.
func IsValidFileExtension(filename string, allowedExtensions []string) bool {
	if filename == "" {
		return false
	}

	parts := strings.Split(filename, ".")
	if len(parts) < 2 {
		return false
	}
	ext := strings.ToLower(parts[len(parts)-1])

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// SanitizeString removes null bytes and trims whitespace from free-text
// input before it reaches storage.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
