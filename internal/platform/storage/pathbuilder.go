package storage

import (
	"fmt"
	"strings"
	"unicode"
)

// AssetPurpose captures high-level intent for storage layout decisions.
type AssetPurpose string

const (
	PurposeProductImage AssetPurpose = "product-image"
	PurposeGalleryImage AssetPurpose = "gallery-image"
)

// PathParams provide the identifiers used to compose storage object keys.
type PathParams struct {
	Prefix   string
	UniqueID string
	FileName string
}

// BuildObjectPath resolves the storage object path for the given purpose.
func BuildObjectPath(purpose AssetPurpose, params PathParams) (string, error) {
	prefix := normalisePrefix(params.Prefix)
	if prefix == "" {
		return "", fmt.Errorf("storage: prefix is required for %s", purpose)
	}
	fileName, err := sanitizeFileName(params.FileName)
	if err != nil {
		return "", err
	}

	switch purpose {
	case PurposeProductImage:
		uniqueID, err := validateSegment("uniqueID", params.UniqueID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s%s-%s", prefix, uniqueID, fileName), nil
	case PurposeGalleryImage:
		return prefix + fileName, nil
	default:
		return "", fmt.Errorf("storage: unsupported asset purpose %q", purpose)
	}
}

func normalisePrefix(prefix string) string {
	trimmed := strings.Trim(strings.TrimSpace(prefix), "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}

// sanitizeFileName keeps the client supplied name recognisable while removing path separators,
// control characters, and traversal sequences.
func sanitizeFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if idx := strings.LastIndexAny(value, "/\\"); idx >= 0 {
		value = value[idx+1:]
	}
	value = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsSpace(r):
			return '_'
		}
		return r
	}, value)
	value = strings.ReplaceAll(value, "..", ".")
	value = strings.TrimLeft(value, ".")
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	return value, nil
}
