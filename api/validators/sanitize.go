package validators

import "strings"

// OptionalText trims free-text input and caps it at maxLen bytes. Blank
// input becomes nil.
func OptionalText(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*input)
	if trimmed == "" {
		return nil
	}
	if maxLen > 0 && len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen]
	}
	return &trimmed
}
