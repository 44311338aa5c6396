package masking

import "strings"

const maskToken = "****"

// sensitiveKeys are metadata keys whose values are masked before an audit
// entry is persisted.
var sensitiveKeys = map[string]struct{}{
	"pixkey":   {},
	"document": {},
	"phone":    {},
	"token":    {},
}

// MaskSecret redacts a value while keeping the last four characters.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskMetadata returns a copy of input with sensitive keys masked, recursing
// into nested maps.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, sensitive := sensitiveKeys[normalizeKey(key)]; sensitive {
			if s, ok := value.(string); ok {
				out[key] = MaskSecret(s)
				continue
			}
		}
		if nested, ok := value.(map[string]any); ok {
			out[key] = MaskMetadata(nested)
			continue
		}
		out[key] = value
	}
	return out
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
}
