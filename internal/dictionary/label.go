package dictionary

import "fmt"

// ResolveLabel returns the label of the entry whose value matches.
// Values are compared as strings, so 1 and "1" are equivalent.
// Without a record or a matching entry, the value itself is returned.
func ResolveLabel(record *Record, value any) string {
	normalized := normalizeValue(value)
	if record == nil {
		return normalized
	}
	for _, entry := range record.Entries {
		if entry.Value == normalized {
			return entry.Label
		}
	}
	return normalized
}

func normalizeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
