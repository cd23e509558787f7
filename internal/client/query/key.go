package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key addresses one cache entry.
type Key []any

// encode returns the JSON form of every element.
func (k Key) encode() ([]string, error) {
	parts := make([]string, len(k))
	for i, el := range k {
		b, err := json.Marshal(el)
		if err != nil {
			return nil, fmt.Errorf("encode key element %d: %w", i, err)
		}
		parts[i] = string(b)
	}
	return parts, nil
}

func (k Key) String() string {
	parts, err := k.encode()
	if err != nil {
		return fmt.Sprintf("%v", []any(k))
	}
	return join(parts)
}

func join(parts []string) string {
	return "[" + strings.Join(parts, ",") + "]"
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}
