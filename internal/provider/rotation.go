package provider

import (
	"math/rand/v2"
	"strings"

	"github.com/raine/room-design-studio/internal/design"
)

// Picker chooses one provider id from an allow-list.
type Picker func(allowList []string) string

// RandomPicker picks uniformly. Consecutive picks may repeat.
func RandomPicker(allowList []string) string {
	if len(allowList) == 0 {
		return ""
	}
	return allowList[rand.IntN(len(allowList))]
}

// Rotate picks a provider from allowList and pairs it with its configured
// default API key. Unknown ids, text providers and providers without a key
// are skipped.
func Rotate(allowList []string, keys map[string]string, pick Picker) (design.ProviderConfig, error) {
	if len(allowList) == 0 {
		return design.ProviderConfig{}, &design.ConfigError{Reason: "no providers configured for rotation"}
	}
	if pick == nil {
		pick = RandomPicker
	}

	var candidates []string
	for _, id := range allowList {
		id = normalizeID(id)
		if kind, ok := KindOf(id); ok && kind == KindImage && strings.TrimSpace(keys[id]) != "" {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return design.ProviderConfig{}, &design.ConfigError{Reason: "no rotation provider has an API key"}
	}

	id := pick(candidates)
	return design.ProviderConfig{ProviderID: id, APIKey: keys[id]}, nil
}
