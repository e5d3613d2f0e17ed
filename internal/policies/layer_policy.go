package policies

import (
	"fmt"
	"sort"
	"strings"

	"kas-container/internal/types"
)

// LayerEnabled reports whether a kas layer entry is switched on. A missing
// value (a bare `layer:` key) counts as enabled.
func LayerEnabled(value any) bool {
	if value == nil {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(fmt.Sprint(value)))
	for _, disabled := range types.DisabledLayerValues {
		if normalized == disabled {
			return false
		}
	}
	return true
}

// EnabledLayers returns the enabled layer names in sorted order.
func EnabledLayers(layers map[string]any) []string {
	var names []string
	for name, value := range layers {
		if LayerEnabled(value) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
