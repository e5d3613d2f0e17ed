package types

type RecipeKind string

const (
	RecipeKindImage RecipeKind = "image"
)

type VersionSourceKind string

const (
	VersionSourceFile  VersionSourceKind = "file"
	VersionSourceImage VersionSourceKind = "image"
)

type ConfigFormat string

const (
	ConfigFormatYAML ConfigFormat = "yaml"
	ConfigFormatJSON ConfigFormat = "json"
)

// DisabledLayerValues are the layer values that switch a layer off in a
// kas config. Matching is case-insensitive.
var DisabledLayerValues = []string{"disabled", "excluded", "n", "no", "0", "false"}
