package types

type Metadata struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Helper is a standalone binary fetched into the image and marked
// executable.
type Helper struct {
	Name   string `yaml:"name" json:"name"`
	URL    string `yaml:"url" json:"url"`
	Dest   string `yaml:"dest" json:"dest"`
	SHA256 string `yaml:"sha256,omitempty" json:"sha256,omitempty"`
}

type CopyStep struct {
	Src  string `yaml:"src" json:"src"`
	Dest string `yaml:"dest" json:"dest"`
}

type ImageSpec struct {
	Repository string            `yaml:"repository" json:"repository"`
	Base       string            `yaml:"base" json:"base"`
	Locale     string            `yaml:"locale" json:"locale"`
	Packages   []string          `yaml:"packages" json:"packages"`
	Helpers    []Helper          `yaml:"helpers,omitempty" json:"helpers,omitempty"`
	Env        map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Copy       []CopyStep        `yaml:"copy,omitempty" json:"copy,omitempty"`
	Install    []string          `yaml:"install,omitempty" json:"install,omitempty"`
	Entrypoint []string          `yaml:"entrypoint" json:"entrypoint"`
}

type VersionSource struct {
	Kind    VersionSourceKind `yaml:"kind" json:"kind"`
	File    string            `yaml:"file,omitempty" json:"file,omitempty"`
	Command []string          `yaml:"command,omitempty" json:"command,omitempty"`
}

// PublishPolicy decides which branches publish and under which floating
// tag. Only the release branch may add a version tag.
type PublishPolicy struct {
	ReleaseBranch string            `yaml:"release_branch,omitempty" json:"release_branch,omitempty"`
	Branches      map[string]string `yaml:"branches,omitempty" json:"branches,omitempty"`
	Version       VersionSource     `yaml:"version" json:"version"`
}

type ImageRecipe struct {
	APIVersion string        `yaml:"api_version" json:"api_version"`
	Kind       RecipeKind    `yaml:"kind" json:"kind"`
	Metadata   Metadata      `yaml:"metadata" json:"metadata"`
	Image      ImageSpec     `yaml:"image" json:"image"`
	Publish    PublishPolicy `yaml:"publish" json:"publish"`
}

// PackagePin is a package list entry split into name and optional
// Debian version.
type PackagePin struct {
	Name    string
	Version string
}
