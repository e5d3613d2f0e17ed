package types

type RepoConfig struct {
	URL     string         `yaml:"url,omitempty" json:"url,omitempty"`
	Refspec string         `yaml:"refspec,omitempty" json:"refspec,omitempty"`
	Path    string         `yaml:"path,omitempty" json:"path,omitempty"`
	Name    string         `yaml:"name,omitempty" json:"name,omitempty"`
	Layers  map[string]any `yaml:"layers,omitempty" json:"layers,omitempty"`
}

type ProxyConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty" json:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" json:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty" json:"no_proxy,omitempty"`
}

// KasConfig is the static kas project configuration.
type KasConfig struct {
	Filename           string                 `yaml:"-" json:"-"`
	Machine            string                 `yaml:"machine,omitempty" json:"machine,omitempty"`
	Distro             string                 `yaml:"distro,omitempty" json:"distro,omitempty"`
	Target             string                 `yaml:"target,omitempty" json:"target,omitempty"`
	Repos              map[string]*RepoConfig `yaml:"repos,omitempty" json:"repos,omitempty"`
	LocalConfHeader    map[string]string      `yaml:"local_conf_header,omitempty" json:"local_conf_header,omitempty"`
	BblayersConfHeader map[string]string      `yaml:"bblayers_conf_header,omitempty" json:"bblayers_conf_header,omitempty"`
	ProxyConfig        *ProxyConfig           `yaml:"proxy_config,omitempty" json:"proxy_config,omitempty"`
}

// Repo is a resolved repository of a kas project.
type Repo struct {
	Key           string
	Name          string
	QualifiedName string
	URL           string
	Refspec       string
	Path          string
	Layers        []string
	GitDisabled   bool
}

// LayerPaths returns the absolute layer directories of the repo.
func (r Repo) LayerPaths() []string {
	if len(r.Layers) == 0 {
		return []string{r.Path}
	}
	paths := make([]string, 0, len(r.Layers))
	for _, layer := range r.Layers {
		if layer == "." {
			paths = append(paths, r.Path)
			continue
		}
		paths = append(paths, r.Path+"/"+layer)
	}
	return paths
}

// Workspace is a kas config resolved against the host environment.
type Workspace struct {
	Config   KasConfig
	WorkDir  string
	BuildDir string
	RefDir   string
	Repos    []Repo
	Environ  map[string]string
	Proxy    ProxyConfig
	// Conf headers joined in key order.
	LocalConfHeader    string
	BblayersConfHeader string
}
