package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

type KasConfigFileAdapter struct{}

func NewKasConfigFileAdapter() KasConfigFileAdapter {
	return KasConfigFileAdapter{}
}

// LoadKasConfig reads a static kas config. YAML files are decoded with
// yaml tags and JSON files with json tags.
func (a KasConfigFileAdapter) LoadKasConfig(path string) (types.KasConfig, error) {
	var format types.ConfigFormat
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		format = types.ConfigFormatYAML
	case ".json":
		format = types.ConfigFormatJSON
	default:
		return types.KasConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("config file extension not recognized: %s", path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.KasConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to resolve config path").
			WithCause(err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return types.KasConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("kas config not found").
			WithCause(err)
	}
	var cfg types.KasConfig
	if format == types.ConfigFormatJSON {
		err = k8syaml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return types.KasConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse kas config %s", path)).
			WithCause(err)
	}
	cfg.Filename = abs
	return cfg, nil
}

var _ ports.KasConfigPort = KasConfigFileAdapter{}
