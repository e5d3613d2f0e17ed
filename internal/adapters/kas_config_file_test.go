package adapters

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKasConfigFileAdapterYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kas.yml", `machine: qemux86-64
repos:
  this:
  poky:
    url: https://git.yoctoproject.org/git/poky
    refspec: 89b0c2ecb5e3b5ba0d2b25a1fc1db6ab4e8f1ab3
    layers:
      meta:
      meta-yocto-bsp: excluded
local_conf_header:
  standard: |
    CONF_VERSION = "1"
`)

	cfg, err := NewKasConfigFileAdapter().LoadKasConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Filename)
	assert.Equal(t, "qemux86-64", cfg.Machine)
	require.Contains(t, cfg.Repos, "this")
	assert.Nil(t, cfg.Repos["this"])
	require.NotNil(t, cfg.Repos["poky"])
	assert.Equal(t, "https://git.yoctoproject.org/git/poky", cfg.Repos["poky"].URL)
	assert.Contains(t, cfg.Repos["poky"].Layers, "meta")
	assert.Equal(t, "excluded", cfg.Repos["poky"].Layers["meta-yocto-bsp"])
	assert.Equal(t, "CONF_VERSION = \"1\"\n", cfg.LocalConfHeader["standard"])
}

func TestKasConfigFileAdapterJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "kas.json", `{
  "distro": "isar",
  "target": "isar-image-base",
  "repos": {"isar": {"url": "https://github.com/ilbers/isar", "layers": {"meta": null, "meta-isar": "0"}}},
  "proxy_config": {"http_proxy": "http://proxy:3128"}
}`)

	cfg, err := NewKasConfigFileAdapter().LoadKasConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "isar", cfg.Distro)
	assert.Equal(t, "isar-image-base", cfg.Target)
	require.NotNil(t, cfg.ProxyConfig)
	assert.Equal(t, "http://proxy:3128", cfg.ProxyConfig.HTTPProxy)
	assert.Equal(t, "0", cfg.Repos["isar"].Layers["meta-isar"])
}

func TestKasConfigFileAdapterErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewKasConfigFileAdapter().LoadKasConfig(writeFile(t, dir, "kas.py", "repos = {}"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	_, err = NewKasConfigFileAdapter().LoadKasConfig(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	_, err = NewKasConfigFileAdapter().LoadKasConfig(writeFile(t, dir, "broken.yaml", "repos: [a"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
