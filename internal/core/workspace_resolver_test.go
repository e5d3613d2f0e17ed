package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kas-container/internal/types"
)

type stubHost struct {
	distro string
	env    map[string]string
}

func (h stubHost) DistroID() string { return h.distro }

func (h stubHost) Getenv(key string) string { return h.env[key] }

func (h stubHost) LookupEnv(key string) (string, bool) {
	value, ok := h.env[key]
	return value, ok
}

type stubRepoPort struct {
	top string
	err error
}

func (s stubRepoPort) Fetch(context.Context, types.Repo, string) error { return nil }

func (s stubRepoPort) Checkout(context.Context, types.Repo) error { return nil }

func (s stubRepoPort) TopLevel(string) (string, error) { return s.top, s.err }

func sampleKasConfig() types.KasConfig {
	return types.KasConfig{
		Filename: "/src/project/kas.yml",
		Repos: map[string]*types.RepoConfig{
			"this": nil,
			"poky": {
				URL:     "https://git.yoctoproject.org/git/poky",
				Refspec: "89b0c2ecb5e3b5ba0d2b25a1fc1db6ab4e8f1ab3",
				Layers: map[string]any{
					"meta":           nil,
					"meta-poky":      nil,
					"meta-yocto-bsp": "disabled",
				},
			},
		},
		LocalConfHeader: map[string]string{"b": "second", "a": "first"},
	}
}

func TestWorkspaceResolverResolve(t *testing.T) {
	resolver := NewWorkspaceResolver(
		stubHost{distro: "debian", env: map[string]string{EnvWorkDir: "/work", "http_proxy": "http://proxy:3128"}},
		stubRepoPort{top: "/src/project"},
	)

	ws, err := resolver.Resolve(context.Background(), sampleKasConfig(), "/ignored")
	require.NoError(t, err)

	assert.Equal(t, "/work", ws.WorkDir)
	assert.Equal(t, "/work/build", ws.BuildDir)
	assert.Equal(t, DefaultMachine, ws.Config.Machine)
	assert.Equal(t, DefaultDistro, ws.Config.Distro)
	assert.Equal(t, DefaultTarget, ws.Config.Target)
	assert.Equal(t, "en_US.UTF-8", ws.Environ["LANG"])
	assert.Equal(t, "http://proxy:3128", ws.Proxy.HTTPProxy)
	assert.Equal(t, "first\nsecond", ws.LocalConfHeader)
	assert.Empty(t, ws.BblayersConfHeader)

	want := []types.Repo{
		{
			Key:           "poky",
			Name:          "poky",
			QualifiedName: "git.yoctoproject.org.git.poky",
			URL:           "https://git.yoctoproject.org/git/poky",
			Refspec:       "89b0c2ecb5e3b5ba0d2b25a1fc1db6ab4e8f1ab3",
			Path:          "/work/poky",
			Layers:        []string{"meta", "meta-poky"},
		},
		{
			Key:           "this",
			Name:          "this",
			QualifiedName: ".src.project",
			URL:           "/src/project",
			Path:          "/src/project",
			GitDisabled:   true,
		},
	}
	if diff := cmp.Diff(want, ws.Repos); diff != "" {
		t.Fatalf("unexpected repos (-want +got):\n%s", diff)
	}
}

func TestWorkspaceResolverUsesCwdAndConfigProxy(t *testing.T) {
	resolver := NewWorkspaceResolver(stubHost{distro: "arch"}, stubRepoPort{top: "/src/project"})
	cfg := sampleKasConfig()
	cfg.ProxyConfig = &types.ProxyConfig{NoProxy: "localhost"}

	ws, err := resolver.Resolve(context.Background(), cfg, "/home/dev")
	require.NoError(t, err)
	assert.Equal(t, "/home/dev", ws.WorkDir)
	assert.Empty(t, ws.Environ)
	assert.Equal(t, types.ProxyConfig{NoProxy: "localhost"}, ws.Proxy)
}

func TestWorkspaceResolverInTreeRepoOutsideGit(t *testing.T) {
	resolver := NewWorkspaceResolver(stubHost{distro: "debian"}, stubRepoPort{err: errors.New("not a git repository")})

	_, err := resolver.Resolve(context.Background(), sampleKasConfig(), "/work")
	require.Error(t, err)
}

func TestJoinHeader(t *testing.T) {
	assert.Equal(t, "first\nsecond", JoinHeader(map[string]string{"b": "second", "a": "first"}))
	assert.Equal(t, "", JoinHeader(nil))
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "git.yoctoproject.org.git.poky", QualifiedName("https://git.yoctoproject.org/git/poky"))
	assert.Equal(t, "git.github.com.siemens.kas.git", QualifiedName("git@github.com:siemens/kas.git"))
	assert.Equal(t, "git.example.com.8080.layers", QualifiedName("https://git.example.com:8080/layers"))
}
