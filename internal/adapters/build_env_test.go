package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

type recordingRunner struct {
	specs  []ports.CommandSpec
	result ports.CommandResult
	err    error
}

func (r *recordingRunner) Run(_ context.Context, spec ports.CommandSpec) (ports.CommandResult, error) {
	r.specs = append(r.specs, spec)
	return r.result, r.err
}

func TestBuildEnvAdapterBuildEnviron(t *testing.T) {
	poky := t.TempDir()
	writeFile(t, poky, "oe-init-build-env", "#!/bin/sh\n")
	runner := &recordingRunner{result: ports.CommandResult{Stdout: "PATH=/poky/scripts:/bin:/usr/bin\n" +
		"BUILDDIR=/work/build\n" +
		"BB_ENV_EXTRAWHITE=MACHINE DISTRO\n" +
		"MULTI=first line\nsecond line\n"}}
	host := mapHost{"SSTATE_DIR": "/cache/sstate", "TERM": "xterm", "HOME": "/root"}

	ws := types.Workspace{
		BuildDir: "/work/build",
		Repos: []types.Repo{
			{Name: "meta-custom", Path: t.TempDir()},
			{Name: "poky", Path: poky},
		},
	}
	env, err := NewBuildEnvAdapter(runner, host).BuildEnviron(context.Background(), ws)
	require.NoError(t, err)

	require.Len(t, runner.specs, 1)
	spec := runner.specs[0]
	assert.Equal(t, poky, spec.Dir)
	assert.Equal(t, []string{"bash", "-c", captureEnvScript, "oe-init-build-env", "/work/build"}, spec.Args)
	assert.Equal(t, map[string]string{"PATH": "/bin:/usr/bin"}, spec.Env)
	assert.True(t, spec.Fail)

	assert.Equal(t, "/poky/scripts:/bin:/usr/bin", env["PATH"])
	assert.Equal(t, "MACHINE DISTRO SSTATE_DIR DL_DIR TMPDIR", env["BB_ENV_EXTRAWHITE"])
	assert.Equal(t, "/cache/sstate", env["SSTATE_DIR"])
	assert.Equal(t, "xterm", env["TERM"])
	assert.Equal(t, "first line", env["MULTI"])
	assert.NotContains(t, env, "HOME")
}

func TestBuildEnvAdapterIsarScript(t *testing.T) {
	isar := t.TempDir()
	writeFile(t, isar, "isar-init-build-env", "")
	runner := &recordingRunner{}

	_, err := NewBuildEnvAdapter(runner, mapHost{}).BuildEnviron(context.Background(), types.Workspace{
		BuildDir: filepath.Join(isar, "build"),
		Repos:    []types.Repo{{Name: "isar", Path: isar}},
	})
	require.NoError(t, err)
	assert.Equal(t, "isar-init-build-env", runner.specs[0].Args[3])
}

func TestBuildEnvAdapterNoInitScript(t *testing.T) {
	_, err := NewBuildEnvAdapter(&recordingRunner{}, mapHost{}).BuildEnviron(context.Background(), types.Workspace{
		Repos: []types.Repo{{Name: "meta", Path: t.TempDir()}},
	})
	require.Error(t, err)
}
