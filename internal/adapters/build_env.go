package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

var initScripts = []string{"oe-init-build-env", "isar-init-build-env"}

// Variables bitbake is told to accept from the environment.
var bitbakeWhitelist = []string{"SSTATE_DIR", "DL_DIR", "TMPDIR"}

// Host variables copied into the build environment when set.
var hostPassthrough = append(append([]string(nil), bitbakeWhitelist...), "SSH_AGENT_PID", "SSH_AUTH_SOCK", "SHELL", "TERM")

const captureEnvScript = `source "./$0" "$1" > /dev/null 2>&1
env`

// BuildEnvAdapter sources the OE or Isar init script in a clean shell and
// captures the environment it leaves behind. Sourcing the script also
// creates the build directory and its conf dir.
type BuildEnvAdapter struct {
	Runner ports.CommandRunnerPort
	Host   ports.HostPort
}

func NewBuildEnvAdapter(runner ports.CommandRunnerPort, host ports.HostPort) BuildEnvAdapter {
	return BuildEnvAdapter{Runner: runner, Host: host}
}

func (a BuildEnvAdapter) BuildEnviron(ctx context.Context, ws types.Workspace) (map[string]string, error) {
	initDir, script, ok := findInitScript(ws.Repos)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("did not find any init-build-env script")
	}
	log.Ctx(ctx).Debug().Str("script", filepath.Join(initDir, script)).Msg("capturing build environment")
	result, err := a.Runner.Run(ctx, ports.CommandSpec{
		Args: []string{"bash", "-c", captureEnvScript, script, ws.BuildDir},
		Dir:  initDir,
		Env:  map[string]string{"PATH": "/bin:/usr/bin"},
		Fail: true,
	})
	if err != nil {
		return nil, err
	}
	env := parseEnvOutput(result.Stdout)
	if current, ok := env["BB_ENV_EXTRAWHITE"]; ok {
		env["BB_ENV_EXTRAWHITE"] = strings.TrimSpace(current + " " + strings.Join(bitbakeWhitelist, " "))
	}
	for _, key := range hostPassthrough {
		if value, ok := a.Host.LookupEnv(key); ok {
			env[key] = value
		}
	}
	return env, nil
}

func findInitScript(repos []types.Repo) (string, string, bool) {
	for _, repo := range repos {
		for _, script := range initScripts {
			if info, err := os.Stat(filepath.Join(repo.Path, script)); err == nil && !info.IsDir() {
				return repo.Path, script, true
			}
		}
	}
	return "", "", false
}

// parseEnvOutput reads `env` output. Continuation lines of multi-line
// values carry no '=' and are skipped.
func parseEnvOutput(output string) map[string]string {
	env := map[string]string{}
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			continue
		}
		env[key] = value
	}
	return env
}

var _ ports.BuildEnvPort = BuildEnvAdapter{}
