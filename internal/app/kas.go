package app

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"kas-container/internal/core"
	"kas-container/internal/ports"
	"kas-container/internal/types"
)

const defaultTask = "build"

// KasCheckout loads a kas config, brings its repositories to the
// configured revisions and prepares the build directory.
func (s Service) KasCheckout(ctx context.Context, req KasRequest) (KasResult, error) {
	ws, env, err := s.prepareWorkspace(ctx, req)
	if err != nil {
		return KasResult{}, err
	}
	return KasResult{Workspace: ws, Env: env}, nil
}

// KasBuild checks the workspace out and runs bitbake for the target.
func (s Service) KasBuild(ctx context.Context, req KasRequest) (KasResult, error) {
	ws, env, err := s.prepareWorkspace(ctx, req)
	if err != nil {
		return KasResult{}, err
	}
	target := strings.TrimSpace(req.Target)
	if target == "" {
		target = ws.Config.Target
	}
	args := []string{"bitbake", "-k", target}
	if task := strings.TrimSpace(req.Task); task != "" && task != defaultTask {
		args = append(args, "-c", task)
	}
	result, err := s.Runner.Run(ctx, ports.CommandSpec{
		Args: args,
		Dir:  ws.BuildDir,
		Env:  env,
		Live: true,
		Fail: true,
	})
	if err != nil {
		return KasResult{}, err
	}
	return KasResult{Workspace: ws, Env: env, ExitCode: result.ExitCode}, nil
}

// KasShell checks the workspace out and runs an interactive shell, or
// the given command, in the build directory.
func (s Service) KasShell(ctx context.Context, req KasRequest) (KasResult, error) {
	ws, env, err := s.prepareWorkspace(ctx, req)
	if err != nil {
		return KasResult{}, err
	}
	shell := env["SHELL"]
	if shell == "" {
		shell = "/bin/sh"
	}
	args := []string{shell}
	if command := strings.TrimSpace(req.Command); command != "" {
		args = append(args, "-c", command)
	}
	result, err := s.Runner.Run(ctx, ports.CommandSpec{
		Args:  args,
		Dir:   ws.BuildDir,
		Env:   env,
		Stdin: true,
	})
	if err != nil {
		return KasResult{}, err
	}
	return KasResult{Workspace: ws, Env: env, ExitCode: result.ExitCode}, nil
}

func (s Service) prepareWorkspace(ctx context.Context, req KasRequest) (types.Workspace, map[string]string, error) {
	configPath := strings.TrimSpace(req.ConfigPath)
	if configPath == "" {
		return types.Workspace{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("kas config file is required")
	}
	for _, step := range req.Skip {
		if !slices.Contains(kasSteps, step) {
			return types.Workspace{}, nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("unknown step %q, expected one of %s", step, strings.Join(kasSteps, ", ")))
		}
	}
	cfg, err := s.KasConfig.LoadKasConfig(configPath)
	if err != nil {
		return types.Workspace{}, nil, err
	}
	cwd := req.Cwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return types.Workspace{}, nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read working directory").
				WithCause(err)
		}
	}
	ws, err := core.NewWorkspaceResolver(s.Host, s.Repos).Resolve(ctx, cfg, cwd)
	if err != nil {
		return types.Workspace{}, nil, err
	}
	logger := log.Ctx(ctx)
	skip := func(step string) bool {
		if slices.Contains(req.Skip, step) {
			logger.Info().Str("step", step).Msg("skipping")
			return true
		}
		return false
	}

	if !skip(StepReposFetch) {
		for _, repo := range ws.Repos {
			if err := s.Repos.Fetch(ctx, repo, ws.RefDir); err != nil {
				return types.Workspace{}, nil, err
			}
		}
	}
	if !skip(StepReposCheckout) {
		for _, repo := range ws.Repos {
			if err := s.Repos.Checkout(ctx, repo); err != nil {
				return types.Workspace{}, nil, err
			}
		}
	}
	var buildEnv map[string]string
	if !skip(StepSetupEnviron) {
		if buildEnv, err = s.BuildEnv.BuildEnviron(ctx, ws); err != nil {
			return types.Workspace{}, nil, err
		}
	}
	if !skip(StepWriteConf) {
		if err := s.ConfWriter.WriteConf(ws); err != nil {
			return types.Workspace{}, nil, err
		}
	}
	return ws, commandEnviron(ws, buildEnv), nil
}

var kasSteps = []string{StepReposFetch, StepReposCheckout, StepSetupEnviron, StepWriteConf}

// commandEnviron layers the locale environment and proxy settings over
// the captured build environment.
func commandEnviron(ws types.Workspace, buildEnv map[string]string) map[string]string {
	env := make(map[string]string, len(buildEnv)+len(ws.Environ)+3)
	for key, value := range buildEnv {
		env[key] = value
	}
	for key, value := range ws.Environ {
		env[key] = value
	}
	proxy := map[string]string{
		"http_proxy":  ws.Proxy.HTTPProxy,
		"https_proxy": ws.Proxy.HTTPSProxy,
		"no_proxy":    ws.Proxy.NoProxy,
	}
	for key, value := range proxy {
		if value != "" {
			env[key] = value
		}
	}
	return env
}
