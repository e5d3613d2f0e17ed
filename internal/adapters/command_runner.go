package adapters

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"kas-container/internal/ports"
	"kas-container/internal/shared"
)

// ExecCommandRunner runs host processes. The child sees only spec.Env.
type ExecCommandRunner struct{}

func NewExecCommandRunner() ExecCommandRunner {
	return ExecCommandRunner{}
}

func (r ExecCommandRunner) Run(ctx context.Context, spec ports.CommandSpec) (ports.CommandResult, error) {
	if len(spec.Args) == 0 {
		return ports.CommandResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("command is empty")
	}
	cmdline := shellquote.Join(spec.Args...)
	logger := log.Ctx(ctx)
	logger.Info().Msgf("%s$ %s", spec.Dir, cmdline)

	cmd := exec.CommandContext(ctx, spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = commandEnv(spec.Env)

	if spec.Stdin {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err := cmd.Run()
		return finishCommand(spec, cmdline, ports.CommandResult{ExitCode: exitCode(err)}, err)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return ports.CommandResult{}, errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("failed to open stdout").WithCause(err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return ports.CommandResult{}, errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("failed to open stderr").WithCause(err)
	}
	if err := cmd.Start(); err != nil {
		return ports.CommandResult{ExitCode: -1}, finishStartError(cmdline, err)
	}

	var stdout, stderr strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		collectLines(stdoutPipe, &stdout, func(line string) {
			if spec.Live {
				logger.Info().Msg(line)
			}
		})
	}()
	go func() {
		defer wg.Done()
		collectLines(stderrPipe, &stderr, func(line string) {
			if spec.Live {
				logger.Error().Msg(line)
			}
		})
	}()
	wg.Wait()
	err = cmd.Wait()

	result := ports.CommandResult{
		ExitCode: exitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	return finishCommand(spec, cmdline, result, err)
}

func collectLines(reader io.Reader, sink *strings.Builder, emit func(string)) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		sink.WriteString(line)
		sink.WriteString("\n")
		emit(strings.TrimSpace(line))
	}
}

func finishCommand(spec ports.CommandSpec, cmdline string, result ports.CommandResult, err error) (ports.CommandResult, error) {
	if err == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return result, finishStartError(cmdline, err)
	}
	if !spec.Fail {
		return result, nil
	}
	return result, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("command \"%s$ %s\" failed", spec.Dir, cmdline)).
		WithCause(shared.CommandError([]byte(result.Stderr), err))
}

func finishStartError(cmdline string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("failed to start " + cmdline).
		WithCause(err)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func commandEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out = append(out, key+"="+env[key])
	}
	// Never nil: a nil Env inherits the parent environment.
	return out
}

var _ ports.CommandRunnerPort = ExecCommandRunner{}
