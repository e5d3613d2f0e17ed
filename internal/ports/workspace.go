package ports

import (
	"context"

	"kas-container/internal/types"
)

type CommandSpec struct {
	Args  []string
	Dir   string
	Env   map[string]string
	Live  bool
	Fail  bool
	Stdin bool
}

type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandRunnerPort runs host processes for the kas workspace.
type CommandRunnerPort interface {
	Run(ctx context.Context, spec CommandSpec) (CommandResult, error)
}

// HostPort exposes facts about the machine kas runs on.
type HostPort interface {
	DistroID() string
	Getenv(key string) string
	LookupEnv(key string) (string, bool)
}

// BuildEnvPort prepares the BitBake build environment for a workspace.
type BuildEnvPort interface {
	BuildEnviron(ctx context.Context, ws types.Workspace) (map[string]string, error)
}

// ConfWriterPort writes the generated BitBake configuration files.
type ConfWriterPort interface {
	WriteConf(ws types.Workspace) error
}

// RecipeFinderPort discovers recipe files in a directory.
type RecipeFinderPort interface {
	FindRecipe(root string) (string, error)
}
