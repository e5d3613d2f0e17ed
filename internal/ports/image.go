package ports

import (
	"context"
	"io"

	"kas-container/internal/types"
)

// DockerfileRenderer turns an instruction plan into Dockerfile text.
type DockerfileRenderer interface {
	Render(plan types.DockerfilePlan) (string, error)
}

// BuildContextPort packs a directory into a docker build context with the
// generated Dockerfile injected under dockerfileName.
type BuildContextPort interface {
	Create(dir string, dockerfileName string, dockerfile []byte) (io.ReadCloser, error)
}

type ImageBuildOptions struct {
	Tags       []string
	Dockerfile string
	NoCache    bool
	Pull       bool
	Labels     map[string]string
}

type RunResult struct {
	ExitCode int64
	Stdout   string
	Stderr   string
}

// ImageBuilderPort builds images and runs throwaway containers from them.
type ImageBuilderPort interface {
	Build(ctx context.Context, buildContext io.Reader, opts ImageBuildOptions) (string, error)
	Run(ctx context.Context, image string, cmd []string) (RunResult, error)
}

type RegistryCredentials struct {
	Username      string
	Password      string
	ServerAddress string
}

// RegistryPort logs in, tags and pushes images.
type RegistryPort interface {
	Login(ctx context.Context, creds RegistryCredentials) error
	Tag(ctx context.Context, source string, target string) error
	Push(ctx context.Context, ref string, creds RegistryCredentials) (string, error)
}
