package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kas-container/internal/ports"
)

// DockerAPI is the part of the docker client the adapter needs.
type DockerAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options build.ImageBuildOptions) (build.ImageBuildResponse, error)
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, ref string, options image.PushOptions) (io.ReadCloser, error)
	RegistryLogin(ctx context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

type DockerImageAdapter struct {
	api      DockerAPI
	platform *ocispec.Platform
}

// NewDockerImageAdapter connects to the daemon from the environment
// (DOCKER_HOST and friends). platform may be empty.
func NewDockerImageAdapter(platform string) (*DockerImageAdapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to create docker client").
			WithCause(err)
	}
	return NewDockerImageAdapterWithAPI(cli, platform)
}

func NewDockerImageAdapterWithAPI(api DockerAPI, platform string) (*DockerImageAdapter, error) {
	parsed, err := ParsePlatform(platform)
	if err != nil {
		return nil, err
	}
	return &DockerImageAdapter{api: api, platform: parsed}, nil
}

// ParsePlatform parses os/arch[/variant]. An empty string means the
// daemon default.
func ParsePlatform(value string) (*ocispec.Platform, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid platform %q, expected os/arch[/variant]", value))
	}
	platform := &ocispec.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		platform.Variant = parts[2]
	}
	return platform, nil
}

func (a *DockerImageAdapter) platformString() string {
	if a.platform == nil {
		return ""
	}
	parts := []string{a.platform.OS, a.platform.Architecture}
	if a.platform.Variant != "" {
		parts = append(parts, a.platform.Variant)
	}
	return strings.Join(parts, "/")
}

// Build sends the context to the daemon and streams its progress to the
// log. The first error message in the stream fails the build.
func (a *DockerImageAdapter) Build(ctx context.Context, buildContext io.Reader, opts ports.ImageBuildOptions) (string, error) {
	resp, err := a.api.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Tags:        opts.Tags,
		Dockerfile:  opts.Dockerfile,
		NoCache:     opts.NoCache,
		PullParent:  opts.Pull,
		Remove:      true,
		ForceRemove: true,
		Labels:      opts.Labels,
		Platform:    a.platformString(),
	})
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to start image build").
			WithCause(err)
	}
	defer resp.Body.Close()

	out := newLineLogWriter(*log.Ctx(ctx), zerolog.InfoLevel, "build")
	defer out.Flush()
	var imageID string
	err = jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false, func(msg jsonmessage.JSONMessage) {
		var aux struct {
			ID string `json:"ID"`
		}
		if msg.Aux != nil && json.Unmarshal(*msg.Aux, &aux) == nil && aux.ID != "" {
			imageID = aux.ID
		}
	})
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("image build failed").
			WithCause(err)
	}
	if imageID == "" && len(opts.Tags) > 0 {
		imageID = opts.Tags[0]
	}
	if imageID == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("image build did not report an image id")
	}
	return imageID, nil
}

// Run starts a throwaway container with cmd as its entrypoint, waits for
// it and returns its exit code and output.
func (a *DockerImageAdapter) Run(ctx context.Context, imageRef string, cmd []string) (ports.RunResult, error) {
	if len(cmd) == 0 {
		return ports.RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("container command is empty")
	}
	created, err := a.api.ContainerCreate(ctx, &container.Config{
		Image:      imageRef,
		Entrypoint: cmd[:1],
		Cmd:        cmd[1:],
	}, &container.HostConfig{}, nil, a.platform, "")
	if err != nil {
		return ports.RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create container").
			WithCause(err)
	}
	defer func() {
		if err := a.api.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true}); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("container", created.ID).Msg("failed to remove container")
		}
	}()

	if err := a.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return ports.RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to start container").
			WithCause(err)
	}
	statusCh, errCh := a.api.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		if err != nil {
			return ports.RunResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to wait for container").
				WithCause(err)
		}
	case status := <-statusCh:
		if status.Error != nil && status.Error.Message != "" {
			return ports.RunResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("container wait failed: " + status.Error.Message)
		}
		exitCode = status.StatusCode
	}

	logs, err := a.api.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return ports.RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read container logs").
			WithCause(err)
	}
	defer logs.Close()
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return ports.RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to demultiplex container logs").
			WithCause(err)
	}
	return ports.RunResult{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (a *DockerImageAdapter) Login(ctx context.Context, creds ports.RegistryCredentials) error {
	_, err := a.api.RegistryLogin(ctx, authConfig(creds))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("registry login failed for " + creds.ServerAddress).
			WithCause(err)
	}
	log.Ctx(ctx).Info().Str("registry", creds.ServerAddress).Str("user", creds.Username).Msg("registry login succeeded")
	return nil
}

func (a *DockerImageAdapter) Tag(ctx context.Context, source string, target string) error {
	if err := a.api.ImageTag(ctx, source, target); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to tag %s as %s", source, target)).
			WithCause(err)
	}
	return nil
}

// Push uploads ref and returns the manifest digest the registry reported.
func (a *DockerImageAdapter) Push(ctx context.Context, ref string, creds ports.RegistryCredentials) (string, error) {
	encoded, err := registry.EncodeAuthConfig(authConfig(creds))
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode registry credentials").
			WithCause(err)
	}
	body, err := a.api.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: encoded})
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to push " + ref).
			WithCause(err)
	}
	defer body.Close()

	out := newLineLogWriter(*log.Ctx(ctx), zerolog.DebugLevel, "push")
	defer out.Flush()
	var digest string
	err = jsonmessage.DisplayJSONMessagesStream(body, out, 0, false, func(msg jsonmessage.JSONMessage) {
		var aux struct {
			Digest string `json:"Digest"`
		}
		if msg.Aux != nil && json.Unmarshal(*msg.Aux, &aux) == nil && aux.Digest != "" {
			digest = aux.Digest
		}
	})
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("push failed for " + ref).
			WithCause(err)
	}
	return digest, nil
}

func authConfig(creds ports.RegistryCredentials) registry.AuthConfig {
	return registry.AuthConfig{
		Username:      creds.Username,
		Password:      creds.Password,
		ServerAddress: creds.ServerAddress,
	}
}

var (
	_ ports.ImageBuilderPort = (*DockerImageAdapter)(nil)
	_ ports.RegistryPort     = (*DockerImageAdapter)(nil)
)
