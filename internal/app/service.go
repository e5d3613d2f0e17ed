package app

import (
	"time"

	"kas-container/internal/adapters"
	"kas-container/internal/core"
	"kas-container/internal/ports"
)

type Service struct {
	Recipes      ports.RecipePort
	Finder       ports.RecipeFinderPort
	Compiler     core.RecipeCompiler
	Renderer     ports.DockerfileRenderer
	Context      ports.BuildContextPort
	Images       ports.ImageBuilderPort
	Registry     ports.RegistryPort
	Versions     ports.VersionSourcePort
	Outputs      func(dir string) ports.OutputPort
	OutputReader ports.OutputReaderPort
	CI           ports.CIEnvPort
	Source       ports.SourcePort
	KasConfig    ports.KasConfigPort
	Repos        ports.RepoPort
	Host         ports.HostPort
	Runner       ports.CommandRunnerPort
	BuildEnv     ports.BuildEnvPort
	ConfWriter   ports.ConfWriterPort
	Clock        func() time.Time
}

// NewService wires every adapter that works without a docker daemon.
// Image commands additionally need WithDocker.
func NewService() Service {
	host := adapters.NewHostAdapter()
	git := adapters.NewGitRepoAdapter()
	runner := adapters.NewExecCommandRunner()
	return Service{
		Recipes:  adapters.NewRecipeFileAdapter(),
		Finder:   adapters.NewRecipeFinderAdapter(),
		Compiler: core.NewRecipeCompiler(),
		Renderer: adapters.NewDockerfileRendererAdapter(),
		Context:  adapters.NewBuildContextAdapter(),
		Versions: adapters.NewVersionSourceAdapter(nil, ""),
		Outputs: func(dir string) ports.OutputPort {
			return adapters.NewOutputFileAdapter(dir)
		},
		OutputReader: adapters.NewOutputReaderAdapter(),
		CI:           adapters.NewCIEnvAdapter(host, git),
		Source:       git,
		KasConfig:    adapters.NewKasConfigFileAdapter(),
		Repos:        git,
		Host:         host,
		Runner:       runner,
		BuildEnv:     adapters.NewBuildEnvAdapter(runner, host),
		ConfWriter:   adapters.NewConfWriterAdapter(),
		Clock:        time.Now,
	}
}

// WithDocker connects to the daemon from the environment and wires it
// as image builder and registry client. platform may be empty.
func (s Service) WithDocker(platform string) (Service, error) {
	docker, err := adapters.NewDockerImageAdapter(platform)
	if err != nil {
		return Service{}, err
	}
	s.Images = docker
	s.Registry = docker
	s.Versions = adapters.NewVersionSourceAdapter(docker, "")
	return s, nil
}
