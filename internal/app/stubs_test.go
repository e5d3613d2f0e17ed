package app

import (
	"context"
	"io"
	"time"

	"kas-container/internal/adapters"
	"kas-container/internal/core"
	"kas-container/internal/ports"
	"kas-container/internal/types"
)

func sampleRecipe() types.ImageRecipe {
	return types.ImageRecipe{
		APIVersion: "v1",
		Kind:       types.RecipeKindImage,
		Metadata:   types.Metadata{Name: "kas"},
		Image: types.ImageSpec{
			Repository: "kasproject/kas",
			Base:       "debian:bookworm-slim",
			Locale:     "en_US.UTF-8",
			Packages:   []string{"git", "python3-pip"},
			Helpers: []types.Helper{{
				Name: "gosu",
				URL:  "https://github.com/tianon/gosu/releases/download/1.17/gosu-amd64",
				Dest: "/usr/bin/gosu",
			}},
			Copy:       []types.CopyStep{{Src: ".", Dest: "/kas"}},
			Install:    []string{"pip3 install /kas"},
			Entrypoint: []string{"/kas/docker-entrypoint"},
		},
		Publish: types.PublishPolicy{
			Version: types.VersionSource{Kind: types.VersionSourceFile, File: "kas/__version__.py"},
		},
	}
}

type stubRecipes struct {
	recipe types.ImageRecipe
	err    error
}

func (s stubRecipes) LoadRecipe(string) (types.ImageRecipe, error) { return s.recipe, s.err }

type stubFinder struct {
	path string
	err  error
}

func (s stubFinder) FindRecipe(string) (string, error) { return s.path, s.err }

type fakeImages struct {
	builds   []ports.ImageBuildOptions
	contexts [][]byte
	runs     [][]string
	exitCode map[string]int64
	imageID  string
	buildErr error
}

func (f *fakeImages) Build(_ context.Context, buildContext io.Reader, opts ports.ImageBuildOptions) (string, error) {
	data, err := io.ReadAll(buildContext)
	if err != nil {
		return "", err
	}
	f.contexts = append(f.contexts, data)
	f.builds = append(f.builds, opts)
	if f.buildErr != nil {
		return "", f.buildErr
	}
	return f.imageID, nil
}

func (f *fakeImages) Run(_ context.Context, _ string, cmd []string) (ports.RunResult, error) {
	f.runs = append(f.runs, cmd)
	return ports.RunResult{ExitCode: f.exitCode[cmd[len(cmd)-1]]}, nil
}

type fakeRegistry struct {
	logins   []ports.RegistryCredentials
	tags     [][2]string
	pushes   []string
	loginErr error
}

func (f *fakeRegistry) Login(_ context.Context, creds ports.RegistryCredentials) error {
	f.logins = append(f.logins, creds)
	return f.loginErr
}

func (f *fakeRegistry) Tag(_ context.Context, source string, target string) error {
	f.tags = append(f.tags, [2]string{source, target})
	return nil
}

func (f *fakeRegistry) Push(_ context.Context, ref string, _ ports.RegistryCredentials) (string, error) {
	f.pushes = append(f.pushes, ref)
	return "sha256:feed", nil
}

type stubVersions struct {
	version string
	sources []types.VersionSource
}

func (s *stubVersions) ReadVersion(_ context.Context, source types.VersionSource, _ string) (string, error) {
	s.sources = append(s.sources, source)
	return s.version, nil
}

type stubCI struct {
	ci  types.CIContext
	err error
}

func (s stubCI) Detect(string) (types.CIContext, error) { return s.ci, s.err }

type mapHost map[string]string

func (h mapHost) DistroID() string { return h["ID"] }

func (h mapHost) Getenv(key string) string { return h[key] }

func (h mapHost) LookupEnv(key string) (string, bool) {
	value, ok := h[key]
	return value, ok
}

var fixedTime = time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)

// newImageService wires real local adapters around fake docker ports.
func newImageService(recipe types.ImageRecipe, images *fakeImages, registry *fakeRegistry, ci types.CIContext) Service {
	return Service{
		Recipes:  stubRecipes{recipe: recipe},
		Finder:   stubFinder{path: "kas.recipe.yaml"},
		Compiler: core.NewRecipeCompiler(),
		Renderer: adapters.NewDockerfileRendererAdapter(),
		Context:  adapters.NewBuildContextAdapter(),
		Images:   images,
		Registry: registry,
		Versions: &stubVersions{version: "4.5"},
		Outputs: func(dir string) ports.OutputPort {
			return adapters.NewOutputFileAdapter(dir)
		},
		OutputReader: adapters.NewOutputReaderAdapter(),
		CI:           stubCI{ci: ci},
		Clock:        func() time.Time { return fixedTime },
	}
}
