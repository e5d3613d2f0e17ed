package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"kas-container/internal/core"
	"kas-container/internal/ports"
	"kas-container/internal/types"
)

const (
	// BuildDockerfileName is where the generated Dockerfile is injected
	// into the build context, next to any Dockerfile the source carries.
	BuildDockerfileName = ".kas-container.Dockerfile"
	DefaultLocalTag     = "build"
	DefaultOutputDir    = "out"
)

// Assemble builds the image described by the recipe. Every step must
// succeed; the first failure aborts the run and nothing is retried.
func (s Service) Assemble(ctx context.Context, req AssembleRequest) (AssembleResult, error) {
	if s.Images == nil {
		return AssembleResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no docker daemon configured")
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	if err := s.Outputs(outputDir).RemoveImageIntent(); err != nil {
		return AssembleResult{}, err
	}
	recipePath, contextDir, err := s.locateRecipe(req.RecipePath, req.ContextDir)
	if err != nil {
		return AssembleResult{}, err
	}
	logger := log.Ctx(ctx).With().Str("recipe", recipePath).Logger()
	ctx = logger.WithContext(ctx)

	recipe, err := s.loadRecipe(ctx, recipePath)
	if err != nil {
		return AssembleResult{}, err
	}
	plan, err := s.Compiler.PlanDockerfile(ctx, recipe)
	if err != nil {
		return AssembleResult{}, err
	}
	dockerfile, err := s.Renderer.Render(plan)
	if err != nil {
		return AssembleResult{}, err
	}
	dockerfilePath, err := s.Outputs(outputDir).WriteDockerfile(dockerfile)
	if err != nil {
		return AssembleResult{}, err
	}

	repository, err := core.NormalizeRepository(recipe.Image.Repository)
	if err != nil {
		return AssembleResult{}, err
	}
	tag := strings.TrimSpace(req.Tag)
	if tag == "" {
		tag = DefaultLocalTag
	}
	localRef, err := core.ComposeRef(repository, tag)
	if err != nil {
		return AssembleResult{}, err
	}

	buildContext, err := s.Context.Create(contextDir, BuildDockerfileName, []byte(dockerfile))
	if err != nil {
		return AssembleResult{}, err
	}
	defer buildContext.Close()
	logger.Info().Str("context", contextDir).Str("ref", localRef).Msg("building image")
	imageID, err := s.Images.Build(ctx, buildContext, ports.ImageBuildOptions{
		Tags:       []string{localRef},
		Dockerfile: BuildDockerfileName,
		NoCache:    req.NoCache,
		Pull:       req.Pull,
		Labels: map[string]string{
			"org.opencontainers.image.title": recipe.Metadata.Name,
		},
	})
	if err != nil {
		return AssembleResult{}, err
	}
	logger.Info().Str("image_id", imageID).Msg("image built")

	if req.Verify {
		if err := s.verifyHelpers(ctx, imageID, recipe.Image.Helpers); err != nil {
			return AssembleResult{}, err
		}
	}

	version := ""
	if recipe.Publish.Version.Kind != "" {
		version, err = s.Versions.ReadVersion(ctx, versionSourceIn(recipe.Publish.Version, contextDir), imageID)
		if err != nil {
			return AssembleResult{}, err
		}
		logger.Info().Str("version", version).Msg("tool version")
	}

	intent := types.ImageIntent{
		Repository: repository,
		ImageID:    imageID,
		LocalRef:   localRef,
		Version:    version,
		CreatedAt:  s.now(),
	}
	if err := s.Outputs(outputDir).WriteImageIntent(intent); err != nil {
		return AssembleResult{}, err
	}
	return AssembleResult{
		Recipe:         recipe,
		RecipePath:     recipePath,
		ContextDir:     contextDir,
		ImageID:        imageID,
		LocalRef:       localRef,
		Version:        version,
		Dockerfile:     dockerfile,
		DockerfilePath: dockerfilePath,
	}, nil
}

// Render validates the recipe and returns the Dockerfile it produces
// without touching the docker daemon.
func (s Service) Render(ctx context.Context, recipePath string) (string, error) {
	path, _, err := s.locateRecipe(recipePath, "")
	if err != nil {
		return "", err
	}
	recipe, err := s.loadRecipe(ctx, path)
	if err != nil {
		return "", err
	}
	plan, err := s.Compiler.PlanDockerfile(ctx, recipe)
	if err != nil {
		return "", err
	}
	return s.Renderer.Render(plan)
}

func (s Service) loadRecipe(ctx context.Context, path string) (types.ImageRecipe, error) {
	recipe, err := s.Recipes.LoadRecipe(path)
	if err != nil {
		return types.ImageRecipe{}, err
	}
	if err := s.Compiler.ValidateRecipe(ctx, recipe); err != nil {
		return types.ImageRecipe{}, err
	}
	return recipe, nil
}

// locateRecipe finds the recipe when no path is given and defaults the
// build context to the recipe's directory.
func (s Service) locateRecipe(recipePath string, contextDir string) (string, string, error) {
	recipePath = strings.TrimSpace(recipePath)
	contextDir = strings.TrimSpace(contextDir)
	if recipePath == "" {
		root := contextDir
		if root == "" {
			root = "."
		}
		found, err := s.Finder.FindRecipe(root)
		if err != nil {
			return "", "", err
		}
		recipePath = found
	}
	if contextDir == "" {
		contextDir = filepath.Dir(recipePath)
	}
	return recipePath, contextDir, nil
}

// verifyHelpers checks inside the new image that every helper binary is
// executable.
func (s Service) verifyHelpers(ctx context.Context, imageID string, helpers []types.Helper) error {
	for _, helper := range helpers {
		result, err := s.Images.Run(ctx, imageID, []string{"test", "-x", helper.Dest})
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("helper %s is not executable at %s", helper.Name, helper.Dest))
		}
		log.Ctx(ctx).Debug().Str("helper", helper.Name).Msg("helper verified")
	}
	return nil
}

func versionSourceIn(source types.VersionSource, contextDir string) types.VersionSource {
	if source.Kind == types.VersionSourceFile && source.File != "" && !filepath.IsAbs(source.File) {
		source.File = filepath.Join(contextDir, source.File)
	}
	return source
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}
