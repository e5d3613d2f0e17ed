package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"kas-container/internal/adapters"
	"kas-container/internal/core"
	"kas-container/internal/policies"
	"kas-container/internal/ports"
	"kas-container/internal/types"
)

// Publish pushes an assembled image according to the recipe's publish
// policy and the CI context. It reads the image.intent left by Assemble.
func (s Service) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	intent, err := s.OutputReader.ReadImageIntent(filepath.Join(outputDir, adapters.ImageIntentName))
	if err != nil {
		return PublishResult{}, err
	}
	recipePath, _, err := s.locateRecipe(req.RecipePath, req.SourceDir)
	if err != nil {
		return PublishResult{}, err
	}
	recipe, err := s.loadRecipe(ctx, recipePath)
	if err != nil {
		return PublishResult{}, err
	}
	return s.publish(ctx, req, recipe, intent)
}

func (s Service) publish(ctx context.Context, req PublishRequest, recipe types.ImageRecipe, intent types.ImageIntent) (PublishResult, error) {
	logger := log.Ctx(ctx)
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	ci, err := s.ciContext(req)
	if err != nil {
		return PublishResult{}, err
	}
	policy, err := policies.NewBranchPolicy(recipe.Publish)
	if err != nil {
		return PublishResult{}, err
	}
	plan, err := core.PlanPublish(ctx, policy, intent.Repository, ci, intent.Version)
	if err != nil {
		return PublishResult{}, err
	}
	result := PublishResult{Plan: plan, CI: ci}
	if !plan.Publish {
		logger.Info().Str("branch", ci.Branch).Msg(plan.Reason + ", skipping push")
		return result, s.Outputs(outputDir).WritePublishReport(plan, nil)
	}
	if req.DryRun {
		logger.Info().Strs("refs", plan.Refs).Msg("dry run, not pushing")
		planned := make([]types.PushedRef, 0, len(plan.Refs))
		for _, ref := range plan.Refs {
			planned = append(planned, types.PushedRef{Ref: ref})
		}
		return result, s.Outputs(outputDir).WritePublishReport(plan, planned)
	}
	if !ci.HasCredentials() {
		return PublishResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("registry credentials are required to publish; set " +
				adapters.EnvDockerUsername + " and " + adapters.EnvDockerPassword)
	}
	if s.Registry == nil {
		return PublishResult{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no docker daemon configured")
	}
	server, err := core.RegistryServer(intent.Repository)
	if err != nil {
		return PublishResult{}, err
	}
	creds := ports.RegistryCredentials{
		Username:      ci.Username,
		Password:      ci.Password,
		ServerAddress: server,
	}
	if err := s.Registry.Login(ctx, creds); err != nil {
		return PublishResult{}, err
	}

	source := intent.LocalRef
	if source == "" {
		source = intent.ImageID
	}
	for _, ref := range plan.Refs {
		if err := s.Registry.Tag(ctx, source, ref); err != nil {
			return PublishResult{}, err
		}
		digest, err := s.Registry.Push(ctx, ref, creds)
		if err != nil {
			return PublishResult{}, err
		}
		logger.Info().Str("ref", ref).Str("digest", digest).Msg("pushed")
		result.Pushed = append(result.Pushed, types.PushedRef{Ref: ref, Digest: digest})
	}
	if err := s.Outputs(outputDir).WritePublishReport(plan, result.Pushed); err != nil {
		return PublishResult{}, err
	}
	return result, nil
}

// ciContext asks the CI environment and lets explicit request values win.
// An explicit tag means the build runs for that tag.
func (s Service) ciContext(req PublishRequest) (types.CIContext, error) {
	var ci types.CIContext
	if s.CI != nil {
		dir := strings.TrimSpace(req.SourceDir)
		if dir == "" {
			dir = "."
		}
		detected, err := s.CI.Detect(dir)
		if err != nil {
			return types.CIContext{}, err
		}
		ci = detected
	}
	if branch := strings.TrimSpace(req.Branch); branch != "" {
		ci.Branch = branch
	}
	if tag := strings.TrimSpace(req.Tag); tag != "" {
		ci.Tag = tag
		ci.ExactTag = true
	}
	if req.Username != "" {
		ci.Username = req.Username
	}
	if req.Password != "" {
		ci.Password = req.Password
	}
	return ci, nil
}
