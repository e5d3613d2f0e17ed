package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"kas-container/internal/types"
)

// Pipeline assembles the image and then publishes it. A failed assemble
// never reaches the publish step.
func (s Service) Pipeline(ctx context.Context, req PipelineRequest) (PipelineResult, error) {
	assembled, err := s.Assemble(ctx, req.Assemble)
	if err != nil {
		return PipelineResult{}, err
	}
	publishReq := req.Publish
	if publishReq.OutputDir == "" {
		publishReq.OutputDir = req.Assemble.OutputDir
	}
	if publishReq.SourceDir == "" {
		publishReq.SourceDir = assembled.ContextDir
	}
	intent := types.ImageIntent{
		Repository: assembled.Recipe.Image.Repository,
		ImageID:    assembled.ImageID,
		LocalRef:   assembled.LocalRef,
		Version:    assembled.Version,
	}
	published, err := s.publish(ctx, publishReq, assembled.Recipe, intent)
	if err != nil {
		return PipelineResult{}, err
	}
	log.Ctx(ctx).Info().
		Bool("published", published.Plan.Publish).
		Int("refs", len(published.Pushed)).
		Msg("pipeline finished")
	return PipelineResult{Assemble: assembled, Publish: published}, nil
}
