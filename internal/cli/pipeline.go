package cli

import (
	"context"

	"github.com/spf13/cobra"

	"kas-container/internal/app"
)

type pipelineOptions struct {
	Assemble assembleOptions
	Publish  publishOptions
}

func newPipelineCommand() *cobra.Command {
	opts := pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Assemble the image, then publish it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), cmd, opts)
		},
	}
	addAssembleFlags(cmd, &opts.Assemble)
	addPublishFlags(cmd, &opts.Publish)
	return cmd
}

func pipelineRequest(cmd *cobra.Command, opts pipelineOptions) app.PipelineRequest {
	assemble := assembleRequest(cmd, opts.Assemble)
	publish := publishRequest(cmd, opts.Publish)
	publish.RecipePath = assemble.RecipePath
	publish.OutputDir = assemble.OutputDir
	return app.PipelineRequest{Assemble: assemble, Publish: publish}
}

func runPipeline(ctx context.Context, cmd *cobra.Command, opts pipelineOptions) error {
	service, err := newDockerService(resolveString(cmd, opts.Assemble.Platform, "platform", "platform"))
	if err != nil {
		return err
	}
	result, err := service.Pipeline(ctx, pipelineRequest(cmd, opts))
	if err != nil {
		return err
	}
	printPublishResult(result.Publish)
	return nil
}
