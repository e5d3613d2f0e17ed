package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kas-container/internal/app"
)

type assembleOptions struct {
	Recipe     string
	ContextDir string
	OutputDir  string
	Tag        string
	Platform   string
	NoCache    bool
	Pull       bool
	Verify     bool
}

func newAssembleCommand() *cobra.Command {
	opts := assembleOptions{}
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Build the container image from a recipe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssemble(cmd.Context(), cmd, opts)
		},
	}
	addAssembleFlags(cmd, &opts)
	return cmd
}

func addAssembleFlags(cmd *cobra.Command, opts *assembleOptions) {
	cmd.Flags().StringVar(&opts.Recipe, "recipe", "", "Image recipe path (default: the single *.recipe.yaml under --context)")
	cmd.Flags().StringVar(&opts.ContextDir, "context", "", "Build context directory (default: the recipe's directory)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", app.DefaultOutputDir, "Output directory for Dockerfile and image.intent")
	cmd.Flags().StringVar(&opts.Tag, "tag", app.DefaultLocalTag, "Local tag for the built image")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "Target platform (os/arch[/variant])")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "Do not use the build cache")
	cmd.Flags().BoolVar(&opts.Pull, "pull", false, "Always pull the base image")
	cmd.Flags().BoolVar(&opts.Verify, "verify", true, "Check helper binaries are executable in the built image")
	_ = viper.BindPFlag("recipe", cmd.Flags().Lookup("recipe"))
	_ = viper.BindPFlag("context", cmd.Flags().Lookup("context"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("tag", cmd.Flags().Lookup("tag"))
	_ = viper.BindPFlag("platform", cmd.Flags().Lookup("platform"))
	_ = viper.BindPFlag("no_cache", cmd.Flags().Lookup("no-cache"))
	_ = viper.BindPFlag("pull", cmd.Flags().Lookup("pull"))
	_ = viper.BindPFlag("verify", cmd.Flags().Lookup("verify"))
}

func assembleRequest(cmd *cobra.Command, opts assembleOptions) app.AssembleRequest {
	return app.AssembleRequest{
		RecipePath: resolveString(cmd, opts.Recipe, "recipe", "recipe"),
		ContextDir: resolveString(cmd, opts.ContextDir, "context", "context"),
		OutputDir:  resolveString(cmd, opts.OutputDir, "output", "output"),
		Tag:        resolveString(cmd, opts.Tag, "tag", "tag"),
		NoCache:    resolveBool(cmd, opts.NoCache, "no_cache", "no-cache"),
		Pull:       resolveBool(cmd, opts.Pull, "pull", "pull"),
		Verify:     resolveBool(cmd, opts.Verify, "verify", "verify"),
	}
}

func runAssemble(ctx context.Context, cmd *cobra.Command, opts assembleOptions) error {
	service, err := newDockerService(resolveString(cmd, opts.Platform, "platform", "platform"))
	if err != nil {
		return err
	}
	result, err := service.Assemble(ctx, assembleRequest(cmd, opts))
	if err != nil {
		return err
	}
	fmt.Printf("assembled %s (%s)\n", result.LocalRef, result.ImageID)
	return nil
}
