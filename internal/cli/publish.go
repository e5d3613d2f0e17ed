package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kas-container/internal/app"
)

type publishOptions struct {
	Recipe    string
	SourceDir string
	OutputDir string
	Branch    string
	Tag       string
	Username  string
	Password  string
	Platform  string
	DryRun    bool
}

func newPublishCommand() *cobra.Command {
	opts := publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Tag and push the assembled image when the CI context allows it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Recipe, "recipe", "", "Image recipe path (default: the single *.recipe.yaml under --source)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", app.DefaultOutputDir, "Output directory containing image.intent")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "Target platform (os/arch[/variant])")
	addPublishFlags(cmd, &opts)
	_ = viper.BindPFlag("recipe", cmd.Flags().Lookup("recipe"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("platform", cmd.Flags().Lookup("platform"))
	return cmd
}

// addPublishFlags registers the CI context flags shared by publish,
// pipeline and serve.
func addPublishFlags(cmd *cobra.Command, opts *publishOptions) {
	cmd.Flags().StringVar(&opts.SourceDir, "source", "", "Source checkout used to detect branch and tag (default: the build context)")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "Branch being built (default: from CI variables or git)")
	cmd.Flags().StringVar(&opts.Tag, "git-tag", "", "Tag the commit is built for; implies an exact tag match")
	cmd.Flags().StringVar(&opts.Username, "username", "", "Registry username (default: $DOCKER_USERNAME)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Registry password (default: $DOCKER_PASSWORD)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Plan the publish without logging in or pushing")
	_ = viper.BindPFlag("source", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("branch", cmd.Flags().Lookup("branch"))
	_ = viper.BindPFlag("git_tag", cmd.Flags().Lookup("git-tag"))
	_ = viper.BindPFlag("username", cmd.Flags().Lookup("username"))
	_ = viper.BindPFlag("password", cmd.Flags().Lookup("password"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
}

func publishRequest(cmd *cobra.Command, opts publishOptions) app.PublishRequest {
	return app.PublishRequest{
		RecipePath: resolveString(cmd, opts.Recipe, "recipe", "recipe"),
		SourceDir:  resolveString(cmd, opts.SourceDir, "source", "source"),
		OutputDir:  resolveString(cmd, opts.OutputDir, "output", "output"),
		Branch:     resolveString(cmd, opts.Branch, "branch", "branch"),
		Tag:        resolveString(cmd, opts.Tag, "git_tag", "git-tag"),
		Username:   resolveString(cmd, opts.Username, "username", "username"),
		Password:   resolveString(cmd, opts.Password, "password", "password"),
		DryRun:     resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	}
}

func runPublish(ctx context.Context, cmd *cobra.Command, opts publishOptions) error {
	service, err := newDockerService(resolveString(cmd, opts.Platform, "platform", "platform"))
	if err != nil {
		return err
	}
	result, err := service.Publish(ctx, publishRequest(cmd, opts))
	if err != nil {
		return err
	}
	printPublishResult(result)
	return nil
}

func printPublishResult(result app.PublishResult) {
	if !result.Plan.Publish {
		fmt.Printf("not published: %s\n", result.Plan.Reason)
		return
	}
	if len(result.Pushed) == 0 {
		for _, ref := range result.Plan.Refs {
			fmt.Printf("would push %s\n", ref)
		}
		return
	}
	for _, pushed := range result.Pushed {
		fmt.Printf("pushed %s@%s\n", pushed.Ref, pushed.Digest)
	}
}
