package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kas-container/internal/server"
)

type serveOptions struct {
	Pipeline pipelineOptions
	Addr     string
	Secret   string
}

func newServeCommand() *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline for push events received on a webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}
	addAssembleFlags(cmd, &opts.Pipeline.Assemble)
	addPublishFlags(cmd, &opts.Pipeline.Publish)
	cmd.Flags().StringVar(&opts.Addr, "listen", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&opts.Secret, "webhook-secret", "", "Shared secret for X-Hub-Signature-256 checks")
	_ = viper.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("webhook_secret", cmd.Flags().Lookup("webhook-secret"))
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	service, err := newDockerService(resolveString(cmd, opts.Pipeline.Assemble.Platform, "platform", "platform"))
	if err != nil {
		return err
	}
	req := pipelineRequest(cmd, opts.Pipeline)
	sourceDir := req.Publish.SourceDir
	if sourceDir == "" {
		sourceDir = req.Assemble.ContextDir
	}
	if sourceDir == "" {
		sourceDir = "."
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	srv := server.New(ctx, server.Config{
		SourceDir: sourceDir,
		Secret:    resolveString(cmd, opts.Secret, "webhook_secret", "webhook-secret"),
		Request:   req,
	}, service, service.Source)
	return srv.Listen(ctx, resolveString(cmd, opts.Addr, "listen", "listen"))
}
