package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kas-container/internal/app"
)

type kasOptions struct {
	Target  string
	Task    string
	Command string
	Skip    []string
}

func newKasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kas",
		Short: "Check out, build or enter a kas workspace",
	}
	cmd.AddCommand(newKasCheckoutCommand())
	cmd.AddCommand(newKasBuildCommand())
	cmd.AddCommand(newKasShellCommand())
	return cmd
}

func addKasFlags(cmd *cobra.Command, opts *kasOptions) {
	cmd.Flags().StringVar(&opts.Target, "target", "", "Bitbake target (default: from the config)")
	cmd.Flags().StringSliceVar(&opts.Skip, "skip", nil, "Steps to skip: repos_fetch, repos_checkout, setup_environ, write_conf")
	_ = viper.BindPFlag("kas_target", cmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("kas_skip", cmd.Flags().Lookup("skip"))
}

func kasRequest(cmd *cobra.Command, config string, opts kasOptions) app.KasRequest {
	return app.KasRequest{
		ConfigPath: config,
		Target:     resolveString(cmd, opts.Target, "kas_target", "target"),
		Task:       opts.Task,
		Command:    opts.Command,
		Skip:       resolveStrings(cmd, opts.Skip, "kas_skip", "skip"),
	}
}

func newKasCheckoutCommand() *cobra.Command {
	opts := kasOptions{}
	cmd := &cobra.Command{
		Use:   "checkout <config>",
		Short: "Fetch and check out the layer repositories and write the build configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newAppService().KasCheckout(cmd.Context(), kasRequest(cmd, args[0], opts))
			return err
		},
	}
	cmd.Flags().StringSliceVar(&opts.Skip, "skip", nil, "Steps to skip: repos_fetch, repos_checkout, setup_environ, write_conf")
	return cmd
}

func newKasBuildCommand() *cobra.Command {
	opts := kasOptions{}
	cmd := &cobra.Command{
		Use:   "build <config>",
		Short: "Check out the workspace and run bitbake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKasBuild(cmd.Context(), cmd, args[0], opts)
		},
	}
	addKasFlags(cmd, &opts)
	cmd.Flags().StringVarP(&opts.Task, "task", "c", "", "Bitbake task to run")
	return cmd
}

func runKasBuild(ctx context.Context, cmd *cobra.Command, config string, opts kasOptions) error {
	_, err := newAppService().KasBuild(ctx, kasRequest(cmd, config, opts))
	return err
}

func newKasShellCommand() *cobra.Command {
	opts := kasOptions{}
	cmd := &cobra.Command{
		Use:   "shell <config>",
		Short: "Run a shell, or a single command, in the build environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKasShell(cmd.Context(), cmd, args[0], opts)
		},
	}
	addKasFlags(cmd, &opts)
	cmd.Flags().StringVarP(&opts.Command, "command", "c", "", "Run this command instead of an interactive shell")
	return cmd
}

func runKasShell(ctx context.Context, cmd *cobra.Command, config string, opts kasOptions) error {
	result, err := newAppService().KasShell(ctx, kasRequest(cmd, config, opts))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return exitError{code: result.ExitCode}
	}
	return nil
}
