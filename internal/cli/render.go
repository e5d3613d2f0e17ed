package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRenderCommand() *cobra.Command {
	var recipe string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Validate a recipe and print the Dockerfile it produces",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd.Context(), cmd, recipe)
		},
	}
	cmd.Flags().StringVar(&recipe, "recipe", "", "Image recipe path (default: the single *.recipe.yaml below the working directory)")
	return cmd
}

func runRender(ctx context.Context, cmd *cobra.Command, recipe string) error {
	dockerfile, err := newAppService().Render(ctx, resolveString(cmd, recipe, "recipe", "recipe"))
	if err != nil {
		return err
	}
	fmt.Print(dockerfile)
	return nil
}
