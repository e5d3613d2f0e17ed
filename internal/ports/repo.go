package ports

import (
	"context"

	"kas-container/internal/types"
)

// RepoPort performs the git operations a kas workspace needs.
type RepoPort interface {
	Fetch(ctx context.Context, repo types.Repo, refDir string) error
	Checkout(ctx context.Context, repo types.Repo) error
	TopLevel(path string) (string, error)
}

// SourcePort inspects and moves the checkout the image is built from.
type SourcePort interface {
	CurrentBranch(dir string) (string, error)
	ExactTag(dir string) (string, bool, error)
	Sync(ctx context.Context, dir string, revision string) error
}
