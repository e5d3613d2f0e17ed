package ports

import (
	"context"

	"kas-container/internal/types"
)

// VersionSourcePort reads the packaged tool's version string.
type VersionSourcePort interface {
	ReadVersion(ctx context.Context, source types.VersionSource, image string) (string, error)
}
