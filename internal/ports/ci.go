package ports

import "kas-container/internal/types"

// CIEnvPort detects what the CI runner knows about the current build of
// the checkout in dir.
type CIEnvPort interface {
	Detect(dir string) (types.CIContext, error)
}
