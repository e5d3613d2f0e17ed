package ports

import "kas-container/internal/types"

type OutputReaderPort interface {
	ReadImageIntent(path string) (types.ImageIntent, error)
}
