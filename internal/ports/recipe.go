package ports

import "kas-container/internal/types"

type RecipePort interface {
	LoadRecipe(path string) (types.ImageRecipe, error)
}

type KasConfigPort interface {
	LoadKasConfig(path string) (types.KasConfig, error)
}
