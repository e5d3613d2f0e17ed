package adapters

import (
	"bytes"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

type RecipeFileAdapter struct{}

func NewRecipeFileAdapter() RecipeFileAdapter {
	return RecipeFileAdapter{}
}

func (a RecipeFileAdapter) LoadRecipe(path string) (types.ImageRecipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ImageRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("recipe file not found").
			WithCause(err)
	}
	if err := validateRecipeDocument(data); err != nil {
		return types.ImageRecipe{}, err
	}
	var recipe types.ImageRecipe
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&recipe); err != nil {
		return types.ImageRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse recipe yaml").
			WithCause(err)
	}
	return recipe, nil
}

var _ ports.RecipePort = RecipeFileAdapter{}
