package adapters

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

const recipeSchemaURL = "https://kas-container.local/schema/recipe.schema.json"

//go:embed schema/recipe.schema.json
var recipeSchemaJSON []byte

var (
	recipeSchemaOnce sync.Once
	recipeSchemaErr  error
	recipeSchema     *jsonschema.Schema
)

func loadRecipeSchema() (*jsonschema.Schema, error) {
	recipeSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(recipeSchemaURL, bytes.NewReader(recipeSchemaJSON)); err != nil {
			recipeSchemaErr = err
			return
		}
		recipeSchema, recipeSchemaErr = compiler.Compile(recipeSchemaURL)
	})
	return recipeSchema, recipeSchemaErr
}

// validateRecipeDocument checks raw recipe YAML against the embedded
// schema before it is decoded into types.ImageRecipe.
func validateRecipeDocument(content []byte) error {
	schema, err := loadRecipeSchema()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to compile recipe schema").
			WithCause(err)
	}
	jsonData, err := yaml.YAMLToJSON(content)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse recipe yaml").
			WithCause(err)
	}
	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse recipe yaml").
			WithCause(err)
	}
	if err := schema.Validate(document); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe does not match schema").
			WithCause(err)
	}
	return nil
}
