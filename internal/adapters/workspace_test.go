package adapters

import (
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipeFinderAdapterFindsSingleRecipe(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "container/kas.recipe.yaml", sampleRecipe)
	writeFile(t, root, "kas/config.py", "")
	// Recipes under skipped directories are ignored.
	writeFile(t, root, ".git/stale.recipe.yaml", "")
	writeFile(t, root, "build/copy.recipe.yml", "")

	path, err := NewRecipeFinderAdapter().FindRecipe(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "container", "kas.recipe.yaml"), path)
}

func TestRecipeFinderAdapterAmbiguous(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.recipe.yaml", "")
	writeFile(t, root, "b.recipe.yml", "")

	_, err := NewRecipeFinderAdapter().FindRecipe(root)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestRecipeFinderAdapterNone(t *testing.T) {
	_, err := NewRecipeFinderAdapter().FindRecipe(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestRecipeFinderAdapterEmptyRoot(t *testing.T) {
	_, err := NewRecipeFinderAdapter().FindRecipe("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source root is empty")
}
