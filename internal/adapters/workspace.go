package adapters

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"kas-container/internal/ports"
)

var recipeSuffixes = []string{".recipe.yaml", ".recipe.yml"}

// RecipeFinderAdapter discovers the image recipe of a source tree when
// none is passed explicitly.
type RecipeFinderAdapter struct{}

func NewRecipeFinderAdapter() RecipeFinderAdapter {
	return RecipeFinderAdapter{}
}

func (a RecipeFinderAdapter) FindRecipe(root string) (string, error) {
	if root == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("source root is empty")
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && shouldSkipSourceDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isRecipeFile(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan source tree").
			WithCause(err)
	}
	switch len(paths) {
	case 0:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no *.recipe.yaml found under %s", root))
	case 1:
		return paths[0], nil
	default:
		sort.Strings(paths)
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("multiple recipes found, pass one with --recipe: %s", strings.Join(paths, ", ")))
	}
}

func isRecipeFile(name string) bool {
	for _, suffix := range recipeSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func shouldSkipSourceDir(name string) bool {
	switch name {
	case ".git", "build", "out", "node_modules", ".tox", "__pycache__":
		return true
	default:
		return false
	}
}

var _ ports.RecipeFinderPort = RecipeFinderAdapter{}
