package core

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"
	"github.com/rs/zerolog/log"

	"kas-container/internal/policies"
	"kas-container/internal/types"
)

type RecipeCompiler struct{}

var localePattern = regexp.MustCompile(`^[a-z]{2,3}_[A-Z]{2}\.[A-Za-z0-9-]+$`)

var envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

func NewRecipeCompiler() RecipeCompiler {
	return RecipeCompiler{}
}

// ValidateRecipe checks a decoded recipe beyond what the schema covers.
// The loader guarantees api_version, kind and metadata.name.
func (c RecipeCompiler) ValidateRecipe(ctx context.Context, recipe types.ImageRecipe) error {
	assert.NotEmpty(ctx, recipe.APIVersion, "api_version must be set")
	assert.NotEmpty(ctx, string(recipe.Kind), "kind must be set")
	assert.NotEmpty(ctx, recipe.Metadata.Name, "metadata.name must be set")
	if recipe.Kind != types.RecipeKindImage {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("recipe kind must be image, got %s", recipe.Kind))
	}
	image := recipe.Image
	if _, err := NormalizeRepository(image.Repository); err != nil {
		return err
	}
	if strings.TrimSpace(image.Base) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("image.base must not be empty")
	}
	if err := ValidateImageRef(image.Base); err != nil {
		return err
	}
	if !localePattern.MatchString(image.Locale) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("image.locale must look like en_US.UTF-8, got %q", image.Locale))
	}
	if _, err := c.PackagePins(image.Packages); err != nil {
		return err
	}
	if err := validateHelpers(image.Helpers); err != nil {
		return err
	}
	for key, value := range image.Env {
		if !envKeyPattern.MatchString(key) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid env name: %s", key))
		}
		if err := singleLine("image.env."+key, value); err != nil {
			return err
		}
	}
	for _, step := range image.Copy {
		if strings.TrimSpace(step.Src) == "" || strings.TrimSpace(step.Dest) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("image.copy entries need src and dest")
		}
		if err := singleLine("image.copy.src", step.Src); err != nil {
			return err
		}
		if err := singleLine("image.copy.dest", step.Dest); err != nil {
			return err
		}
	}
	for _, command := range image.Install {
		if strings.TrimSpace(command) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("image.install entries must not be empty")
		}
		if err := singleLine("image.install", command); err != nil {
			return err
		}
	}
	if len(image.Entrypoint) == 0 || strings.TrimSpace(image.Entrypoint[0]) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("image.entrypoint must not be empty")
	}
	if _, err := policies.NewBranchPolicy(recipe.Publish); err != nil {
		return err
	}
	if err := validateVersionSource(recipe.Publish.Version); err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("recipe", recipe.Metadata.Name).Msg("recipe validated")
	return nil
}

// PackagePins parses the package list. Duplicate names are rejected so a
// pin can never be silently shadowed by an unpinned entry.
func (c RecipeCompiler) PackagePins(entries []string) ([]types.PackagePin, error) {
	pins := make([]types.PackagePin, 0, len(entries))
	seen := map[string]struct{}{}
	for _, entry := range entries {
		pin, err := ParsePackagePin(entry)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[pin.Name]; ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("duplicate package: %s", pin.Name))
		}
		seen[pin.Name] = struct{}{}
		pins = append(pins, pin)
	}
	return pins, nil
}

// ParsePackagePin splits a package list entry of the form "name" or
// "name=version" and validates the Debian version when present.
func ParsePackagePin(entry string) (types.PackagePin, error) {
	trimmed := strings.TrimSpace(entry)
	if trimmed == "" {
		return types.PackagePin{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package entry is empty")
	}
	name, version, pinned := strings.Cut(trimmed, "=")
	name = strings.TrimSpace(name)
	if !validPackageName(name) {
		return types.PackagePin{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package name: %s", name))
	}
	if !pinned {
		return types.PackagePin{Name: name}, nil
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return types.PackagePin{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("empty version pin for %s", name))
	}
	if _, err := debversion.NewVersion(version); err != nil {
		return types.PackagePin{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid debian version for %s: %s", name, version)).
			WithCause(err)
	}
	return types.PackagePin{Name: name, Version: version}, nil
}

// validPackageName follows Debian policy 5.6.1.
func validPackageName(name string) bool {
	if len(name) < 2 {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case i > 0 && (r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func validateHelpers(helpers []types.Helper) error {
	names := map[string]struct{}{}
	for _, helper := range helpers {
		if strings.TrimSpace(helper.Name) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("image.helpers entries need a name")
		}
		if _, ok := names[helper.Name]; ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("duplicate helper: %s", helper.Name))
		}
		names[helper.Name] = struct{}{}
		parsed, err := url.Parse(helper.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("helper %s needs an http(s) url, got %q", helper.Name, helper.URL))
		}
		if !path.IsAbs(helper.Dest) || strings.HasSuffix(helper.Dest, "/") {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("helper %s dest must be an absolute file path, got %q", helper.Name, helper.Dest))
		}
		if helper.SHA256 != "" && !sha256Pattern.MatchString(helper.SHA256) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("helper %s sha256 must be 64 lowercase hex characters", helper.Name))
		}
	}
	return nil
}

// singleLine rejects values that would split a Dockerfile instruction.
func singleLine(field string, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s must be a single line, use one entry per command", field))
	}
	return nil
}

func validateVersionSource(source types.VersionSource) error {
	switch source.Kind {
	case "":
		return nil
	case types.VersionSourceFile:
		if strings.TrimSpace(source.File) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("publish.version.file must be set for kind file")
		}
	case types.VersionSourceImage:
		if len(source.Command) == 0 {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("publish.version.command must be set for kind image")
		}
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown publish.version.kind: %s", source.Kind))
	}
	return nil
}
