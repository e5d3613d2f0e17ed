package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"kas-container/internal/types"
)

// Packages the image always needs: locales for locale generation and wget
// for fetching helpers.
const (
	localesPackage  = "locales"
	fetcherPackage  = "wget"
	certsPackage    = "ca-certificates"
	localeEnvName   = "LOCALE"
	aptListsCleanup = "rm -rf /var/lib/apt/lists/*"
)

// PlanDockerfile turns a validated recipe into the fixed instruction
// sequence: base, locale, packages, locale env, user env, helpers, copy,
// install, entrypoint. COPY and ENTRYPOINT use the JSON form. Every RUN chains its commands with && so a failing
// command fails the layer.
func (c RecipeCompiler) PlanDockerfile(ctx context.Context, recipe types.ImageRecipe) (types.DockerfilePlan, error) {
	pins, err := c.PackagePins(recipe.Image.Packages)
	if err != nil {
		return types.DockerfilePlan{}, err
	}
	image := recipe.Image
	plan := types.DockerfilePlan{Recipe: recipe.Metadata.Name}
	add := func(keyword string, args string) {
		plan.Instructions = append(plan.Instructions, types.Instruction{Keyword: keyword, Args: args})
	}

	add("FROM", strings.TrimSpace(image.Base))
	add("ENV", fmt.Sprintf("%s=%s", localeEnvName, image.Locale))
	add("RUN", packageInstallCommand(pins, len(image.Helpers) > 0))
	lang := image.Locale
	add("ENV", fmt.Sprintf("LANG=%s LANGUAGE=%s LC_ALL=%s", lang, languageFromLocale(lang), lang))

	if len(image.Env) > 0 {
		keys := make([]string, 0, len(image.Env))
		for key := range image.Env {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", key, shellQuote(image.Env[key])))
		}
		add("ENV", strings.Join(pairs, " "))
	}

	for _, helper := range image.Helpers {
		add("RUN", helperCommand(helper))
	}
	for _, step := range image.Copy {
		plan.Instructions = append(plan.Instructions, types.Instruction{
			Keyword: "COPY",
			Exec:    []string{step.Src, step.Dest},
		})
	}
	for _, command := range image.Install {
		add("RUN", strings.TrimSpace(command))
	}
	plan.Instructions = append(plan.Instructions, types.Instruction{
		Keyword: "ENTRYPOINT",
		Exec:    append([]string(nil), image.Entrypoint...),
	})

	log.Ctx(ctx).Debug().
		Str("recipe", recipe.Metadata.Name).
		Int("instructions", len(plan.Instructions)).
		Msg("dockerfile planned")
	return plan, nil
}

func packageInstallCommand(pins []types.PackagePin, needsFetcher bool) string {
	names := make([]string, 0, len(pins)+3)
	seen := map[string]struct{}{}
	for _, pin := range pins {
		seen[pin.Name] = struct{}{}
		if pin.Version != "" {
			names = append(names, pin.Name+"="+pin.Version)
			continue
		}
		names = append(names, pin.Name)
	}
	required := []string{localesPackage}
	if needsFetcher {
		required = append(required, fetcherPackage, certsPackage)
	}
	for _, name := range required {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	steps := []string{
		"apt-get update",
		"DEBIAN_FRONTEND=noninteractive apt-get install --no-install-recommends -y " + strings.Join(names, " "),
		fmt.Sprintf(`sed -i -e "s/# $%s.*/$%s UTF-8/" /etc/locale.gen`, localeEnvName, localeEnvName),
		"dpkg-reconfigure --frontend=noninteractive locales",
		fmt.Sprintf("update-locale LANG=$%s", localeEnvName),
		aptListsCleanup,
	}
	return strings.Join(steps, " && \\\n    ")
}

func helperCommand(helper types.Helper) string {
	dest := shellQuote(helper.Dest)
	steps := []string{
		fmt.Sprintf("wget -nv -O %s %s", dest, shellQuote(helper.URL)),
	}
	if helper.SHA256 != "" {
		steps = append(steps, fmt.Sprintf("echo %s | sha256sum -c -", shellQuote(helper.SHA256+"  "+helper.Dest)))
	}
	steps = append(steps, "chmod +x "+dest)
	return strings.Join(steps, " && \\\n    ")
}

// languageFromLocale maps en_US.UTF-8 to en_US:en.
func languageFromLocale(locale string) string {
	base, _, _ := strings.Cut(locale, ".")
	lang, _, _ := strings.Cut(base, "_")
	return base + ":" + lang
}

func shellQuote(value string) string {
	return shellquote.Join(value)
}
