package adapters

import (
	"strings"

	"github.com/rs/zerolog/log"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

const (
	EnvBranch         = "KAS_CONTAINER_BRANCH"
	EnvDockerUsername = "DOCKER_USERNAME"
	EnvDockerPassword = "DOCKER_PASSWORD"
)

// Branch variables of the supported CI systems, in lookup order.
var branchEnvVars = []string{EnvBranch, "TRAVIS_BRANCH", "CI_COMMIT_BRANCH"}

// Tag variables that are only set when the build runs for a tag.
var tagEnvVars = []string{"TRAVIS_TAG", "CI_COMMIT_TAG"}

// CIEnvAdapter reads CI variables and falls back to the git checkout
// when the runner does not say.
type CIEnvAdapter struct {
	Host   ports.HostPort
	Source ports.SourcePort
}

func NewCIEnvAdapter(host ports.HostPort, source ports.SourcePort) CIEnvAdapter {
	return CIEnvAdapter{Host: host, Source: source}
}

func (a CIEnvAdapter) Detect(dir string) (types.CIContext, error) {
	ci := types.CIContext{
		Username: a.Host.Getenv(EnvDockerUsername),
		Password: a.Host.Getenv(EnvDockerPassword),
	}
	githubTag := a.Host.Getenv("GITHUB_REF_TYPE") == "tag"
	ci.Branch = firstEnv(a.Host, branchEnvVars...)
	if ci.Branch == "" && !githubTag {
		ci.Branch = strings.TrimSpace(a.Host.Getenv("GITHUB_REF_NAME"))
	}
	ci.Tag = firstEnv(a.Host, tagEnvVars...)
	if ci.Tag == "" && githubTag {
		ci.Tag = strings.TrimSpace(a.Host.Getenv("GITHUB_REF_NAME"))
	}
	ci.ExactTag = ci.Tag != ""

	if ci.Branch == "" && a.Source != nil {
		branch, err := a.Source.CurrentBranch(dir)
		if err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("no branch from git")
		}
		ci.Branch = branch
	}
	if !ci.ExactTag && a.Source != nil {
		tag, exact, err := a.Source.ExactTag(dir)
		if err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("no tag from git")
		}
		ci.Tag, ci.ExactTag = tag, exact
	}
	return ci, nil
}

func firstEnv(host ports.HostPort, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(host.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

var _ ports.CIEnvPort = CIEnvAdapter{}
