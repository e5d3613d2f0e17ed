package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/distribution/reference"
)

const dockerHubDomain = "docker.io"

// DockerHubAuthServer is the server address the daemon expects for
// Docker Hub logins.
const DockerHubAuthServer = "https://index.docker.io/v1/"

// NormalizeRepository validates a repository name and returns it in its
// familiar form ("kasproject/kas" rather than "docker.io/kasproject/kas").
// Tags and digests are rejected.
func NormalizeRepository(repository string) (string, error) {
	trimmed := strings.TrimSpace(repository)
	if trimmed == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("image repository is empty")
	}
	named, err := reference.ParseNormalizedNamed(trimmed)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid image repository: %s", trimmed)).
			WithCause(err)
	}
	if !reference.IsNameOnly(named) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("image repository must not carry a tag or digest: %s", trimmed))
	}
	return reference.FamiliarName(named), nil
}

// ComposeRef joins a repository and a tag, validating the tag syntax.
func ComposeRef(repository string, tag string) (string, error) {
	named, err := reference.ParseNormalizedNamed(strings.TrimSpace(repository))
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid image repository: %s", repository)).
			WithCause(err)
	}
	tagged, err := reference.WithTag(named, strings.TrimSpace(tag))
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid image tag: %s", tag)).
			WithCause(err)
	}
	return reference.FamiliarString(tagged), nil
}

// ValidateImageRef accepts any pullable reference (name, name:tag,
// name@digest).
func ValidateImageRef(ref string) error {
	if _, err := reference.ParseNormalizedNamed(strings.TrimSpace(ref)); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid image reference: %s", ref)).
			WithCause(err)
	}
	return nil
}

// RegistryServer returns the login server address for a repository.
func RegistryServer(repository string) (string, error) {
	named, err := reference.ParseNormalizedNamed(strings.TrimSpace(repository))
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid image repository: %s", repository)).
			WithCause(err)
	}
	domain := reference.Domain(named)
	if domain == dockerHubDomain {
		return DockerHubAuthServer, nil
	}
	return domain, nil
}
