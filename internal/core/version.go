package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
)

// VersionTag turns the packaged tool's PEP 440 version into an image tag.
// The tag keeps the reported spelling; only the local segment separator
// "+", which is not allowed in tags, becomes "-".
func VersionTag(version string) (string, error) {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("tool version is empty")
	}
	if _, err := pep440.Parse(trimmed); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("tool version is not a valid PEP 440 version: %s", trimmed)).
			WithCause(err)
	}
	return strings.ReplaceAll(trimmed, "+", "-"), nil
}

// VersionMatchesTag reports whether a git release tag such as "v0.9.0"
// names the same version as the tool metadata. Unparseable input never
// matches.
func VersionMatchesTag(version string, gitTag string) bool {
	v1, err := pep440.Parse(strings.TrimSpace(version))
	if err != nil {
		return false
	}
	v2, err := pep440.Parse(strings.TrimSpace(gitTag))
	if err != nil {
		return false
	}
	return v1.Compare(v2) == 0
}
