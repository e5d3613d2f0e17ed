package policies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"kas-container/internal/types"
)

const (
	DefaultReleaseBranch = "master"
	DefaultFloatingTag   = "latest"
)

// DefaultBranches is used when a recipe does not list any publishing
// branches.
var DefaultBranches = map[string]string{
	"master": "latest",
	"next":   "next",
}

// BranchPolicy maps CI branch names to the floating tag they publish.
// Exact names win over prefix patterns ("release/*"), and longer
// prefixes win over shorter ones.
type BranchPolicy struct {
	ReleaseBranch string
	exact         map[string]string
	prefixes      []prefixPattern
}

type prefixPattern struct {
	prefix string
	tag    string
}

func NewBranchPolicy(policy types.PublishPolicy) (BranchPolicy, error) {
	release := strings.TrimSpace(policy.ReleaseBranch)
	if release == "" {
		release = DefaultReleaseBranch
	}
	branches := policy.Branches
	if len(branches) == 0 {
		branches = DefaultBranches
	}
	compiled := BranchPolicy{
		ReleaseBranch: release,
		exact:         map[string]string{},
	}
	for pattern, tag := range branches {
		pattern = strings.TrimSpace(pattern)
		tag = strings.TrimSpace(tag)
		if pattern == "" {
			return BranchPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("publish branch pattern is empty")
		}
		if tag == "" {
			return BranchPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("publish branch %s has no floating tag", pattern))
		}
		if strings.HasSuffix(pattern, "*") {
			prefix := strings.TrimSuffix(pattern, "*")
			if strings.Contains(prefix, "*") {
				return BranchPolicy{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("unsupported branch pattern: %s", pattern))
			}
			compiled.prefixes = append(compiled.prefixes, prefixPattern{prefix: prefix, tag: tag})
			continue
		}
		compiled.exact[pattern] = tag
	}
	sort.Slice(compiled.prefixes, func(i, j int) bool {
		if len(compiled.prefixes[i].prefix) != len(compiled.prefixes[j].prefix) {
			return len(compiled.prefixes[i].prefix) > len(compiled.prefixes[j].prefix)
		}
		return compiled.prefixes[i].prefix < compiled.prefixes[j].prefix
	})
	return compiled, nil
}

// FloatingTag returns the floating tag for branch, or false when the
// branch does not publish.
func (p BranchPolicy) FloatingTag(branch string) (string, bool) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return "", false
	}
	if tag, ok := p.exact[branch]; ok {
		return tag, true
	}
	for _, entry := range p.prefixes {
		if strings.HasPrefix(branch, entry.prefix) {
			return entry.tag, true
		}
	}
	return "", false
}

func (p BranchPolicy) IsRelease(branch string) bool {
	return strings.TrimSpace(branch) == p.ReleaseBranch
}
