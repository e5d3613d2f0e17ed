package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"kas-container/internal/policies"
	"kas-container/internal/types"
)

// PlanPublish decides which refs a CI run pushes. A branch outside the
// policy publishes nothing. A publishing branch always gets its floating
// tag, and the release branch additionally gets the version tag when the
// commit is an exact tag match.
func PlanPublish(ctx context.Context, policy policies.BranchPolicy, repository string, ci types.CIContext, version string) (types.PublishPlan, error) {
	repo, err := NormalizeRepository(repository)
	if err != nil {
		return types.PublishPlan{}, err
	}
	floating, ok := policy.FloatingTag(ci.Branch)
	if !ok {
		return types.PublishPlan{
			Publish: false,
			Reason:  fmt.Sprintf("branch %q does not publish", ci.Branch),
		}, nil
	}
	floatingRef, err := ComposeRef(repo, floating)
	if err != nil {
		return types.PublishPlan{}, err
	}
	plan := types.PublishPlan{
		Publish: true,
		Reason:  fmt.Sprintf("branch %q publishes %s", ci.Branch, floating),
		Refs:    []string{floatingRef},
	}
	if !policy.IsRelease(ci.Branch) || !ci.ExactTag {
		return plan, nil
	}

	versionTag, err := VersionTag(version)
	if err != nil {
		return types.PublishPlan{}, err
	}
	if ci.Tag != "" && !VersionMatchesTag(version, ci.Tag) {
		log.Ctx(ctx).Warn().
			Str("version", version).
			Str("git_tag", ci.Tag).
			Msg("tool version does not match the git tag")
	}
	versionRef, err := ComposeRef(repo, versionTag)
	if err != nil {
		return types.PublishPlan{}, err
	}
	if versionRef != floatingRef {
		plan.Refs = append(plan.Refs, versionRef)
	}
	plan.Reason = fmt.Sprintf("release branch %q at exact tag publishes %s and %s", ci.Branch, floating, versionTag)
	return plan, nil
}
