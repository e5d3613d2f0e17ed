package policies

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kas-container/internal/types"
)

func TestBranchPolicyDefaults(t *testing.T) {
	policy, err := NewBranchPolicy(types.PublishPolicy{})
	require.NoError(t, err)

	tag, ok := policy.FloatingTag("master")
	require.True(t, ok)
	if diff := cmp.Diff("latest", tag); diff != "" {
		t.Fatalf("unexpected floating tag (-want +got):\n%s", diff)
	}
	tag, ok = policy.FloatingTag("next")
	require.True(t, ok)
	assert.Equal(t, "next", tag)

	_, ok = policy.FloatingTag("feature/foo")
	assert.False(t, ok)
	assert.True(t, policy.IsRelease("master"))
	assert.False(t, policy.IsRelease("next"))
}

func TestBranchPolicyPrefixPatterns(t *testing.T) {
	policy, err := NewBranchPolicy(types.PublishPolicy{
		ReleaseBranch: "main",
		Branches: map[string]string{
			"main":         "latest",
			"release/*":    "stable",
			"release/lts*": "lts",
		},
	})
	require.NoError(t, err)

	tag, ok := policy.FloatingTag("release/lts-2024")
	require.True(t, ok)
	assert.Equal(t, "lts", tag)

	tag, ok = policy.FloatingTag("release/4.x")
	require.True(t, ok)
	assert.Equal(t, "stable", tag)

	_, ok = policy.FloatingTag("master")
	assert.False(t, ok)
	assert.True(t, policy.IsRelease("main"))
}

func TestBranchPolicyRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name     string
		branches map[string]string
	}{
		{name: "empty tag", branches: map[string]string{"master": ""}},
		{name: "empty pattern", branches: map[string]string{" ": "latest"}},
		{name: "inner wildcard", branches: map[string]string{"rel*ease*": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBranchPolicy(types.PublishPolicy{Branches: tt.branches})
			require.Error(t, err)
		})
	}
}

func TestBranchPolicyEmptyBranchNeverPublishes(t *testing.T) {
	policy, err := NewBranchPolicy(types.PublishPolicy{})
	require.NoError(t, err)
	_, ok := policy.FloatingTag("")
	assert.False(t, ok)
}
