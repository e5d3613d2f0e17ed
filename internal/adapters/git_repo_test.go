package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kas-container/internal/types"
)

var testSignature = &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Unix(1700000000, 0)}

func initRepo(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return repo
}

func commitFile(t *testing.T, repo *git.Repository, dir string, name string, content string) plumbing.Hash {
	t.Helper()
	writeFile(t, dir, name, content)
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add(name)
	require.NoError(t, err)
	hash, err := worktree.Commit("update "+name, &git.CommitOptions{Author: testSignature})
	require.NoError(t, err)
	return hash
}

func TestGitRepoAdapterSourceQueries(t *testing.T) {
	dir := t.TempDir()
	repo := initRepo(t, dir)
	first := commitFile(t, repo, dir, "README", "one")

	adapter := NewGitRepoAdapter()
	branch, err := adapter.CurrentBranch(filepath.Join(dir))
	require.NoError(t, err)
	assert.Equal(t, "master", branch)

	_, exact, err := adapter.ExactTag(dir)
	require.NoError(t, err)
	assert.False(t, exact)

	_, err = repo.CreateTag("0.9.0", first, &git.CreateTagOptions{Tagger: testSignature, Message: "release"})
	require.NoError(t, err)
	tag, exact, err := adapter.ExactTag(dir)
	require.NoError(t, err)
	assert.True(t, exact)
	assert.Equal(t, "0.9.0", tag)

	commitFile(t, repo, dir, "README", "two")
	_, exact, err = adapter.ExactTag(dir)
	require.NoError(t, err)
	assert.False(t, exact)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "dir"), 0755))
	top, err := adapter.TopLevel(filepath.Join(dir, "sub", "dir"))
	require.NoError(t, err)
	assert.Equal(t, dir, top)
}

func TestGitRepoAdapterFetchAndCheckout(t *testing.T) {
	upstreamDir := t.TempDir()
	upstream := initRepo(t, upstreamDir)
	first := commitFile(t, upstream, upstreamDir, "conf/layer.conf", "BBPATH .= \":${LAYERDIR}\"\n")
	second := commitFile(t, upstream, upstreamDir, "conf/layer.conf", "BBPATH .= \":${LAYERDIR}\"\n# v2\n")

	workDir := t.TempDir()
	repo := types.Repo{
		Name:          "meta-custom",
		URL:           upstreamDir,
		QualifiedName: "meta-custom",
		Refspec:       first.String(),
		Path:          filepath.Join(workDir, "meta-custom"),
	}
	adapter := NewGitRepoAdapter()
	ctx := context.Background()

	require.NoError(t, adapter.Fetch(ctx, repo, ""))
	require.NoError(t, adapter.Checkout(ctx, repo))

	cloned, err := git.PlainOpen(repo.Path)
	require.NoError(t, err)
	head, err := cloned.Head()
	require.NoError(t, err)
	assert.Equal(t, first, head.Hash())

	// Already at refspec: a second checkout is a no-op.
	require.NoError(t, adapter.Checkout(ctx, repo))

	// Unstaged edits block the checkout.
	writeFile(t, repo.Path, "conf/layer.conf", "local edit\n")
	repo.Refspec = second.String()
	require.NoError(t, adapter.Fetch(ctx, repo, ""))
	require.NoError(t, adapter.Checkout(ctx, repo))
	head, err = cloned.Head()
	require.NoError(t, err)
	assert.Equal(t, first, head.Hash())
}

func TestGitRepoAdapterCloneFromReference(t *testing.T) {
	upstreamDir := t.TempDir()
	upstream := initRepo(t, upstreamDir)
	commitFile(t, upstream, upstreamDir, "README", "layer")

	refDir := t.TempDir()
	_, err := git.PlainClone(filepath.Join(refDir, "example.com.meta-ref"), false, &git.CloneOptions{URL: upstreamDir})
	require.NoError(t, err)

	repo := types.Repo{
		Name:          "meta-ref",
		URL:           upstreamDir,
		QualifiedName: "example.com.meta-ref",
		Path:          filepath.Join(t.TempDir(), "meta-ref"),
	}
	require.NoError(t, NewGitRepoAdapter().Fetch(context.Background(), repo, refDir))

	cloned, err := git.PlainOpen(repo.Path)
	require.NoError(t, err)
	origin, err := cloned.Remote(git.DefaultRemoteName)
	require.NoError(t, err)
	assert.Equal(t, []string{upstreamDir}, origin.Config().URLs)
}

func TestGitRepoAdapterDisabledRepoIsUntouched(t *testing.T) {
	repo := types.Repo{Name: "this", Path: filepath.Join(t.TempDir(), "absent"), GitDisabled: true}
	adapter := NewGitRepoAdapter()
	require.NoError(t, adapter.Fetch(context.Background(), repo, ""))
	require.NoError(t, adapter.Checkout(context.Background(), repo))
	_, err := os.Stat(repo.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestGitRepoAdapterSync(t *testing.T) {
	upstreamDir := t.TempDir()
	upstream := initRepo(t, upstreamDir)
	commitFile(t, upstream, upstreamDir, "kas/__version__.py", "__version__ = '0.8.0'\n")

	checkoutDir := filepath.Join(t.TempDir(), "src")
	_, err := git.PlainClone(checkoutDir, false, &git.CloneOptions{URL: upstreamDir})
	require.NoError(t, err)

	next := commitFile(t, upstream, upstreamDir, "kas/__version__.py", "__version__ = '0.9.0'\n")
	require.NoError(t, NewGitRepoAdapter().Sync(context.Background(), checkoutDir, next.String()))

	data, err := os.ReadFile(filepath.Join(checkoutDir, "kas", "__version__.py"))
	require.NoError(t, err)
	assert.Equal(t, "__version__ = '0.9.0'\n", string(data))
}
