package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kas-container/internal/ports"
	"kas-container/internal/types"
)

// GitRepoAdapter implements the git side of both the kas workspace and
// the image source checkout with go-git.
type GitRepoAdapter struct{}

func NewGitRepoAdapter() GitRepoAdapter {
	return GitRepoAdapter{}
}

// Fetch clones a missing repo, preferring a local reference copy under
// refDir, or fetches all remotes when the refspec is not known locally.
// Fetch failures on an existing clone only warn.
func (a GitRepoAdapter) Fetch(ctx context.Context, repo types.Repo, refDir string) error {
	if repo.GitDisabled {
		return nil
	}
	logger := log.Ctx(ctx).With().Str("repo", repo.Name).Logger()
	if _, err := os.Stat(repo.Path); errors.Is(err, os.ErrNotExist) {
		return a.clone(ctx, &logger, repo, refDir)
	}
	opened, err := git.PlainOpen(repo.Path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("%s exists but is not a git repository", repo.Path)).
			WithCause(err)
	}
	if repo.Refspec != "" {
		if _, err := opened.ResolveRevision(plumbing.Revision(repo.Refspec)); err == nil {
			return nil
		}
	}
	if err := fetchAll(ctx, opened); err != nil {
		logger.Warn().Err(err).Msg("could not update repository")
	}
	return nil
}

func (a GitRepoAdapter) clone(ctx context.Context, logger *zerolog.Logger, repo types.Repo, refDir string) error {
	if err := os.MkdirAll(filepath.Dir(repo.Path), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create repo parent directory").
			WithCause(err)
	}
	source := repo.URL
	if refDir != "" {
		reference := filepath.Join(refDir, repo.QualifiedName)
		logger.Debug().Str("reference", reference).Msg("looking for repo reference")
		if _, err := os.Stat(reference); err == nil {
			source = reference
		}
	}
	logger.Info().Str("url", source).Str("path", repo.Path).Msg("cloning repository")
	cloned, err := git.PlainCloneContext(ctx, repo.Path, false, &git.CloneOptions{URL: source})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to clone " + repo.URL).
			WithCause(err)
	}
	if source == repo.URL {
		return nil
	}
	if err := repointOrigin(cloned, repo.URL); err != nil {
		return err
	}
	if err := fetchAll(ctx, cloned); err != nil {
		logger.Warn().Err(err).Msg("could not update repository from origin")
	}
	return nil
}

func repointOrigin(repo *git.Repository, url string) error {
	if err := repo.DeleteRemote(git.DefaultRemoteName); err != nil && !errors.Is(err, git.ErrRemoteNotFound) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to drop reference remote").
			WithCause(err)
	}
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to set origin to " + url).
			WithCause(err)
	}
	return nil
}

func fetchAll(ctx context.Context, repo *git.Repository) error {
	remotes, err := repo.Remotes()
	if err != nil {
		return err
	}
	for _, remote := range remotes {
		err := repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: remote.Config().Name,
			Tags:       git.AllTags,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("fetch %s: %w", remote.Config().Name, err)
		}
	}
	return nil
}

// Checkout moves the repo to its refspec. A worktree with unstaged
// changes to tracked files is left alone.
func (a GitRepoAdapter) Checkout(ctx context.Context, repo types.Repo) error {
	if repo.GitDisabled || repo.Refspec == "" {
		return nil
	}
	logger := log.Ctx(ctx).With().Str("repo", repo.Name).Logger()
	opened, err := git.PlainOpen(repo.Path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to open " + repo.Path).
			WithCause(err)
	}
	worktree, err := opened.Worktree()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("repository has no worktree: " + repo.Path).
			WithCause(err)
	}
	status, err := worktree.Status()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read worktree status").
			WithCause(err)
	}
	if hasUnstagedChanges(status) {
		logger.Warn().Msg("repo is dirty, no checkout")
		return nil
	}
	target, err := opened.ResolveRevision(plumbing.Revision(repo.Refspec))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("refspec %s not found in %s", repo.Refspec, repo.Name)).
			WithCause(err)
	}
	if head, err := opened.Head(); err == nil && head.Hash() == *target {
		logger.Info().Msg("repo has already checked out correct refspec, nothing to do")
		return nil
	}
	opts := &git.CheckoutOptions{Hash: *target}
	branch := plumbing.NewBranchReferenceName(repo.Refspec)
	if _, err := opened.Reference(branch, false); err == nil {
		opts = &git.CheckoutOptions{Branch: branch}
	}
	if err := worktree.Checkout(opts); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to check out %s in %s", repo.Refspec, repo.Name)).
			WithCause(err)
	}
	logger.Info().Str("refspec", repo.Refspec).Msg("checked out")
	return nil
}

func hasUnstagedChanges(status git.Status) bool {
	for _, file := range status {
		switch file.Worktree {
		case git.Unmodified, git.Untracked:
			continue
		default:
			return true
		}
	}
	return false
}

// TopLevel returns the root of the worktree containing path.
func (a GitRepoAdapter) TopLevel(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	return worktree.Filesystem.Root(), nil
}

func (a GitRepoAdapter) CurrentBranch(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// ExactTag reports the tag pointing at HEAD, peeling annotated tags.
func (a GitRepoAdapter) ExactTag(dir string) (string, bool, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false, err
	}
	head, err := repo.Head()
	if err != nil {
		return "", false, err
	}
	tags, err := repo.Tags()
	if err != nil {
		return "", false, err
	}
	defer tags.Close()
	var found string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if peeled(repo, ref) == head.Hash() {
			found = ref.Name().Short()
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return found, found != "", nil
}

func peeled(repo *git.Repository, ref *plumbing.Reference) plumbing.Hash {
	tag, err := repo.TagObject(ref.Hash())
	if err != nil {
		return ref.Hash()
	}
	commit, err := tag.Commit()
	if err != nil {
		return ref.Hash()
	}
	return commit.Hash
}

// Sync fetches every remote and force-checks-out revision, used before a
// webhook-triggered pipeline run.
func (a GitRepoAdapter) Sync(ctx context.Context, dir string, revision string) error {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("source directory is not a git checkout: " + dir).
			WithCause(err)
	}
	if err := fetchAll(ctx, repo); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to fetch source").
			WithCause(err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("revision not found: " + revision).
			WithCause(err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("source has no worktree").
			WithCause(err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to check out " + revision).
			WithCause(err)
	}
	log.Ctx(ctx).Info().Str("revision", hash.String()).Msg("source synced")
	return nil
}

var (
	_ ports.RepoPort   = GitRepoAdapter{}
	_ ports.SourcePort = GitRepoAdapter{}
)
