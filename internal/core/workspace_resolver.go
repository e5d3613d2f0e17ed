package core

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"kas-container/internal/policies"
	"kas-container/internal/ports"
	"kas-container/internal/types"
)

const (
	DefaultMachine = "qemu"
	DefaultDistro  = "poky"
	DefaultTarget  = "core-image-minimal"

	EnvWorkDir = "KAS_WORK_DIR"
	EnvRefDir  = "KAS_REPO_REF_DIR"
)

var distroLocales = map[string]map[string]string{
	"fedora": {"LC_ALL": "en_US.utf8", "LANG": "en_US.utf8", "LANGUAGE": "en_US"},
	"suse":   {"LC_ALL": "en_US.utf8", "LANG": "en_US.utf8", "LANGUAGE": "en_US"},
	"ubuntu": {"LC_ALL": "en_US.UTF-8", "LANG": "en_US.UTF-8", "LANGUAGE": "en_US:en"},
	"debian": {"LC_ALL": "en_US.UTF-8", "LANG": "en_US.UTF-8", "LANGUAGE": "en_US:en"},
}

type WorkspaceResolver struct {
	Host  ports.HostPort
	Repos ports.RepoPort
}

func NewWorkspaceResolver(host ports.HostPort, repos ports.RepoPort) WorkspaceResolver {
	return WorkspaceResolver{Host: host, Repos: repos}
}

// Resolve applies defaults to cfg and resolves it against the host:
// work dir, reference dir, locale environment, proxy and repositories.
// cwd is used when KAS_WORK_DIR is unset.
func (r WorkspaceResolver) Resolve(ctx context.Context, cfg types.KasConfig, cwd string) (types.Workspace, error) {
	cfg = ApplyKasDefaults(cfg)
	workDir := r.Host.Getenv(EnvWorkDir)
	if workDir == "" {
		workDir = cwd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return types.Workspace{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to resolve work dir").
			WithCause(err)
	}
	ws := types.Workspace{
		Config:   cfg,
		WorkDir:  workDir,
		BuildDir: filepath.Join(workDir, "build"),
		RefDir:   r.Host.Getenv(EnvRefDir),
		Environ:  r.environ(ctx),
		Proxy:    r.proxy(cfg),

		LocalConfHeader:    JoinHeader(cfg.LocalConfHeader),
		BblayersConfHeader: JoinHeader(cfg.BblayersConfHeader),
	}
	repos, err := r.resolveRepos(cfg, workDir)
	if err != nil {
		return types.Workspace{}, err
	}
	ws.Repos = repos
	log.Ctx(ctx).Debug().
		Str("work_dir", ws.WorkDir).
		Int("repos", len(ws.Repos)).
		Msg("workspace resolved")
	return ws, nil
}

func ApplyKasDefaults(cfg types.KasConfig) types.KasConfig {
	if strings.TrimSpace(cfg.Machine) == "" {
		cfg.Machine = DefaultMachine
	}
	if strings.TrimSpace(cfg.Distro) == "" {
		cfg.Distro = DefaultDistro
	}
	if strings.TrimSpace(cfg.Target) == "" {
		cfg.Target = DefaultTarget
	}
	return cfg
}

// JoinHeader concatenates conf header fragments in key order.
func JoinHeader(header map[string]string) string {
	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, header[key])
	}
	return strings.Join(parts, "\n")
}

// QualifiedName flattens a repository url into a name usable as a
// directory, e.g. https://git.yoctoproject.org/git/poky becomes
// git.yoctoproject.org.git.poky.
func QualifiedName(repoURL string) string {
	name := repoURL
	if parsed, err := url.Parse(repoURL); err == nil && parsed.Host != "" {
		name = parsed.Host + parsed.Path
		if parsed.User != nil {
			name = parsed.User.String() + "@" + name
		}
	}
	return strings.NewReplacer("@", ".", ":", ".", "/", ".", "*", ".").Replace(name)
}

func (r WorkspaceResolver) environ(ctx context.Context) map[string]string {
	id := strings.ToLower(r.Host.DistroID())
	if strings.Contains(id, "suse") {
		id = "suse"
	}
	env, ok := distroLocales[id]
	if !ok {
		log.Ctx(ctx).Warn().Str("distro", id).Msg("unsupported distro, no default locales set")
		return map[string]string{}
	}
	out := make(map[string]string, len(env))
	for key, value := range env {
		out[key] = value
	}
	return out
}

func (r WorkspaceResolver) proxy(cfg types.KasConfig) types.ProxyConfig {
	if cfg.ProxyConfig != nil {
		return *cfg.ProxyConfig
	}
	return types.ProxyConfig{
		HTTPProxy:  r.Host.Getenv("http_proxy"),
		HTTPSProxy: r.Host.Getenv("https_proxy"),
		NoProxy:    r.Host.Getenv("no_proxy"),
	}
}

func (r WorkspaceResolver) resolveRepos(cfg types.KasConfig, workDir string) ([]types.Repo, error) {
	keys := make([]string, 0, len(cfg.Repos))
	for key := range cfg.Repos {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	configDir := filepath.Dir(cfg.Filename)
	repos := make([]types.Repo, 0, len(keys))
	for _, key := range keys {
		entry := cfg.Repos[key]
		if entry == nil {
			entry = &types.RepoConfig{}
		}
		repo := types.Repo{
			Key:     key,
			Name:    entry.Name,
			URL:     strings.TrimSpace(entry.URL),
			Refspec: strings.TrimSpace(entry.Refspec),
			Path:    strings.TrimSpace(entry.Path),
			Layers:  policies.EnabledLayers(entry.Layers),
		}
		if repo.Name == "" {
			repo.Name = key
		}
		if repo.URL == "" {
			if repo.Path == "" {
				top, err := r.Repos.TopLevel(configDir)
				if err != nil {
					return nil, errbuilder.New().
						WithCode(errbuilder.CodeFailedPrecondition).
						WithMsg(fmt.Sprintf("repo %s has no url and %s is not inside a git checkout", key, configDir)).
						WithCause(err)
				}
				repo.Path = top
			} else if !filepath.IsAbs(repo.Path) {
				repo.Path = filepath.Join(configDir, repo.Path)
			}
			repo.URL = repo.Path
			repo.GitDisabled = true
		} else {
			if repo.Path == "" {
				repo.Path = filepath.Join(workDir, repo.Name)
			} else if !filepath.IsAbs(repo.Path) {
				repo.Path = filepath.Join(workDir, repo.Path)
			}
		}
		repo.QualifiedName = QualifiedName(repo.URL)
		repos = append(repos, repo)
	}
	return repos, nil
}
