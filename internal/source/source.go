// Package source keeps the site's input tree in sync with a git remote.
package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// Syncer clones or fast-forwards a single working tree.
type Syncer struct {
	cfg    config.SourceConfig
	dir    string
	policy retry.Policy
}

// NewSyncer returns a syncer that keeps dir at cfg's branch head.
func NewSyncer(cfg config.SourceConfig, dir string) *Syncer {
	return &Syncer{cfg: cfg, dir: dir, policy: retry.DefaultPolicy()}
}

// WithRetryPolicy overrides the backoff used for transient remote failures.
func (s *Syncer) WithRetryPolicy(p retry.Policy) *Syncer {
	s.policy = p
	return s
}

// Sync clones the remote when dir holds no repository and pulls otherwise.
// It returns the checked out commit hash.
func (s *Syncer) Sync(ctx context.Context) (string, error) {
	auth, err := authMethod(s.cfg.Auth)
	if err != nil {
		return "", errors.ConfigError("invalid source authentication").WithCause(err).Build()
	}

	var repo *git.Repository
	err = s.policy.Do(ctx, isTransient, func(ctx context.Context) error {
		var opErr error
		if _, statErr := os.Stat(filepath.Join(s.dir, ".git")); statErr == nil {
			repo, opErr = s.pull(ctx, auth)
		} else {
			repo, opErr = s.clone(ctx, auth)
		}
		return opErr
	})
	if err != nil {
		var ce *errors.ClassifiedError
		if stderrors.As(err, &ce) {
			return "", err
		}
		return "", errors.NetworkError("source sync failed").
			WithContext(logfields.KeyURL, s.cfg.GitURL).WithFile(s.dir).WithCause(err).Build()
	}
	return Head(repo)
}

func (s *Syncer) clone(ctx context.Context, auth transport.AuthMethod) (*git.Repository, error) {
	if err := ensureCloneTarget(s.dir); err != nil {
		return nil, err
	}
	opts := &git.CloneOptions{
		URL:   s.cfg.GitURL,
		Auth:  auth,
		Depth: s.cfg.Depth,
		Tags:  git.NoTags,
	}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
		opts.SingleBranch = true
	}

	slog.Debug("Cloning source", logfields.URL(s.cfg.GitURL), slog.String("branch", s.cfg.Branch), logfields.Path(s.dir))
	repo, err := git.PlainCloneContext(ctx, s.dir, false, opts)
	if err != nil {
		// A failed clone leaves a partial .git behind; drop it so the retry starts clean.
		_ = os.RemoveAll(filepath.Join(s.dir, ".git"))
		return nil, fmt.Errorf("clone %s: %w", s.cfg.GitURL, err)
	}
	logHead(repo, "Source cloned", s.cfg.GitURL)
	return repo, nil
}

func (s *Syncer) pull(ctx context.Context, auth transport.AuthMethod) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, errors.IOError("unable to open source repository").WithFile(s.dir).WithCause(err).Build()
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.IOError("unable to open source worktree").WithFile(s.dir).WithCause(err).Build()
	}
	opts := &git.PullOptions{RemoteName: "origin", Auth: auth, Depth: s.cfg.Depth}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
		opts.SingleBranch = true
	}

	err = wt.PullContext(ctx, opts)
	switch {
	case stderrors.Is(err, git.NoErrAlreadyUpToDate):
		slog.Info("Source already up to date", logfields.URL(s.cfg.GitURL))
		return repo, nil
	case stderrors.Is(err, git.ErrNonFastForwardUpdate):
		return nil, errors.DataError("source has diverged from remote; refusing to overwrite local commits").
			WithFile(s.dir).WithCause(err).Build()
	case err != nil:
		return nil, fmt.Errorf("pull %s: %w", s.cfg.GitURL, err)
	}
	logHead(repo, "Source updated", s.cfg.GitURL)
	return repo, nil
}

// ensureCloneTarget refuses to clone over an existing non-empty directory
// that is not a repository; it might be the author's only copy.
func ensureCloneTarget(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.IOError("unable to read source directory").WithFile(dir).WithCause(err).Build()
	}
	if len(entries) > 0 {
		return errors.ConfigError("source directory exists and is not a git checkout").WithFile(dir).Build()
	}
	return nil
}

// Head returns the commit hash HEAD points at.
func Head(repo *git.Repository) (string, error) {
	ref, err := repo.Head()
	if err != nil {
		return "", errors.IOError("unable to resolve HEAD").WithCause(err).Build()
	}
	return ref.Hash().String(), nil
}

func logHead(repo *git.Repository, msg, url string) {
	if ref, err := repo.Head(); err == nil {
		slog.Info(msg, logfields.URL(url), slog.String("commit", ref.Hash().String()[:8]))
		return
	}
	slog.Info(msg, logfields.URL(url))
}

// isTransient reports whether a remote failure is worth retrying.
func isTransient(err error) bool {
	var ce *errors.ClassifiedError
	if stderrors.As(err, &ce) {
		return false
	}
	switch {
	case stderrors.Is(err, context.Canceled),
		stderrors.Is(err, context.DeadlineExceeded),
		stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed),
		stderrors.Is(err, transport.ErrRepositoryNotFound),
		stderrors.Is(err, transport.ErrEmptyRemoteRepository):
		return false
	}
	return true
}

// authMethod creates authentication from the source configuration.
func authMethod(a *config.SourceAuth) (transport.AuthMethod, error) {
	if a == nil {
		return nil, nil
	}
	switch a.Type {
	case "none", "":
		return nil, nil
	case "ssh":
		keyPath := a.KeyPath
		if keyPath == "" {
			keyPath = filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		}
		keys, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
		}
		return keys, nil
	case "token":
		if a.Token == "" {
			return nil, fmt.Errorf("token authentication requires a token")
		}
		// GitHub/GitLab accept any username alongside a token.
		return &http.BasicAuth{Username: "token", Password: a.Token}, nil
	case "basic":
		if a.Username == "" || a.Password == "" {
			return nil, fmt.Errorf("basic authentication requires username and password")
		}
		return &http.BasicAuth{Username: a.Username, Password: a.Password}, nil
	default:
		return nil, fmt.Errorf("unsupported authentication type: %s", a.Type)
	}
}
