package bumpversion

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/bcomnes/bumpversion/pkg/config"
	"github.com/bcomnes/bumpversion/pkg/gitcommit"
	"github.com/bcomnes/bumpversion/pkg/version"
)

// BumpExplicit is the BumpType reported when the new version was given explicitly.
const BumpExplicit = "explicit"

// VersionMeta holds metadata about the version bump operation.
type VersionMeta struct {
	OldVersion string // The version before bumping.
	NewVersion string // The version after bumping.
	BumpType   string // The bumped component, or "explicit".

	UpdatedFiles []string // Files whose version was (or would be) replaced.
	ConfigFile   string   // Project config file whose current_version was (or would be) rewritten.

	Message   string // Rendered commit message, set when a commit is requested.
	Tag       string // Tag name, set when a tag is requested.
	Commit    string // Hash of the created commit.
	Committed bool

	DryRun bool
	// NoChange is set when the bumped component is not part of the serialize template,
	// so there is no new version and nothing was done.
	NoChange bool
	// NothingToCommit is set when the files already matched the branch tip.
	NothingToCommit bool
}

type runner struct {
	fs      afero.Fs
	dir     string
	l       *zap.Logger
	builder *gitcommit.Builder
	now     func() time.Time
}

func newRunner(opts []Option) *runner {
	r := &runner{
		fs:  afero.NewOsFs(),
		dir: ".",
		l:   zap.NewNop(),
		now: time.Now,
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Run bumps cfg.CurrentVersion, replaces it in cfg.Files and in the project config
// file, then commits (and tags) the result when cfg.Commit (cfg.Tag) is set.
// With cfg.DryRun it behaves like DryRun.
func Run(cfg config.Config, opts ...Option) (VersionMeta, error) {
	return newRunner(opts).run(cfg)
}

// DryRun computes everything Run would do and checks every precondition, without
// writing files, objects or references.
func DryRun(cfg config.Config, opts ...Option) (VersionMeta, error) {
	cfg.DryRun = true
	return newRunner(opts).run(cfg)
}

func (r *runner) run(cfg config.Config) (VersionMeta, error) {
	meta := VersionMeta{
		OldVersion: cfg.CurrentVersion,
		DryRun:     cfg.DryRun,
	}

	// 1. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return meta, err
	}
	spec, err := version.NewSpec(cfg.Parse, cfg.Serialize)
	if err != nil {
		return meta, err
	}

	// 2. Determine the new version
	if cfg.NewVersion != "" {
		meta.NewVersion = cfg.NewVersion
		meta.BumpType = BumpExplicit
	} else {
		next, ok, err := spec.Next(cfg.CurrentVersion, cfg.Bump)
		if err != nil {
			return meta, err
		}
		meta.BumpType = cfg.Bump
		if !ok {
			r.l.Info("component not in serialize template, nothing to do",
				zap.String("bump", cfg.Bump),
				zap.String("serialize", cfg.Serialize),
			)
			meta.NoChange = true
			return meta, nil
		}
		meta.NewVersion = next
	}

	// Prevent no-op
	if meta.NewVersion == meta.OldVersion {
		return meta, errors.Wrap(ErrSameVersion, meta.NewVersion)
	}
	if comparable, increases := version.Increases(meta.OldVersion, meta.NewVersion); comparable && !increases {
		r.l.Warn("new version does not increase the current version",
			zap.String("current", meta.OldVersion),
			zap.String("new", meta.NewVersion),
		)
	}

	// 3. Locate the repository
	builder, err := r.openBuilder()
	if err != nil {
		return meta, err
	}
	if builder == nil && cfg.Commit && !cfg.DryRun {
		return meta, errors.Wrap(gitcommit.ErrNoRepository, "pass --commit=false to update files outside a repository")
	}

	names, paths, err := r.resolve(cfg.Files)
	if err != nil {
		return meta, err
	}
	configPath := ""
	if cfg.ConfigFile != "" {
		configPath = r.path(cfg.ConfigFile)
	}

	// 4. Check for uncommitted files
	if builder != nil {
		allowed, err := absPaths(append(append([]string{}, paths...), nonEmpty(configPath)...))
		if err != nil {
			return meta, err
		}
		if err := builder.CheckClean(allowed); err != nil {
			return meta, err
		}
	}

	// 5. Check every file before touching any
	if err := CheckFiles(r.fs, paths, meta.OldVersion); err != nil {
		return meta, err
	}
	meta.UpdatedFiles = names

	if cfg.Commit {
		meta.Message = renderTemplate(cfg.Message, meta.OldVersion, meta.NewVersion)
		if cfg.Tag {
			meta.Tag = renderTemplate(cfg.TagName, meta.OldVersion, meta.NewVersion)
		}
	}

	if builder != nil && meta.Tag != "" {
		if err := builder.CheckTag(meta.Tag); err != nil {
			return meta, err
		}
	}

	if cfg.DryRun {
		if configPath != "" {
			changed, err := rewriteConfig(r.fs, configPath, meta.OldVersion, meta.NewVersion, false)
			if err != nil {
				return meta, err
			}
			if changed {
				meta.ConfigFile = cfg.ConfigFile
			}
		}
		r.l.Info("dry run, nothing written",
			zap.String("current", meta.OldVersion),
			zap.String("new", meta.NewVersion),
			zap.Strings("files", meta.UpdatedFiles),
		)
		return meta, nil
	}

	// 6. Replace the version in every file
	for _, p := range paths {
		if err := ReplaceVersionInFile(r.fs, p, meta.OldVersion, meta.NewVersion); err != nil {
			return meta, err
		}
		r.l.Debug("updated", zap.String("file", p))
	}

	// 7. Rewrite current_version in the project config file
	commitPaths := paths
	if configPath != "" {
		changed, err := rewriteConfig(r.fs, configPath, meta.OldVersion, meta.NewVersion, true)
		if err != nil {
			return meta, err
		}
		if changed {
			meta.ConfigFile = cfg.ConfigFile
			commitPaths = append(append([]string{}, paths...), configPath)
		} else {
			r.l.Debug("no current_version entry rewritten", zap.String("config", configPath))
		}
	}

	if !cfg.Commit {
		return meta, nil
	}

	// 8. Commit and tag
	abs, err := absPaths(commitPaths)
	if err != nil {
		return meta, err
	}
	res, err := builder.Commit(gitcommit.Request{
		Paths:          abs,
		CurrentVersion: meta.OldVersion,
		NewVersion:     meta.NewVersion,
		Message:        cfg.Message,
		Tag:            meta.Tag,
	})
	if err != nil {
		return meta, err
	}
	if !res.Committed {
		meta.NothingToCommit = true
		meta.Tag = ""
		return meta, nil
	}
	meta.Committed = true
	meta.Commit = res.Commit.String()
	return meta, nil
}

// openBuilder returns the configured builder, or one for the repository containing the
// working directory. It returns nil when there is no repository.
func (r *runner) openBuilder() (*gitcommit.Builder, error) {
	if r.builder != nil {
		return r.builder, nil
	}
	b, err := gitcommit.Open(r.dir, gitcommit.Logger(r.l), gitcommit.Clock(r.now))
	if err != nil {
		if errors.Is(err, gitcommit.ErrNoRepository) {
			r.l.Debug("no git repository", zap.String("dir", r.dir))
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// path joins a relative path onto the working directory.
func (r *runner) path(f string) string {
	if filepath.IsAbs(f) {
		return filepath.Clean(f)
	}
	return filepath.Join(r.dir, f)
}

// resolve maps files onto the working directory. A file listed more than once, under
// any spelling, is kept only at its first position: names holds the spellings as given,
// paths the resolved locations.
func (r *runner) resolve(files []string) (names, paths []string, err error) {
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		p := r.path(f)
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "resolving %s", f)
		}
		if seen[abs] {
			r.l.Debug("file listed twice", zap.String("file", f))
			continue
		}
		seen[abs] = true
		names = append(names, f)
		paths = append(paths, p)
	}
	return names, paths, nil
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %s", p)
		}
		out = append(out, abs)
	}
	return out, nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func renderTemplate(tmpl, current, next string) string {
	return strings.NewReplacer("{current_version}", current, "{new_version}", next).Replace(tmpl)
}
