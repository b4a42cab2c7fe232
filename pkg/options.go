package bumpversion

import (
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/bcomnes/bumpversion/pkg/gitcommit"
)

// Option configures Run and DryRun.
type Option func(*runner)

// WithFs sets the filesystem files are read from and written to. Defaults to the OS
// filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *runner) {
		r.fs = fs
	}
}

// WithDir sets the directory relative file paths are resolved against and where the
// git repository is looked up. Defaults to the current directory.
func WithDir(dir string) Option {
	return func(r *runner) {
		r.dir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *runner) {
		r.l = l
	}
}

// WithBuilder commits through b instead of opening the repository containing the
// working directory. The worktree root of b must be an ancestor of the working
// directory.
func WithBuilder(b *gitcommit.Builder) Option {
	return func(r *runner) {
		r.builder = b
	}
}

// WithClock sets the time source for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *runner) {
		r.now = now
	}
}
