package bumpversion

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/bcomnes/bumpversion/pkg/config"
	"github.com/bcomnes/bumpversion/pkg/gitcommit"
	"github.com/bcomnes/bumpversion/pkg/version"
)

const projectCfg = "[bumpversion]\ncurrent_version = 1.2.3\n\n[bumpversion:file:VERSION]\n"

var bumpTime = time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC)

// newRepo initializes a repository in a temporary directory with one commit holding files.
func newRepo(t *testing.T, files map[string]string) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		writeFile(t, dir, name, content)
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: bumpTime.Add(-time.Hour)},
	})
	require.NoError(t, err)
	return dir, repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func testConfig(files ...string) config.Config {
	cfg := config.Default()
	cfg.CurrentVersion = "1.2.3"
	cfg.Files = files
	return cfg
}

func runOpts(dir string) []Option {
	return []Option{WithDir(dir), WithClock(func() time.Time { return bumpTime })}
}

// TestRunCommitsAndTags bumps, rewrites the config file, commits and tags in a real repository.
func TestRunCommitsAndTags(t *testing.T) {
	dir, repo := newRepo(t, map[string]string{
		"VERSION":          "1.2.3\n",
		"src/version.py":   "__version__ = '1.2.3'\n",
		"README.md":        "untouched\n",
		".bumpversion.cfg": projectCfg,
	})
	before, err := repo.Head()
	require.NoError(t, err)

	cfg := testConfig("VERSION", "src/version.py")
	cfg.ConfigFile = ".bumpversion.cfg"
	cfg.Tag = true

	meta, err := Run(cfg, runOpts(dir)...)
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", meta.OldVersion)
	assert.Equal(t, "1.2.4", meta.NewVersion)
	assert.Equal(t, "patch", meta.BumpType)
	assert.Equal(t, []string{"VERSION", "src/version.py"}, meta.UpdatedFiles)
	assert.Equal(t, ".bumpversion.cfg", meta.ConfigFile)
	assert.Equal(t, "Bump version: 1.2.3 → 1.2.4", meta.Message)
	assert.Equal(t, "v1.2.4", meta.Tag)
	assert.True(t, meta.Committed)

	assert.Equal(t, "1.2.4\n", readFile(t, dir, "VERSION"))
	assert.Equal(t, "__version__ = '1.2.4'\n", readFile(t, dir, "src/version.py"))
	assert.Contains(t, readFile(t, dir, ".bumpversion.cfg"), "current_version = 1.2.4\n")

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/master", head.Name().String())
	assert.Equal(t, meta.Commit, head.Hash().String())

	c, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Bump version: 1.2.3 → 1.2.4\n", c.Message)
	require.Len(t, c.ParentHashes, 1)
	assert.Equal(t, before.Hash(), c.ParentHashes[0])
	assert.Equal(t, "Test User", c.Author.Name)
	assert.True(t, bumpTime.Equal(c.Committer.When))

	tag, err := repo.Tag("v1.2.4")
	require.NoError(t, err)
	assert.Equal(t, head.Hash(), tag.Hash())

	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean(), status.String())
}

// TestRunRejectsDirtyWorkingDir refuses to modify anything when an unrelated tracked file changed.
func TestRunRejectsDirtyWorkingDir(t *testing.T) {
	dir, repo := newRepo(t, map[string]string{
		"VERSION":   "1.2.3\n",
		"other.txt": "clean\n",
	})
	before, err := repo.Head()
	require.NoError(t, err)
	writeFile(t, dir, "other.txt", "dirty\n")
	writeFile(t, dir, "scratch.txt", "untracked files are ignored\n")

	_, err = Run(testConfig("VERSION"), runOpts(dir)...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gitcommit.ErrDirtyWorkingTree), "got %v", err)
	assert.Contains(t, err.Error(), "other.txt")
	assert.NotContains(t, err.Error(), "scratch.txt")

	assert.Equal(t, "1.2.3\n", readFile(t, dir, "VERSION"))
	after, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, before.Hash(), after.Hash())
}

// TestRunMissingVersionWritesNothing reports every file without the version and leaves all files as they were.
func TestRunMissingVersionWritesNothing(t *testing.T) {
	dir, _ := newRepo(t, map[string]string{
		"VERSION": "1.2.3\n",
		"a.txt":   "no version here\n",
		"b.txt":   "nor here\n",
	})

	_, err := Run(testConfig("VERSION", "a.txt", "b.txt"), runOpts(dir)...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingVersionInFile), "got %v", err)
	assert.Len(t, multierr.Errors(err), 2)

	assert.Equal(t, "1.2.3\n", readFile(t, dir, "VERSION"))
}

// TestRunWithoutCommit updates files but leaves the repository alone.
func TestRunWithoutCommit(t *testing.T) {
	dir, repo := newRepo(t, map[string]string{"VERSION": "1.2.3\n"})
	before, err := repo.Head()
	require.NoError(t, err)

	cfg := testConfig("VERSION")
	cfg.Commit = false
	cfg.Bump = "minor"
	meta, err := Run(cfg, runOpts(dir)...)
	require.NoError(t, err)

	assert.Equal(t, "1.3.0", meta.NewVersion)
	assert.False(t, meta.Committed)
	assert.Empty(t, meta.Message)
	assert.Equal(t, "1.3.0\n", readFile(t, dir, "VERSION"))
	after, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, before.Hash(), after.Hash())
}

// TestRunNothingToCommit succeeds without a commit when the result matches the branch tip.
func TestRunNothingToCommit(t *testing.T) {
	dir, repo := newRepo(t, map[string]string{"VERSION": "1.2.4\n"})
	before, err := repo.Head()
	require.NoError(t, err)
	writeFile(t, dir, "VERSION", "1.2.3\n")

	cfg := testConfig("VERSION")
	cfg.Tag = true
	meta, err := Run(cfg, runOpts(dir)...)
	require.NoError(t, err)

	assert.True(t, meta.NothingToCommit)
	assert.False(t, meta.Committed)
	assert.Empty(t, meta.Tag)
	after, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, before.Hash(), after.Hash())
	_, err = repo.Tag("v1.2.4")
	assert.Error(t, err)
}

// TestRunDuplicateTag fails before any file is written.
func TestRunDuplicateTag(t *testing.T) {
	dir, repo := newRepo(t, map[string]string{"VERSION": "1.2.3\n"})
	head, err := repo.Head()
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.2.4", head.Hash(), nil)
	require.NoError(t, err)

	cfg := testConfig("VERSION")
	cfg.Tag = true
	_, err = Run(cfg, runOpts(dir)...)
	assert.True(t, errors.Is(err, gitcommit.ErrDuplicateTag), "got %v", err)
	assert.Equal(t, "1.2.3\n", readFile(t, dir, "VERSION"))

	after, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, head.Hash(), after.Hash())
}

// TestDryRun computes the bump without writing files, objects or references.
func TestDryRun(t *testing.T) {
	dir, repo := newRepo(t, map[string]string{
		"VERSION":          "1.2.3\n",
		".bumpversion.cfg": projectCfg,
	})
	before, err := repo.Head()
	require.NoError(t, err)

	cfg := testConfig("VERSION")
	cfg.ConfigFile = ".bumpversion.cfg"
	cfg.Bump = "major"
	cfg.Tag = true
	meta, err := DryRun(cfg, runOpts(dir)...)
	require.NoError(t, err)

	assert.True(t, meta.DryRun)
	assert.Equal(t, "2.0.0", meta.NewVersion)
	assert.Equal(t, []string{"VERSION"}, meta.UpdatedFiles)
	assert.Equal(t, ".bumpversion.cfg", meta.ConfigFile)
	assert.Equal(t, "Bump version: 1.2.3 → 2.0.0", meta.Message)
	assert.Equal(t, "v2.0.0", meta.Tag)
	assert.False(t, meta.Committed)

	assert.Equal(t, "1.2.3\n", readFile(t, dir, "VERSION"))
	assert.Equal(t, projectCfg, readFile(t, dir, ".bumpversion.cfg"))
	after, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, before.Hash(), after.Hash())
	_, err = repo.Tag("v2.0.0")
	assert.Error(t, err)
}

// TestRunOutsideRepository needs commit disabled.
func TestRunOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "VERSION", "1.2.3\n")

	_, err := Run(testConfig("VERSION"), runOpts(dir)...)
	assert.True(t, errors.Is(err, gitcommit.ErrNoRepository), "got %v", err)
	assert.Equal(t, "1.2.3\n", readFile(t, dir, "VERSION"))

	cfg := testConfig("VERSION")
	cfg.Commit = false
	meta, err := Run(cfg, runOpts(dir)...)
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", meta.NewVersion)
	assert.Equal(t, "1.2.4\n", readFile(t, dir, "VERSION"))
}

// TestDryRunOutsideRepository reports the commit it would make without needing a repository.
func TestDryRunOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "VERSION", "1.2.3\n")

	cfg := testConfig("VERSION")
	cfg.Tag = true
	meta, err := DryRun(cfg, runOpts(dir)...)
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", meta.NewVersion)
	assert.Equal(t, "Bump version: 1.2.3 → 1.2.4", meta.Message)
	assert.Equal(t, "v1.2.4", meta.Tag)
	assert.False(t, meta.Committed)
	assert.Equal(t, "1.2.3\n", readFile(t, dir, "VERSION"))
}

// TestRunDuplicateFiles replaces a file named twice only once.
func TestRunDuplicateFiles(t *testing.T) {
	dir, repo := newRepo(t, map[string]string{
		"VERSION":        "1.2.3\n",
		"src/version.py": "__version__ = '1.2.3'\n",
	})

	meta, err := Run(testConfig("VERSION", "./VERSION", "src/version.py", "src/../VERSION"), runOpts(dir)...)
	require.NoError(t, err)
	assert.Equal(t, []string{"VERSION", "src/version.py"}, meta.UpdatedFiles)
	assert.True(t, meta.Committed)
	assert.Equal(t, "1.2.4\n", readFile(t, dir, "VERSION"))
	assert.Equal(t, "__version__ = '1.2.4'\n", readFile(t, dir, "src/version.py"))

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, meta.Commit, head.Hash().String())

	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean(), status.String())
}

// TestRunVersionSelection covers explicit versions, no-op bumps and invalid input.
func TestRunVersionSelection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "VERSION", "1.2.3\n")

	tests := []struct {
		name     string
		modify   func(*config.Config)
		expected string
		noChange bool
		err      error
	}{
		{
			name:     "explicit",
			modify:   func(c *config.Config) { c.NewVersion = "3.0.0-rc1" },
			expected: "3.0.0-rc1",
		},
		{
			name:     "explicit lower version is allowed",
			modify:   func(c *config.Config) { c.NewVersion = "1.0.0" },
			expected: "1.0.0",
		},
		{
			name:     "component not in template",
			modify:   func(c *config.Config) { c.Bump = "build" },
			noChange: true,
		},
		{
			name:   "same version",
			modify: func(c *config.Config) { c.NewVersion = "1.2.3" },
			err:    ErrSameVersion,
		},
		{
			name:   "unparsable current version",
			modify: func(c *config.Config) { c.CurrentVersion = "one.two" },
			err:    version.ErrPattern,
		},
		{
			name:   "bad pattern",
			modify: func(c *config.Config) { c.Parse = `(\d+` },
			err:    version.ErrPattern,
		},
		{
			name:   "no current version",
			modify: func(c *config.Config) { c.CurrentVersion = "" },
			err:    config.ErrNoCurrentVersion,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig("VERSION")
			cfg.Commit = false
			tc.modify(&cfg)

			meta, err := DryRun(cfg, runOpts(dir)...)
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.noChange, meta.NoChange)
			assert.Equal(t, tc.expected, meta.NewVersion)
			if tc.noChange {
				assert.Empty(t, meta.UpdatedFiles)
			}
		})
	}
	assert.Equal(t, "1.2.3\n", readFile(t, dir, "VERSION"))
}
