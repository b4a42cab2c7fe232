// Package gitcommit records a set of changed files as a new commit by writing blob,
// tree and commit objects straight into a git object store, then moves the current
// branch with a compare-and-swap and optionally creates a tag.
package gitcommit

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Request describes the commit to build.
type Request struct {
	// Paths are absolute or worktree-relative paths whose content is already updated.
	Paths []string
	// CurrentVersion and NewVersion fill the {current_version} and {new_version}
	// placeholders of Message.
	CurrentVersion string
	NewVersion     string
	Message        string
	// Tag is the tag name to create. Empty means no tag.
	Tag string
}

// Result reports what Commit did. Committed is false when no file content changed.
type Result struct {
	Committed bool
	Branch    plumbing.ReferenceName
	Parent    plumbing.Hash
	Commit    plumbing.Hash
	Tree      plumbing.Hash
	Tag       plumbing.ReferenceName
	Message   string
	Modified  []string
}

// Builder writes commits into a repository.
type Builder struct {
	repo   *git.Repository
	storer storage.Storer
	wt     *git.Worktree
	fs     billy.Filesystem
	l      *zap.Logger
	now    func() time.Time
}

// New returns a Builder for repo. The repository must have a worktree.
func New(repo *git.Repository, opts ...Option) (*Builder, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "opening worktree")
	}
	b := &Builder{
		repo:   repo,
		storer: repo.Storer,
		wt:     wt,
		fs:     wt.Filesystem,
		l:      zap.NewNop(),
		now:    time.Now,
	}
	for _, apply := range opts {
		apply(b)
	}
	return b, nil
}

// Open returns a Builder for the repository containing dir.
func Open(dir string, opts ...Option) (*Builder, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, errors.Wrap(ErrNoRepository, dir)
		}
		return nil, errors.Wrapf(err, "opening repository at %s", dir)
	}
	return New(repo, opts...)
}

// Root returns the worktree root.
func (b *Builder) Root() string {
	return b.fs.Root()
}

// CheckClean fails with ErrDirtyWorkingTree when any tracked file other than allowed has
// staged or unstaged changes. Untracked files are ignored.
func (b *Builder) CheckClean(allowed []string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, p := range allowed {
		rel, err := b.relPath(p)
		if err != nil {
			return err
		}
		allowedSet[rel] = struct{}{}
	}

	status, err := b.wt.Status()
	if err != nil {
		return errors.Wrap(err, "reading worktree status")
	}

	var dirty []string
	for p, st := range status {
		if st.Staging == git.Untracked && st.Worktree == git.Untracked {
			continue
		}
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		if _, ok := allowedSet[p]; ok {
			continue
		}
		dirty = append(dirty, p)
	}
	if len(dirty) > 0 {
		sort.Strings(dirty)
		return errors.Wrapf(ErrDirtyWorkingTree, "uncommitted files not included in commit: %s", strings.Join(dirty, ", "))
	}
	return nil
}

// Commit builds a commit of req.Paths on top of the current branch tip.
// If none of the files differ from the tip's tree, nothing is written and the result has
// Committed set to false.
func (b *Builder) Commit(req Request) (Result, error) {
	var res Result

	head, err := b.storer.Reference(plumbing.HEAD)
	if err != nil {
		return res, errors.Wrap(err, "reading HEAD")
	}
	if head.Type() != plumbing.SymbolicReference {
		return res, errors.Wrapf(ErrDetachedHead, "at %s", head.Hash())
	}
	branch, err := b.storer.Reference(head.Target())
	if err != nil {
		return res, errors.Wrapf(err, "reading %s", head.Target())
	}
	res.Branch = branch.Name()
	res.Parent = branch.Hash()

	parent, err := object.GetCommit(b.storer, branch.Hash())
	if err != nil {
		return res, errors.Wrapf(err, "reading commit %s", branch.Hash())
	}
	tree, err := parent.Tree()
	if err != nil {
		return res, errors.Wrapf(err, "reading tree of %s", parent.Hash)
	}

	var tagName plumbing.ReferenceName
	if req.Tag != "" {
		tagName = plumbing.NewTagReferenceName(req.Tag)
		if err := b.checkTagFree(tagName); err != nil {
			return res, err
		}
	}

	changes := make(map[string]*blobChange, len(req.Paths))
	for _, p := range req.Paths {
		rel, err := b.relPath(p)
		if err != nil {
			return res, err
		}
		c, err := b.readWorktree(rel)
		if err != nil {
			return res, err
		}
		changes[rel] = c
	}

	plan, modified, err := planTree(b.storer, tree, "", changes)
	if err != nil {
		return res, err
	}
	if len(modified) == 0 {
		b.l.Info("nothing to commit", zap.String("branch", branch.Name().Short()))
		return res, nil
	}
	res.Modified = modified

	treeHash, err := plan.write(b.storer)
	if err != nil {
		return res, errors.Wrap(err, "writing tree")
	}
	res.Tree = treeHash

	res.Message = renderMessage(req.Message, req.CurrentVersion, req.NewVersion)
	sig := object.Signature{
		Name:  parent.Committer.Name,
		Email: parent.Committer.Email,
		When:  b.now(),
	}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      res.Message,
		TreeHash:     treeHash,
		ParentHashes: []plumbing.Hash{parent.Hash},
	}
	obj := b.storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return res, errors.Wrap(err, "encoding commit")
	}
	commitHash, err := b.storer.SetEncodedObject(obj)
	if err != nil {
		return res, errors.Wrap(err, "writing commit")
	}
	res.Commit = commitHash

	updated := plumbing.NewHashReference(branch.Name(), commitHash)
	if err := b.storer.CheckAndSetReference(updated, branch); err != nil {
		if errors.Is(err, storage.ErrReferenceHasChanged) {
			return res, errors.Wrapf(ErrRefConflict, "%s no longer points at %s", branch.Name().Short(), branch.Hash())
		}
		return res, errors.Wrapf(err, "updating %s", branch.Name())
	}
	res.Committed = true
	b.l.Info("committed",
		zap.String("branch", branch.Name().Short()),
		zap.Stringer("commit", commitHash),
		zap.Strings("files", modified),
	)

	if err := b.syncIndex(changes, modified); err != nil {
		b.l.Warn("index not refreshed", zap.Error(err))
	}

	if tagName != "" {
		if err := b.checkTagFree(tagName); err != nil {
			return res, err
		}
		if err := b.storer.SetReference(plumbing.NewHashReference(tagName, commitHash)); err != nil {
			return res, errors.Wrapf(err, "creating tag %s", tagName.Short())
		}
		res.Tag = tagName
		b.l.Info("tagged", zap.String("tag", tagName.Short()), zap.Stringer("commit", commitHash))
	}

	return res, nil
}

// CheckTag fails with ErrDuplicateTag when the tag already exists.
func (b *Builder) CheckTag(tag string) error {
	return b.checkTagFree(plumbing.NewTagReferenceName(tag))
}

func (b *Builder) checkTagFree(name plumbing.ReferenceName) error {
	_, err := b.storer.Reference(name)
	switch {
	case err == nil:
		return errors.Wrap(ErrDuplicateTag, name.Short())
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return nil
	default:
		return errors.Wrapf(err, "reading %s", name)
	}
}

// relPath turns p into a slash-separated path relative to the worktree root.
func (b *Builder) relPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(b.fs.Root(), p)
		if err != nil {
			return "", errors.Wrapf(ErrOutsideWorktree, "%s: %v", p, err)
		}
		p = rel
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") || strings.HasPrefix(p, "/") {
		return "", errors.Wrap(ErrOutsideWorktree, p)
	}
	return p, nil
}

func (b *Builder) readWorktree(rel string) (*blobChange, error) {
	fi, err := b.fs.Lstat(rel)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", rel)
	}
	if !fi.Mode().IsRegular() {
		return nil, errors.Errorf("%s is not a regular file", rel)
	}
	data, err := util.ReadFile(b.fs, rel)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", rel)
	}
	return newBlobChange(rel, data, fileMode(fi.Mode()), fi.ModTime()), nil
}

func fileMode(m os.FileMode) filemode.FileMode {
	if m.Perm()&0o111 != 0 {
		return filemode.Executable
	}
	return filemode.Regular
}

func renderMessage(tmpl, current, next string) string {
	msg := strings.NewReplacer("{current_version}", current, "{new_version}", next).Replace(tmpl)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg
}

// syncIndex points the index entries of the committed paths at their new blobs.
func (b *Builder) syncIndex(changes map[string]*blobChange, modified []string) error {
	idx, err := b.storer.Index()
	if err != nil {
		return err
	}
	for _, p := range modified {
		c := changes[p]
		e, err := idx.Entry(p)
		if errors.Is(err, index.ErrEntryNotFound) {
			e = idx.Add(p)
		} else if err != nil {
			return err
		}
		e.Hash = c.hash
		e.Mode = c.mode
		e.Size = uint32(len(c.data))
		e.ModifiedAt = c.modTime
	}
	return b.storer.SetIndex(idx)
}
