package gitcommit

import "github.com/pkg/errors"

// Sentinel errors for commit construction.
var (
	// ErrNoRepository indicates no git repository contains the given directory.
	ErrNoRepository = errors.New("not a git repository")
	// ErrDirtyWorkingTree indicates uncommitted changes outside the files being committed.
	ErrDirtyWorkingTree = errors.New("working tree is dirty")
	// ErrDetachedHead indicates HEAD does not point at a branch.
	ErrDetachedHead = errors.New("HEAD is detached")
	// ErrRefConflict indicates the branch moved between reading HEAD and updating it.
	ErrRefConflict = errors.New("branch reference changed concurrently")
	// ErrDuplicateTag indicates the requested tag already exists.
	ErrDuplicateTag = errors.New("tag already exists")
	// ErrOutsideWorktree indicates a path that is not inside the repository worktree.
	ErrOutsideWorktree = errors.New("path is outside the worktree")
)
