package bumpversion

import "github.com/pkg/errors"

var (
	// ErrMissingVersionInFile indicates a file to update does not contain the current version.
	ErrMissingVersionInFile = errors.New("current version not found in file")
	// ErrSameVersion indicates the new version equals the current one.
	ErrSameVersion = errors.New("new version is the same as the current version")
)
