package bumpversion

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/bcomnes/bumpversion/pkg/config"
)

// CheckFiles verifies that every file in paths can be read and contains oldVersion.
// All failures are returned together, so callers can refuse to touch any file when one
// of them is wrong.
func CheckFiles(fs afero.Fs, paths []string, oldVersion string) error {
	var errs error
	for _, p := range paths {
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "reading %s", p))
			continue
		}
		if !bytes.Contains(data, []byte(oldVersion)) {
			errs = multierr.Append(errs, errors.Wrapf(ErrMissingVersionInFile, "did not find %q in %s", oldVersion, p))
		}
	}
	return errs
}

// ReplaceVersionInFile replaces every occurrence of oldVersion in the file with
// newVersion. The match is a plain substring match: "1.2.3" inside "11.2.30" is
// replaced too.
func ReplaceVersionInFile(fs afero.Fs, path, oldVersion, newVersion string) error {
	fi, err := fs.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	if !bytes.Contains(data, []byte(oldVersion)) {
		return errors.Wrapf(ErrMissingVersionInFile, "did not find %q in %s", oldVersion, path)
	}
	out := bytes.ReplaceAll(data, []byte(oldVersion), []byte(newVersion))
	if err := afero.WriteFile(fs, path, out, fi.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// rewriteConfig updates the current_version entry of the project config file. It
// reports false without error when the file does not exist or has no matching entry.
func rewriteConfig(fs afero.Fs, path, oldVersion, newVersion string, write bool) (bool, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "reading %s", path)
	}
	out, changed := config.RewriteCurrentVersion(data, oldVersion, newVersion)
	if !changed || !write {
		return changed, nil
	}
	fi, err := fs.Stat(path)
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", path)
	}
	if err := afero.WriteFile(fs, path, out, fi.Mode().Perm()); err != nil {
		return false, errors.Wrapf(err, "writing %s", path)
	}
	return true, nil
}
