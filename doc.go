// Package main implements the bumpversion CLI tool.
//
// The bumpversion tool updates a version string across a set of project files. It parses
// the current version with a regular expression, bumps one component, replaces every
// occurrence of the current version in the given files, rewrites current_version in the
// project config file, then commits the change and optionally tags it. The commit is
// written straight into the repository object store; no git binary is needed.
//
// Command Usage:
//
//	bumpversion [flags] [file...]
//
// Flags:
//
//	-c, --config-file:  Project config file. Defaults to .bumpversion.cfg, then .bumpversion.toml.
//	--current-version:  Version to update. Defaults to current_version from the config file.
//	--bump:             Component to bump (default "patch").
//	--parse:            Regular expression with named groups used to parse the version.
//	--serialize:        Template used to format the new version (default "{major}.{minor}.{patch}").
//	-n, --dry-run:      Don't write any files or create a commit.
//	--new-version:      Explicit new version, skips the bump.
//	--commit:           Commit the changed files (default true).
//	--tag:              Tag the commit.
//	--tag-name:         Tag name template (default "v{new_version}").
//	-m, --message:      Commit message template.
//	--log-level:        debug, info, warn, error or none (default "warn").
//	--version:          Displays the version of the bumpversion CLI tool and exits.
//
// Every flag can also be set with a BUMPVERSION_ environment variable, for example
// BUMPVERSION_CURRENT_VERSION=1.2.3.
//
// Project config file, INI form:
//
//	[bumpversion]
//	current_version = 1.2.3
//	commit = True
//	tag = True
//
//	[bumpversion:file:setup.py]
//
//	[bumpversion:file:src/pkg/__init__.py]
//
// or TOML form:
//
//	[tool.bumpversion]
//	current_version = "1.2.3"
//	tag = true
//
//	[[tool.bumpversion.files]]
//	filename = "setup.py"
//
// Examples:
//
//	# Bump the patch version (e.g. 1.2.3 → 1.2.4) in the files listed in .bumpversion.cfg
//	bumpversion
//
//	# Bump the minor version (e.g. 1.2.3 → 1.3.0) and tag the commit
//	bumpversion --bump minor --tag
//
//	# Set an explicit version in VERSION without committing
//	bumpversion --current-version 1.2.3 --new-version 2.0.0 --commit=false VERSION
//
//	# Versions with a release label
//	bumpversion --parse '(?P<major>\d+)\.(?P<minor>\d+)-(?P<release>\w+)' \
//	    --serialize '{major}.{minor}-{release}' --bump minor
//
// For more detailed API documentation, please see the documentation in the "pkg" package.
package main
