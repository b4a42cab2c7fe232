// Package bumpversion updates a version string across a set of project files and
// records the change as a git commit and tag.
//
// It provides functionalities for:
//   - Bumping a version with a user supplied regular expression and serialize template
//     (see the version subpackage), or setting an explicit version.
//   - Replacing every occurrence of the current version in the configured files, after
//     checking that each file contains it.
//   - Rewriting current_version in the project config file (.bumpversion.cfg or
//     .bumpversion.toml).
//   - Writing the commit and tag straight into the repository object store without
//     shelling out to git (see the gitcommit subpackage).
//
// This library is used by the bumpversion command line tool and can be called from
// other Go programs.
//
// Usage Example:
//
//	import (
//	    "log"
//
//	    bumpversion "github.com/bcomnes/bumpversion/pkg"
//	    "github.com/bcomnes/bumpversion/pkg/config"
//	)
//
//	func main() {
//	    cfg := config.Default()
//	    cfg.CurrentVersion = "1.2.3"
//	    cfg.Bump = "minor"
//	    cfg.Files = []string{"VERSION"}
//	    meta, err := bumpversion.Run(cfg)
//	    if err != nil {
//	        log.Fatalf("version bump failed: %v", err)
//	    }
//	    log.Printf("bumped %s to %s", meta.OldVersion, meta.NewVersion)
//	}
package bumpversion
