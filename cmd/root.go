// Package cmd implements the bumpversion command line: flags are bound to viper keys,
// merged with the environment and the project config file, and handed to the library.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	bumpversion "github.com/bcomnes/bumpversion/pkg"
	"github.com/bcomnes/bumpversion/pkg/config"
	"github.com/bcomnes/bumpversion/pkg/dlogger"
	"github.com/bcomnes/bumpversion/pkg/version"
)

const long = `Bumps the version kept in a set of files, rewrites current_version in the project
config file (.bumpversion.cfg or .bumpversion.toml), then commits the change and
optionally tags it.

The current version is parsed with --parse (a regular expression with named groups),
the --bump component is incremented, components after it are reset to 0, and the result
is formatted with --serialize. Every occurrence of the current version in each file is
replaced with the new one.

Settings come from flags, then BUMPVERSION_* environment variables (for example
BUMPVERSION_CURRENT_VERSION), then the project config file, then defaults.`

const examples = `  bumpversion --current-version 1.2.3 VERSION
  bumpversion --bump minor --tag
  bumpversion --new-version 2.0.0-rc1 --commit=false setup.py
  bumpversion -n --bump major`

// NewRootCmd returns the bumpversion command. cliVersion is printed by --version.
func NewRootCmd(cliVersion string) *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "bumpversion [flags] [file...]",
		Short:         "Bump a version string across files, then commit and tag",
		Long:          long,
		Example:       examples,
		Version:       cliVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}
	rootCmd.SetVersionTemplate("bumpversion CLI version {{.Version}}\n")

	flags := rootCmd.Flags()
	flags.StringP("config-file", "c", "", "project config file (default .bumpversion.cfg, then .bumpversion.toml)")
	flags.String("current-version", "", "version to update (default from the config file)")
	flags.String("bump", version.DefaultComponent, "version component to bump")
	flags.String("parse", version.DefaultPattern, "regular expression with named groups used to parse the version")
	flags.String("serialize", version.DefaultTemplate, "template used to format the new version")
	flags.BoolP("dry-run", "n", false, "don't write any files or create a commit")
	flags.String("new-version", "", "new version to set instead of bumping")
	flags.Bool("commit", true, "commit the changed files")
	flags.Bool("tag", false, "tag the commit")
	flags.String("tag-name", config.DefaultTagName, "tag name template")
	flags.StringP("message", "m", config.DefaultMessage, "commit message template")
	flags.String("log-level", dlogger.LogLevelWarn, "log level: debug, info, warn, error or none")

	for key, name := range map[string]string{
		config.KeyConfigFile:     "config-file",
		config.KeyCurrentVersion: "current-version",
		config.KeyBump:           "bump",
		config.KeyParse:          "parse",
		config.KeySerialize:      "serialize",
		config.KeyDryRun:         "dry-run",
		config.KeyNewVersion:     "new-version",
		config.KeyCommit:         "commit",
		config.KeyTag:            "tag",
		config.KeyTagName:        "tag-name",
		config.KeyMessage:        "message",
		config.KeyLogLevel:       "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	return rootCmd
}

// Execute runs the bumpversion command and exits non-zero on error.
func Execute(cliVersion string) {
	if err := NewRootCmd(cliVersion).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, v *viper.Viper, args []string) error {
	if len(args) > 0 {
		v.Set(config.KeyFiles, args)
	}
	cfg, err := config.Load(afero.NewOsFs(), v)
	if err != nil {
		return err
	}

	l, err := dlogger.GetLogger(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid --log-level %q", cfg.LogLevel)
	}
	defer func() { _ = l.Sync() }()

	meta, err := bumpversion.Run(cfg, bumpversion.WithLogger(l))
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), meta)
	return nil
}

func printSummary(w io.Writer, meta bumpversion.VersionMeta) {
	if meta.NoChange {
		fmt.Fprintf(w, "No new version: %q is not part of the serialize template.\n", meta.BumpType)
		return
	}

	if meta.DryRun {
		color.New(color.FgYellow).Fprintln(w, "Dry run complete, no files were modified.")
	} else {
		color.New(color.FgGreen).Fprintln(w, "Version bump successful!")
	}
	fmt.Fprintf(w, "Old Version: %s\n", meta.OldVersion)
	fmt.Fprintf(w, "New Version: %s\n", meta.NewVersion)
	fmt.Fprintf(w, "Bump Type:   %s\n", meta.BumpType)

	// Print out exactly which files were (or would be) touched.
	files := meta.UpdatedFiles
	if meta.ConfigFile != "" {
		files = append(append([]string{}, files...), meta.ConfigFile)
	}
	if len(files) > 0 {
		if meta.DryRun {
			fmt.Fprintln(w, "Files that would be updated:")
		} else {
			fmt.Fprintln(w, "Files updated:")
		}
		for _, f := range files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}

	switch {
	case meta.Committed:
		fmt.Fprintf(w, "Commit:      %s %s\n", shortHash(meta.Commit), meta.Message)
	case meta.NothingToCommit:
		fmt.Fprintln(w, "Nothing to commit.")
	case meta.DryRun && meta.Message != "":
		fmt.Fprintf(w, "Would commit: %s\n", meta.Message)
	}
	if meta.Tag != "" {
		if meta.DryRun {
			fmt.Fprintf(w, "Would tag:   %s\n", meta.Tag)
		} else {
			fmt.Fprintf(w, "Tag:         %s\n", meta.Tag)
		}
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
