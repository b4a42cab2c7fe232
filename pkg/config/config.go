// Package config assembles the configuration record consumed by bumpversion from
// command line flags, BUMPVERSION_* environment variables, a project config file and
// built-in defaults, in that order of precedence.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/bcomnes/bumpversion/pkg/dlogger"
	"github.com/bcomnes/bumpversion/pkg/version"
)

// Keys used in viper and in project config files.
const (
	KeyConfigFile     = "config_file"
	KeyCurrentVersion = "current_version"
	KeyNewVersion     = "new_version"
	KeyBump           = "bump"
	KeyParse          = "parse"
	KeySerialize      = "serialize"
	KeyDryRun         = "dry_run"
	KeyCommit         = "commit"
	KeyTag            = "tag"
	KeyTagName        = "tag_name"
	KeyMessage        = "message"
	KeyFiles          = "files"
	KeyLogLevel       = "log_level"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. BUMPVERSION_CURRENT_VERSION.
	EnvPrefix = "BUMPVERSION"
	// DefaultMessage is the commit message template.
	DefaultMessage = "Bump version: {current_version} → {new_version}"
	// DefaultTagName is the tag name template.
	DefaultTagName = "v{new_version}"
)

// DefaultConfigFiles are tried in order when no config file is named.
var DefaultConfigFiles = []string{".bumpversion.cfg", ".bumpversion.toml"}

var (
	// ErrConfigRead indicates the project config file is missing or unreadable.
	ErrConfigRead = errors.New("cannot read config file")
	// ErrNoCurrentVersion indicates no current version was configured.
	ErrNoCurrentVersion = errors.New("current version is not set")
)

// Config holds everything a bump needs.
type Config struct {
	ConfigFile     string   `mapstructure:"config_file"`
	CurrentVersion string   `mapstructure:"current_version"`
	NewVersion     string   `mapstructure:"new_version"`
	Bump           string   `mapstructure:"bump"`
	Parse          string   `mapstructure:"parse"`
	Serialize      string   `mapstructure:"serialize"`
	DryRun         bool     `mapstructure:"dry_run"`
	Commit         bool     `mapstructure:"commit"`
	Tag            bool     `mapstructure:"tag"`
	TagName        string   `mapstructure:"tag_name"`
	Message        string   `mapstructure:"message"`
	Files          []string `mapstructure:"files"`
	LogLevel       string   `mapstructure:"log_level"`
}

// Default returns a Config populated with built-in defaults only.
func Default() Config {
	return Config{
		Bump:      version.DefaultComponent,
		Parse:     version.DefaultPattern,
		Serialize: version.DefaultTemplate,
		Commit:    true,
		TagName:   DefaultTagName,
		Message:   DefaultMessage,
		LogLevel:  dlogger.LogLevelWarn,
	}
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyCurrentVersion, "")
	v.SetDefault(KeyNewVersion, "")
	v.SetDefault(KeyBump, d.Bump)
	v.SetDefault(KeyParse, d.Parse)
	v.SetDefault(KeySerialize, d.Serialize)
	v.SetDefault(KeyDryRun, d.DryRun)
	v.SetDefault(KeyCommit, d.Commit)
	v.SetDefault(KeyTag, d.Tag)
	v.SetDefault(KeyTagName, d.TagName)
	v.SetDefault(KeyMessage, d.Message)
	v.SetDefault(KeyFiles, []string{})
	v.SetDefault(KeyLogLevel, d.LogLevel)
}

// Load reads the project config file named by the config_file key (or the first of
// DefaultConfigFiles that exists), layers it under flags and environment in v, and
// returns the merged Config. A named config file that cannot be read is ErrConfigRead;
// a missing default one is not an error.
func Load(fs afero.Fs, v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	path := v.GetString(KeyConfigFile)
	if path == "" {
		path = findDefault(fs)
	}

	if path != "" {
		p, err := ReadProject(fs, path)
		if err != nil {
			return Config{}, err
		}
		if err := v.MergeConfigMap(p.Values()); err != nil {
			return Config{}, errors.Wrapf(ErrConfigRead, "%s: %v", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding configuration")
	}
	cfg.ConfigFile = path
	return cfg, nil
}

// Validate checks the fields every bump needs.
func (c Config) Validate() error {
	if c.CurrentVersion == "" {
		return errors.Wrap(ErrNoCurrentVersion, "pass --current-version or set current_version in the config file")
	}
	return nil
}

func findDefault(fs afero.Fs) string {
	for _, name := range DefaultConfigFiles {
		if fi, err := fs.Stat(name); err == nil && fi.Mode().IsRegular() {
			return name
		}
	}
	return ""
}
