package config

import (
	"path/filepath"
	"regexp"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

// projectKeys are the settings a project config file may carry.
var projectKeys = []string{
	KeyCurrentVersion,
	KeyParse,
	KeySerialize,
	KeyCommit,
	KeyTag,
	KeyTagName,
	KeyMessage,
}

var boolKeys = map[string]bool{KeyCommit: true, KeyTag: true}

// Project is the content of a project config file.
type Project struct {
	Path     string
	Settings map[string]interface{}
	Files    []string
}

// Values returns the settings and file list as a viper config map.
func (p *Project) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(p.Settings)+1)
	for k, v := range p.Settings {
		out[k] = v
	}
	if len(p.Files) > 0 {
		out[KeyFiles] = p.Files
	}
	return out
}

// ReadProject parses the project config file at path. Files ending in .toml are read
// as TOML ([tool.bumpversion]); everything else as INI ([bumpversion] and
// [bumpversion:file:<path>] sections).
func ReadProject(fs afero.Fs, path string) (*Project, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(ErrConfigRead, "%s: %v", path, err)
	}

	var p *Project
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		p, err = parseTOML(data)
	} else {
		p, err = parseINI(data)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrConfigRead, "parsing %s: %v", path, err)
	}
	p.Path = path
	return p, nil
}

func parseINI(data []byte) (*Project, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, data)
	if err != nil {
		return nil, err
	}

	p := &Project{Settings: make(map[string]interface{})}
	for _, sec := range f.Sections() {
		name := sec.Name()
		if i := strings.Index(name, ":file:"); i >= 0 {
			p.Files = append(p.Files, strings.TrimSpace(name[i+len(":file:"):]))
			continue
		}
		if !sec.HasKey(KeyCurrentVersion) && name != "bumpversion" {
			continue
		}
		for _, k := range projectKeys {
			if !sec.HasKey(k) {
				continue
			}
			key := sec.Key(k)
			if boolKeys[k] {
				b, err := key.Bool()
				if err != nil {
					return nil, errors.Wrapf(err, "[%s] %s", name, k)
				}
				p.Settings[k] = b
				continue
			}
			p.Settings[k] = firstLine(key.String())
		}
	}
	return p, nil
}

type tomlProject struct {
	Tool struct {
		Bumpversion struct {
			CurrentVersion *string     `toml:"current_version"`
			Parse          *string     `toml:"parse"`
			Serialize      interface{} `toml:"serialize"`
			Commit         *bool       `toml:"commit"`
			Tag            *bool       `toml:"tag"`
			TagName        *string     `toml:"tag_name"`
			Message        *string     `toml:"message"`
			Files          []struct {
				Filename string `toml:"filename"`
			} `toml:"files"`
		} `toml:"bumpversion"`
	} `toml:"tool"`
}

func parseTOML(data []byte) (*Project, error) {
	var doc tomlProject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	bv := doc.Tool.Bumpversion

	p := &Project{Settings: make(map[string]interface{})}
	setString := func(k string, v *string) {
		if v != nil {
			p.Settings[k] = *v
		}
	}
	setBool := func(k string, v *bool) {
		if v != nil {
			p.Settings[k] = *v
		}
	}
	setString(KeyCurrentVersion, bv.CurrentVersion)
	setString(KeyParse, bv.Parse)
	setString(KeyTagName, bv.TagName)
	setString(KeyMessage, bv.Message)
	setBool(KeyCommit, bv.Commit)
	setBool(KeyTag, bv.Tag)

	switch s := bv.Serialize.(type) {
	case nil:
	case string:
		p.Settings[KeySerialize] = s
	case []interface{}:
		if len(s) > 0 {
			first, ok := s[0].(string)
			if !ok {
				return nil, errors.Errorf("serialize: expected strings, got %T", s[0])
			}
			p.Settings[KeySerialize] = first
		}
	default:
		return nil, errors.Errorf("serialize: expected string or array, got %T", s)
	}

	for _, f := range bv.Files {
		if f.Filename != "" {
			p.Files = append(p.Files, f.Filename)
		}
	}
	return p, nil
}

// firstLine returns the first non-blank line of a possibly multi-line value.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// RewriteCurrentVersion replaces current with next on every current_version
// assignment line of content, keeping any quoting. It reports whether a line matched.
func RewriteCurrentVersion(content []byte, current, next string) ([]byte, bool) {
	re := regexp.MustCompile(`(?m)^(\s*current_version\s*=\s*["']?)` + regexp.QuoteMeta(current) + `(["']?[ \t]*\r?)$`)
	if !re.Match(content) {
		return content, false
	}
	return re.ReplaceAll(content, []byte("${1}"+escapeDollar(next)+"${2}")), true
}

func escapeDollar(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
