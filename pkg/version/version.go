// Package version parses version strings with a named-capture regular expression,
// bumps one component and serializes the result back through a template.
package version

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

const (
	// DefaultPattern matches a plain MAJOR.MINOR.PATCH version.
	DefaultPattern = `(?P<major>\d+)\.(?P<minor>\d+)\.(?P<patch>\d+)`
	// DefaultTemplate reassembles the components matched by DefaultPattern.
	DefaultTemplate = "{major}.{minor}.{patch}"
	// DefaultComponent is bumped when no component is given.
	DefaultComponent = "patch"
)

// Sentinel errors returned by this package.
var (
	// ErrPattern indicates an invalid pattern or a version the pattern does not match.
	ErrPattern = errors.New("version pattern error")
	// ErrNonNumericComponent indicates the bumped component is not a non-negative integer.
	ErrNonNumericComponent = errors.New("version component is not numeric")
	// ErrSerialization indicates the template references a component without a value.
	ErrSerialization = errors.New("version serialization error")
)

var placeholder = regexp.MustCompile(`\{([^{}]*)\}`)

// Parsed maps component names to their string values.
type Parsed map[string]string

// Clone returns an independent copy of p.
func (p Parsed) Clone() Parsed {
	out := make(Parsed, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Spec describes how a version is parsed and serialized. A Spec is immutable.
type Spec struct {
	pattern  *regexp.Regexp
	template string
	order    []string
}

// NewSpec compiles pattern and derives the component order from template.
// The order is the first occurrence of each {name} in the template, left to right.
func NewSpec(pattern, template string) (*Spec, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(ErrPattern, "compiling %q: %v", pattern, err)
	}

	named := false
	for _, name := range re.SubexpNames() {
		if name != "" {
			named = true
			break
		}
	}
	if !named {
		return nil, errors.Wrapf(ErrPattern, "pattern %q has no named capture groups", pattern)
	}

	return &Spec{
		pattern:  re,
		template: template,
		order:    componentOrder(template),
	}, nil
}

// MustSpec is like NewSpec but panics on error.
func MustSpec(pattern, template string) *Spec {
	s, err := NewSpec(pattern, template)
	if err != nil {
		panic(err)
	}
	return s
}

func componentOrder(template string) []string {
	var order []string
	seen := make(map[string]struct{})
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		name := strings.TrimSpace(m[1])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}
	return order
}

// Pattern returns the source of the parse pattern.
func (s *Spec) Pattern() string { return s.pattern.String() }

// Template returns the serialization template.
func (s *Spec) Template() string { return s.template }

// Order returns the component names in template order.
func (s *Spec) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Parse extracts the named groups of the pattern from current.
// Groups that did not participate in the match are left out.
func (s *Spec) Parse(current string) (Parsed, error) {
	loc := s.pattern.FindStringSubmatchIndex(current)
	if loc == nil {
		return nil, errors.Wrapf(ErrPattern, "%q does not match %q", current, s.pattern.String())
	}

	parsed := make(Parsed)
	for i, name := range s.pattern.SubexpNames() {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		parsed[name] = current[loc[2*i]:loc[2*i+1]]
	}
	return parsed, nil
}

// Bump increments target and resets every component after it in template order to "0".
// Components before target are left untouched. When target is not part of the template
// the returned bool is false and p is returned unchanged.
func (s *Spec) Bump(p Parsed, target string) (Parsed, bool, error) {
	out := p.Clone()
	bumped := false
	for _, name := range s.order {
		switch {
		case name == target:
			n, err := strconv.ParseUint(out[name], 10, 64)
			if err != nil {
				return nil, false, errors.Wrapf(ErrNonNumericComponent, "%s=%q", name, out[name])
			}
			if n == math.MaxUint64 {
				return nil, false, errors.Wrapf(ErrNonNumericComponent, "%s=%q cannot be incremented", name, out[name])
			}
			out[name] = strconv.FormatUint(n+1, 10)
			bumped = true
		case bumped:
			out[name] = "0"
		}
	}
	if !bumped {
		return p, false, nil
	}
	return out, true, nil
}

// Serialize substitutes every {name} of the template with its value in p.
func (s *Spec) Serialize(p Parsed) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(s.template, func(m string) string {
		name := strings.TrimSpace(m[1 : len(m)-1])
		v, ok := p[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", errors.Wrapf(ErrSerialization, "no value for %s in %q", strings.Join(missing, ", "), s.template)
	}
	return out, nil
}

// Next parses current, bumps target and serializes the result. The bool is false when
// target is not part of the template, in which case no version is produced.
func (s *Spec) Next(current, target string) (string, bool, error) {
	parsed, err := s.Parse(current)
	if err != nil {
		return "", false, err
	}
	bumped, ok, err := s.Bump(parsed, target)
	if err != nil || !ok {
		return "", false, err
	}
	next, err := s.Serialize(bumped)
	if err != nil {
		return "", false, err
	}
	return next, true, nil
}

// Increases reports whether oldVersion and newVersion are both semantic versions
// (with or without a leading "v") and, if so, whether newVersion sorts after oldVersion.
func Increases(oldVersion, newVersion string) (comparable, increases bool) {
	o, n := canonical(oldVersion), canonical(newVersion)
	if !semver.IsValid(o) || !semver.IsValid(n) {
		return false, false
	}
	return true, semver.Compare(n, o) > 0
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
