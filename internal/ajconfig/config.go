// Package ajconfig loads ajsconfig.json and exposes the glob-based
// include/exclude decision used by workspace indexing.
package ajconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Severity mirrors the LSP DiagnosticSeverity values accepted in config.
type Severity string

const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityHint        Severity = "hint"
	SeverityInformation Severity = "information"
)

// Interpolate holds the configurable template interpolation delimiters.
type Interpolate struct {
	StartSymbol string `json:"startSymbol"`
	EndSymbol   string `json:"endSymbol"`
}

// Diagnostics holds the template-diagnostics toggle and severity.
type Diagnostics struct {
	Enabled  bool     `json:"enabled"`
	Severity Severity `json:"severity"`
}

// Fallback holds the proxy child-process command.
type Fallback struct {
	Command string `json:"command"`
}

// Config is the parsed shape of ajsconfig.json, fully defaulted.
type Config struct {
	Root        string      `json:"-"`
	Include     []string    `json:"include"`
	Exclude     []string    `json:"exclude"`
	ReadOnly    []string    `json:"readOnly"`
	Interpolate Interpolate `json:"interpolate"`
	Cache       bool        `json:"cache"`
	Diagnostics Diagnostics `json:"diagnostics"`
	Fallback    Fallback    `json:"fallback"`
}

var defaultExclude = []string{
	"**/node_modules/**",
	"**/dist/**",
	"**/build/**",
	"**/.*/**",
}

// defaultReadOnly globs match vendored/generated JavaScript that a
// rename must never write into, even though it is indexed (so
// definitions/references inside it still resolve).
var defaultReadOnly = []string{
	"**/vendor/**",
	"**/bower_components/**",
	"**/*.min.js",
}

// Default returns the configuration defaults from spec.md §6.
func Default() Config {
	return Config{
		Include:  nil,
		Exclude:  append([]string(nil), defaultExclude...),
		ReadOnly: append([]string(nil), defaultReadOnly...),
		Interpolate: Interpolate{
			StartSymbol: "{{",
			EndSymbol:   "}}",
		},
		Cache: true,
		Diagnostics: Diagnostics{
			Enabled:  true,
			Severity: SeverityWarning,
		},
		Fallback: Fallback{
			Command: "typescript-language-server --stdio",
		},
	}
}

// Load reads ajsconfig.json at root (if present) and merges it over the
// defaults. A missing file is not an error: the defaults apply.
func Load(root string) (Config, error) {
	cfg := Default()
	cfg.Root = root

	path := filepath.Join(root, "ajsconfig.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	var overlay struct {
		Include     []string     `json:"include"`
		Exclude     []string     `json:"exclude"`
		ReadOnly    []string     `json:"readOnly"`
		Interpolate *Interpolate `json:"interpolate"`
		Cache       *bool        `json:"cache"`
		Diagnostics *Diagnostics `json:"diagnostics"`
		Fallback    *Fallback    `json:"fallback"`
	}
	if err := json.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	if overlay.Include != nil {
		cfg.Include = overlay.Include
	}
	if overlay.Exclude != nil {
		cfg.Exclude = overlay.Exclude
	}
	if overlay.ReadOnly != nil {
		cfg.ReadOnly = overlay.ReadOnly
	}
	if overlay.Interpolate != nil {
		cfg.Interpolate = *overlay.Interpolate
	}
	if overlay.Cache != nil {
		cfg.Cache = *overlay.Cache
	}
	if overlay.Diagnostics != nil {
		cfg.Diagnostics = *overlay.Diagnostics
	}
	if overlay.Fallback != nil && overlay.Fallback.Command != "" {
		cfg.Fallback = *overlay.Fallback
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate collects configuration problems into a single joined error,
// matching the teacher's validator idiom of accumulating every problem
// instead of failing on the first one.
func (c Config) Validate() error {
	var problems []string

	switch c.Diagnostics.Severity {
	case SeverityError, SeverityWarning, SeverityHint, SeverityInformation, "":
	default:
		problems = append(problems, fmt.Sprintf("diagnostics.severity %q is not one of error|warning|hint|information", c.Diagnostics.Severity))
	}
	if c.Interpolate.StartSymbol == "" || c.Interpolate.EndSymbol == "" {
		problems = append(problems, "interpolate.startSymbol and interpolate.endSymbol must be non-empty")
	}
	for _, pat := range append(append(append([]string{}, c.Include...), c.Exclude...), c.ReadOnly...) {
		if _, err := doublestar.Match(pat, "a"); err != nil {
			problems = append(problems, fmt.Sprintf("invalid glob %q: %v", pat, err))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid ajsconfig.json: %s", strings.Join(problems, "; "))
}

// ShouldIndex reports whether relPath (workspace-root-relative, forward
// slashed) should be indexed: it must pass the exclude list and, when an
// include list is configured, match it too.
func (c Config) ShouldIndex(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, pat := range c.Exclude {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return false
		}
	}
	if len(c.Include) == 0 {
		return true
	}
	for _, pat := range c.Include {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}

// IsReadOnly reports whether relPath matches one of the configured
// read-only globs, e.g. vendored/generated sources a rename must
// refuse to write into.
func (c Config) IsReadOnly(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pat := range c.ReadOnly {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}
