// Package plugin discovers plugin manifests in configured locations, loads
// plugin code lazily through the sdk registration table, and produces
// panel instances on demand.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Manifest represents a plugin manifest file. A manifest lives either as a
// standalone `<name>.yaml` file in a location (single-file plugin) or as
// `<name>/plugin.yaml` inside a plugin directory (package plugin).
type Manifest struct {
	Name     string   `yaml:"name" json:"name"`
	Version  string   `yaml:"version" json:"version"`
	Info     string   `yaml:"info,omitempty" json:"info,omitempty"`
	Authors  []string `yaml:"authors,omitempty" json:"authors,omitempty"`
	Entry    string   `yaml:"entry" json:"entry"`
	Requires string   `yaml:"requires,omitempty" json:"requires,omitempty"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: a letter followed by letters,
// digits, spaces, hyphens or underscores.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _-]*$`)

// entryPattern validates registration symbols: lowercase dotted segments,
// e.g. "perfect.v1".
var entryPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*(\.[a-z0-9-]+)*$`)

// ParseManifest parses and validates manifest data.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a letter and contain only letters, digits, spaces, hyphens and underscores", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not a semantic version: %w", m.Version, err)
	}

	if m.Entry == "" {
		return fmt.Errorf("entry is required")
	}
	if !entryPattern.MatchString(m.Entry) {
		return fmt.Errorf("entry %q must be lowercase dotted segments, e.g. \"perfect.v1\"", m.Entry)
	}

	if m.Requires != "" {
		if _, err := semver.NewConstraint(m.Requires); err != nil {
			return fmt.Errorf("requires %q is not a version constraint: %w", m.Requires, err)
		}
	}

	return nil
}

// Satisfies reports whether the manifest's requires constraint accepts the
// given host version. A manifest without a constraint accepts any host.
func (m *Manifest) Satisfies(host *semver.Version) bool {
	if m.Requires == "" || host == nil {
		return true
	}
	c, err := semver.NewConstraint(m.Requires)
	if err != nil {
		return false
	}
	return c.Check(host)
}

// descriptor builds the immutable metadata record for a parsed manifest.
func (m *Manifest) descriptor(path string) *Descriptor {
	authors := make([]string, len(m.Authors))
	copy(authors, m.Authors)
	return &Descriptor{
		Name:     m.Name,
		Version:  m.Version,
		Info:     m.Info,
		Authors:  authors,
		Entry:    m.Entry,
		Requires: m.Requires,
		Path:     path,
	}
}
