// Package manifest reads the package manifest that drives packing.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// FileName is the manifest basename at a package root.
const FileName = "package.json"

var (
	// ErrMissingMetadata is returned when a required manifest field is empty.
	ErrMissingMetadata = errors.New("missing manifest metadata")

	// ErrMissingName is returned when the manifest has no name.
	ErrMissingName = fmt.Errorf("%w: name", ErrMissingMetadata)

	// ErrMissingVersion is returned when the manifest has no version.
	ErrMissingVersion = fmt.Errorf("%w: version", ErrMissingMetadata)
)

// Manifest is the subset of package.json consulted while packing.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main,omitempty"`

	// Files is the explicit allowlist. A nil slice means the field was absent;
	// an empty, non-nil slice is an allowlist that admits nothing.
	Files []string `json:"files,omitempty"`

	Dependencies map[string]string `json:"dependencies,omitempty"`

	// BundleDependenciesOf lists foreign manifests (or their directories)
	// whose dependencies are bundled as well.
	BundleDependenciesOf []string `json:"bundleDependenciesOf,omitempty"`
}

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest JSON.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the fields required to name the tarball.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(m.Version) == "" {
		return ErrMissingVersion
	}
	return nil
}

// HasFiles reports whether the manifest declares a files allowlist.
func (m *Manifest) HasFiles() bool {
	return m.Files != nil
}

// DependencyNames returns the declared dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NormalizedName converts a scoped name "@scope/name" to "scope-name".
// Unscoped names are returned unchanged.
func (m *Manifest) NormalizedName() string {
	name, ok := strings.CutPrefix(m.Name, "@")
	if !ok {
		return m.Name
	}
	return strings.Replace(name, "/", "-", 1)
}

// TarballName returns the conventional output filename "<name>-<version>.tgz".
func (m *Manifest) TarballName() string {
	return m.NormalizedName() + "-" + m.Version + ".tgz"
}
