package procstream

import (
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Manifest is a named set of launch specs, usually kept in a YAML file:
//
//	tasks:
//	  greet:
//	    path: /bin/echo
//	    arguments: [hello]
//	  build:
//	    path: /usr/bin/make
//	    working_directory: /src
//	    environment:
//	      CC: clang
type Manifest struct {
	Tasks map[string]LaunchSpec `yaml:"tasks"`
}

// LoadManifest decodes a manifest from r and checks that every task names
// an executable.
func LoadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for _, name := range m.Names() {
		if m.Tasks[name].Path() == "" {
			return nil, fmt.Errorf("task %q: path is required", name)
		}
	}
	return &m, nil
}

// LoadManifestFile reads the manifest at path.
func LoadManifestFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m, err := LoadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Get returns the task called name.
func (m *Manifest) Get(name string) (LaunchSpec, bool) {
	spec, ok := m.Tasks[name]
	return spec, ok
}

// Names returns the task names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Tasks))
	for name := range m.Tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
