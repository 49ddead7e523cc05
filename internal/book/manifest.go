// Package book defines the textbook manifest: the ordered list of sections,
// their fragment sources, and which of them are essential (exempt from
// eviction). Document order in the manifest drives eviction distance.
package book

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSectionID is the section shown when no explicit target is given.
const DefaultSectionID = "cover"

// ContentMount is the URL path segment rendered fragments are served
// under. Section sources are URL paths, usually beginning with this
// mount; on disk the mount maps to the configured content directory.
const ContentMount = "content"

// EssentialSections are section ids that are never evicted.
var EssentialSections = []string{"cover", "about", "chapters"}

// Section describes one addressable content unit of the book.
type Section struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title,omitempty"`
	Source        string `yaml:"source"` // fragment path relative to the content root
	Essential     bool   `yaml:"essential,omitempty"`
	Visualization bool   `yaml:"visualization,omitempty"` // hosts a 3D scene when loaded
}

// DiskSource returns the source as a path relative to the rendered-content
// directory, stripping the URL mount prefix when present. Consumers that
// read fragments from disk must use this instead of Source, which is the
// path a client fetches.
func (s *Section) DiskSource() string {
	return strings.TrimPrefix(s.Source, ContentMount+"/")
}

// Manifest is the top-level book description, loaded from book.yml.
type Manifest struct {
	Title    string    `yaml:"title"`
	Sections []Section `yaml:"sections"`

	index map[string]int
}

// LoadManifest reads and validates a manifest from the given YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	m.buildIndex()
	return &m, nil
}

// Save writes the manifest to the given YAML file path.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshalling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest to %s: %w", path, err)
	}
	return nil
}

// Validate checks structural requirements: at least one section, unique
// non-empty ids, and a source path per section.
func (m *Manifest) Validate() error {
	if len(m.Sections) == 0 {
		return fmt.Errorf("manifest has no sections")
	}
	seen := make(map[string]bool, len(m.Sections))
	for i, s := range m.Sections {
		if s.ID == "" {
			return fmt.Errorf("section %d has an empty id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate section id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Source == "" {
			return fmt.Errorf("section %q has no source", s.ID)
		}
	}
	return nil
}

func (m *Manifest) buildIndex() {
	m.index = make(map[string]int, len(m.Sections))
	for i, s := range m.Sections {
		m.index[s.ID] = i
	}
}

// Section returns the section with the given id, or nil if unknown.
func (m *Manifest) Section(id string) *Section {
	if m.index == nil {
		m.buildIndex()
	}
	i, ok := m.index[id]
	if !ok {
		return nil
	}
	return &m.Sections[i]
}

// IndexOf returns the document-order index of the given section id and
// whether the id exists.
func (m *Manifest) IndexOf(id string) (int, bool) {
	if m.index == nil {
		m.buildIndex()
	}
	i, ok := m.index[id]
	return i, ok
}

// IsEssential reports whether the id is exempt from eviction, either via
// the fixed allow-list or the manifest's essential flag.
func (m *Manifest) IsEssential(id string) bool {
	for _, e := range EssentialSections {
		if id == e {
			return true
		}
	}
	if s := m.Section(id); s != nil {
		return s.Essential
	}
	return false
}
