package views

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// View is a saved query preset for one database: which columns to show,
// which filter expression to apply, and how many entries to fetch.
type View struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Database    string    `yaml:"database"`
	Columns     []string  `yaml:"columns,omitempty"`
	Filter      string    `yaml:"filter,omitempty"`
	Limit       int       `yaml:"limit,omitempty"`
	Description string    `yaml:"description,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

// AmbiguousViewError reports a prefix that matched more than one view.
type AmbiguousViewError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousViewError) Error() string {
	return fmt.Sprintf("view prefix %q is ambiguous: matches %s",
		e.Prefix, strings.Join(e.Matches, ", "))
}

// ViewNotFoundError reports a name or prefix that matched nothing.
type ViewNotFoundError struct {
	Name string
}

func (e *ViewNotFoundError) Error() string {
	return fmt.Sprintf("view %q not found", e.Name)
}

// Manager manages saved views.
type Manager struct {
	path  string
	views []View
}

// NewManager creates a views manager backed by views.yaml in configDir.
func NewManager(configDir string) (*Manager, error) {
	m := &Manager{
		path:  filepath.Join(configDir, "views.yaml"),
		views: []View{},
	}

	if _, err := os.Stat(m.path); err == nil {
		if err := m.Load(); err != nil {
			return nil, fmt.Errorf("failed to load views: %w", err)
		}
	}

	return m, nil
}

// Load loads views from the YAML file.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read views file: %w", err)
	}
	if err := yaml.Unmarshal(data, &m.views); err != nil {
		return fmt.Errorf("failed to parse views: %w", err)
	}
	return nil
}

// Save writes views to the YAML file.
func (m *Manager) Save() error {
	data, err := yaml.Marshal(m.views)
	if err != nil {
		return fmt.Errorf("failed to marshal views: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write views file: %w", err)
	}
	return nil
}

// Add saves a new view. Names are unique, ignoring case.
func (m *Manager) Add(view View) (*View, error) {
	view.Name = strings.TrimSpace(view.Name)
	view.Database = strings.TrimSpace(view.Database)

	if view.Name == "" {
		return nil, fmt.Errorf("view name cannot be empty")
	}
	if view.Database == "" {
		return nil, fmt.Errorf("view database cannot be empty")
	}

	for _, v := range m.views {
		if strings.EqualFold(v.Name, view.Name) {
			return nil, fmt.Errorf("a view with the name '%s' already exists (names are case-insensitive)", view.Name)
		}
	}

	view.ID = uuid.New().String()
	view.CreatedAt = time.Now()
	view.UpdatedAt = time.Now()

	m.views = append(m.views, view)
	if err := m.Save(); err != nil {
		return nil, fmt.Errorf("failed to save view: %w", err)
	}
	return &view, nil
}

// Get returns a view by exact name, ignoring case.
func (m *Manager) Get(name string) (*View, bool) {
	for i := range m.views {
		if strings.EqualFold(m.views[i].Name, name) {
			return &m.views[i], true
		}
	}
	return nil, false
}

// Resolve finds a view by exact name first, then by unique name prefix.
// An ambiguous prefix is an error rather than a prompt.
func (m *Manager) Resolve(name string) (*View, error) {
	if v, ok := m.Get(name); ok {
		return v, nil
	}

	var matches []*View
	for i := range m.views {
		if strings.HasPrefix(strings.ToLower(m.views[i].Name), strings.ToLower(name)) {
			matches = append(matches, &m.views[i])
		}
	}

	switch len(matches) {
	case 0:
		return nil, &ViewNotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, v := range matches {
			names[i] = v.Name
		}
		return nil, &AmbiguousViewError{Prefix: name, Matches: names}
	}
}

// Delete removes a view by name. Returns false if no view matched.
func (m *Manager) Delete(name string) (bool, error) {
	for i, v := range m.views {
		if strings.EqualFold(v.Name, name) {
			m.views = append(m.views[:i], m.views[i+1:]...)
			if err := m.Save(); err != nil {
				return false, fmt.Errorf("failed to save views after deletion: %w", err)
			}
			return true, nil
		}
	}
	return false, nil
}

// List returns all views sorted by name.
func (m *Manager) List() []View {
	list := make([]View, len(m.views))
	copy(list, m.views)
	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list
}
