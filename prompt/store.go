// Package prompt provides the versioned prompt template store used by the
// LLM gateway. Templates are registered by ID so stage prompts are testable
// and can be overridden per deployment without code changes.
package prompt

import (
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/infumatch/negotiator/model"
)

// Template is one registered prompt template.
type Template struct {
	// ID is the stable template identifier stages request completions by.
	ID string

	// Capability selects which model class serves this template.
	Capability model.Capability

	// System is the static system prompt sent with every render.
	System string

	// User is the user-message template, rendered with per-call variables.
	User *template.Template

	// Temperature overrides the endpoint default when non-nil.
	Temperature *float64

	// MaxTokens limits the response length. 0 uses the endpoint default.
	MaxTokens int
}

// Rendered is the result of rendering a template with variables.
type Rendered struct {
	Template *Template
	System   string
	User     string
}

// Store holds registered templates keyed by ID.
// Safe for concurrent use; Render never mutates store state.
type Store struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewStore creates an empty template store.
func NewStore() *Store {
	return &Store{templates: make(map[string]*Template)}
}

// DefaultStore creates a store pre-loaded with the built-in stage templates.
func DefaultStore() *Store {
	s := NewStore()
	registerBuiltins(s)
	return s
}

// Register adds or replaces a template.
func (s *Store) Register(t *Template) error {
	if t.ID == "" {
		return fmt.Errorf("template ID is required")
	}
	if t.User == nil {
		return fmt.Errorf("template %q has no user template", t.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
	return nil
}

// RegisterText parses userText as a text/template and registers it.
func (s *Store) RegisterText(id string, capability model.Capability, system, userText string) error {
	tmpl, err := template.New(id).Option("missingkey=error").Parse(userText)
	if err != nil {
		return fmt.Errorf("parse template %q: %w", id, err)
	}
	return s.Register(&Template{
		ID:         id,
		Capability: capability,
		System:     system,
		User:       tmpl,
	})
}

// Lookup returns the template for an ID.
func (s *Store) Lookup(id string) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	return t, ok
}

// List returns all registered template IDs.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	return ids
}

// Render produces the system and user prompts for a template ID.
func (s *Store) Render(id string, vars map[string]any) (*Rendered, error) {
	t, ok := s.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown prompt template: %q", id)
	}

	var sb strings.Builder
	if err := t.User.Execute(&sb, vars); err != nil {
		return nil, fmt.Errorf("render template %q: %w", id, err)
	}

	return &Rendered{
		Template: t,
		System:   t.System,
		User:     sb.String(),
	}, nil
}

// overrideUserText replaces the user template text for an existing ID,
// preserving its capability and system prompt. Unknown IDs are registered
// fresh with the fast capability.
func (s *Store) overrideUserText(id, userText string) error {
	tmpl, err := template.New(id).Option("missingkey=error").Parse(userText)
	if err != nil {
		return fmt.Errorf("parse template %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.templates[id]; ok {
		updated := *existing
		updated.User = tmpl
		s.templates[id] = &updated
		return nil
	}

	s.templates[id] = &Template{
		ID:         id,
		Capability: model.CapabilityFast,
		User:       tmpl,
	}
	return nil
}
