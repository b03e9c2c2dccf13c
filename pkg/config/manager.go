package config

import (
	"fmt"
	"sync"
)

// Manager owns the registered sections and moves their data to and from a
// Store.
type Manager struct {
	store    Store
	sections map[string]Section
	order    []string
	mu       sync.RWMutex
}

// NewManager creates a manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// RegisterSection adds a section. IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q already registered", id)
	}
	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection returns the section registered under id.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sections[id]
	return s, ok
}

// GetSections returns every section in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sections[id])
	}
	return out
}

// LoadAll reloads the store and applies its data to every section.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, s := range m.GetSections() {
		data, err := m.store.GetSection(s.ID())
		if err != nil {
			return fmt.Errorf("failed to read section %s: %w", s.ID(), err)
		}
		if err := s.SetData(data); err != nil {
			return fmt.Errorf("invalid %s config: %w", s.ID(), err)
		}
	}
	return nil
}

// SaveAll validates every section, then writes them all to the store.
// Nothing is written if any section is invalid.
func (m *Manager) SaveAll() error {
	sections := m.GetSections()
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid %s config: %w", s.ID(), err)
		}
	}

	for _, s := range sections {
		if err := m.store.SetSection(s.ID(), s.Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", s.ID(), err)
		}
	}
	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ResetAll restores every section to its defaults.
func (m *Manager) ResetAll() {
	for _, s := range m.GetSections() {
		s.Reset()
	}
}
