// Package config holds domscope's persisted settings: the browser section,
// the navigation allowlist built from it, and the scenario catalog.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	// globalManager is the process-wide configuration manager
	globalManager *Manager
	globalMu      sync.Mutex
)

// DefaultDir returns ~/.domscope, where config and logs live.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".domscope"), nil
}

// Initialize loads the configuration file at configPath (or the default
// location) and installs it as the global manager.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)
	if err := manager.RegisterSection(NewBrowserSection()); err != nil {
		return err
	}
	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetBrowser returns the browser section of the global config, or nil
// before Initialize.
func GetBrowser() *BrowserSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDBrowser)
	if !ok {
		return nil
	}
	browser, _ := section.(*BrowserSection)
	return browser
}
