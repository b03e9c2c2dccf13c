package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

const (
	// SectionIDBrowser is the identifier for the browser settings section
	SectionIDBrowser = "browser"

	defaultHeadless          = true
	defaultSingleInstance    = true
	defaultIdleTimeout       = 5 * time.Minute
	defaultNavigationTimeout = 15 * time.Second
	defaultQueryTimeout      = 8 * time.Second
)

// BrowserSettings is an immutable snapshot of the browser section.
type BrowserSettings struct {
	Headless          bool
	BaseURL           string
	AllowedOrigins    []string
	IdleTimeout       time.Duration
	NavigationTimeout time.Duration
	QueryTimeout      time.Duration
	StorageState      string
	SingleInstance    bool
	HooksPath         string
	ScenariosPath     string
}

// DefaultBrowserSettings returns the built-in defaults.
func DefaultBrowserSettings() BrowserSettings {
	return BrowserSettings{
		Headless:          defaultHeadless,
		IdleTimeout:       defaultIdleTimeout,
		NavigationTimeout: defaultNavigationTimeout,
		QueryTimeout:      defaultQueryTimeout,
		SingleInstance:    defaultSingleInstance,
	}
}

// Allowlist compiles the settings' allowed origins.
func (b BrowserSettings) Allowlist() (*OriginAllowlist, error) {
	return NewOriginAllowlist(b.AllowedOrigins)
}

// BrowserSection manages the browser session configuration.
type BrowserSection struct {
	mu       sync.RWMutex
	settings BrowserSettings
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{settings: DefaultBrowserSettings()}
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Browser session settings: headless mode, base URL, navigation allowlist, timeouts, storage state and scenario hooks."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	origins := make([]interface{}, len(s.settings.AllowedOrigins))
	for i, o := range s.settings.AllowedOrigins {
		origins[i] = o
	}
	return map[string]interface{}{
		"headless":           s.settings.Headless,
		"base_url":           s.settings.BaseURL,
		"allowed_origins":    origins,
		"idle_timeout":       s.settings.IdleTimeout.String(),
		"navigation_timeout": s.settings.NavigationTimeout.String(),
		"query_timeout":      s.settings.QueryTimeout.String(),
		"storage_state":      s.settings.StorageState,
		"single_instance":    s.settings.SingleInstance,
		"hooks_path":         s.settings.HooksPath,
		"scenarios_path":     s.settings.ScenariosPath,
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	for key, value := range data {
		var err error
		switch key {
		case "headless":
			err = setBool(&next.Headless, key, value)
		case "single_instance":
			err = setBool(&next.SingleInstance, key, value)
		case "base_url":
			err = setString(&next.BaseURL, key, value)
		case "storage_state":
			err = setString(&next.StorageState, key, value)
		case "hooks_path":
			err = setString(&next.HooksPath, key, value)
		case "scenarios_path":
			err = setString(&next.ScenariosPath, key, value)
		case "idle_timeout":
			err = setDuration(&next.IdleTimeout, key, value)
		case "navigation_timeout":
			err = setDuration(&next.NavigationTimeout, key, value)
		case "query_timeout":
			err = setDuration(&next.QueryTimeout, key, value)
		case "allowed_origins":
			err = setStrings(&next.AllowedOrigins, key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}

	s.settings = next
	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	return s.Snapshot().Validate()
}

// Validate checks the settings for consistency.
func (b BrowserSettings) Validate() error {
	if b.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %v", b.IdleTimeout)
	}
	if b.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be positive, got %v", b.NavigationTimeout)
	}
	if b.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive, got %v", b.QueryTimeout)
	}
	if b.BaseURL != "" {
		u, err := url.Parse(b.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base_url must be an absolute URL, got %q", b.BaseURL)
		}
	}
	if _, err := b.Allowlist(); err != nil {
		return err
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = DefaultBrowserSettings()
}

// Snapshot returns a copy of the current settings.
func (s *BrowserSection) Snapshot() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.settings
	snap.AllowedOrigins = append([]string(nil), s.settings.AllowedOrigins...)
	return snap
}

// Update applies fn to a copy of the settings and stores the result.
func (s *BrowserSection) Update(fn func(*BrowserSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	next.AllowedOrigins = append([]string(nil), s.settings.AllowedOrigins...)
	fn(&next)
	s.settings = next
}

func setBool(dst *bool, key string, value interface{}) error {
	v, ok := value.(bool)
	if !ok {
		return fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
	}
	*dst = v
	return nil
}

func setString(dst *string, key string, value interface{}) error {
	v, ok := value.(string)
	if !ok {
		return fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
	}
	*dst = v
	return nil
}

func setDuration(dst *time.Duration, key string, value interface{}) error {
	switch v := value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		*dst = d
	case float64:
		// JSON numbers are nanoseconds
		*dst = time.Duration(v)
	default:
		return fmt.Errorf("invalid value type for %s: expected string or number, got %T", key, value)
	}
	return nil
}

func setStrings(dst *[]string, key string, value interface{}) error {
	switch v := value.(type) {
	case []string:
		*dst = append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("invalid entry in %s: expected string, got %T", key, item)
			}
			out = append(out, s)
		}
		*dst = out
	case nil:
		*dst = nil
	default:
		return fmt.Errorf("invalid value type for %s: expected list of strings, got %T", key, value)
	}
	return nil
}
