package config

// Section is one independently validated block of configuration, stored
// under its ID in the config file.
type Section interface {
	// ID returns the key the section is stored under
	ID() string

	// Title returns a short human-readable name
	Title() string

	// Description explains what the section configures
	Description() string

	// Data returns the section's current values in their stored form
	Data() map[string]interface{}

	// SetData applies stored values; unknown keys are ignored
	SetData(data map[string]interface{}) error

	// Validate checks the current values
	Validate() error

	// Reset restores the defaults
	Reset()
}
