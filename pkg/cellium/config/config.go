// Package config loads kernel configuration.
//
// Config is a forgiving map wrapper: accessors return defaults instead of
// errors, so a partial file still yields a runnable kernel. Settings is
// the typed extraction the kernel consumes.
package config

import (
	"time"
)

// Config wraps a map[string]any for type-safe value extraction.
// All accessor methods return default values if the key is missing
// or the value cannot be converted to the requested type.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (c Config) String(key, defaultVal string) string {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (c Config) Bool(key string, defaultVal bool) bool {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
//
// Accepts:
//   - int: used directly
//   - int64: converted to int
//   - float64: converted to int (only if no fractional part)
func (c Config) Int(key string, defaultVal int) int {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Duration returns the duration value for key, or defaultVal if missing or invalid.
//
// Accepts:
//   - string: parsed with time.ParseDuration
//   - int, int64, float64: interpreted as seconds
//   - time.Duration: used directly
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return defaultVal
}

// StringSlice returns the string slice for key, or defaultVal if missing or not convertible.
//
// Accepts:
//   - []string: used directly
//   - []any: each element converted to string if possible
func (c Config) StringSlice(key string, defaultVal []string) []string {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				result = append(result, s)
			} else {
				return defaultVal
			}
		}
		return result
	}
	return defaultVal
}

// Settings is the kernel configuration surface.
type Settings struct {
	// Cells is the ordered list of cell factory identifiers to load.
	Cells []string

	// StrictLoad aborts startup on any cell construction failure.
	// When false, failed cells are logged and skipped.
	StrictLoad bool

	// Workers is the process pool size.
	Workers int

	// QueueSize bounds the process manager's pending queue.
	QueueSize int

	// DefaultTimeout applies to work units submitted without one.
	DefaultTimeout time.Duration

	// DeadLetterPath is the SQLite file for failed event deliveries.
	// Empty keeps failures in memory only.
	DeadLetterPath string
}

// DefaultSettings provides reasonable defaults.
var DefaultSettings = Settings{
	StrictLoad:     true,
	Workers:        2,
	QueueSize:      64,
	DefaultTimeout: 30 * time.Second,
}

// FromConfig extracts kernel settings, falling back to DefaultSettings
// for anything absent.
func FromConfig(c Config) Settings {
	return Settings{
		Cells:          c.StringSlice("cells", nil),
		StrictLoad:     c.Bool("strict_load", DefaultSettings.StrictLoad),
		Workers:        c.Int("workers", DefaultSettings.Workers),
		QueueSize:      c.Int("queue_size", DefaultSettings.QueueSize),
		DefaultTimeout: c.Duration("default_timeout", DefaultSettings.DefaultTimeout),
		DeadLetterPath: c.String("dead_letter_path", ""),
	}
}
