package sources

import (
	"fmt"
	"regexp"
)

const (
	defaultRefreshInterval = 15
	defaultMaxItems        = 50
)

// Config describes one content source loaded from a YAML file.
type Config struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	URL             string   `yaml:"url"`
	Enabled         *bool    `yaml:"enabled"`
	RefreshInterval int      `yaml:"refresh_interval"`
	MaxItems        int      `yaml:"max_items"`
	BaseImportance  float64  `yaml:"base_importance"`
	FocusBonus      float64  `yaml:"focus_bonus"`
	FocusPatterns   []string `yaml:"focus_patterns"`
	ExtractContent  bool     `yaml:"extract_content"`

	focusRegexps []*regexp.Regexp
}

// IsEnabled treats a missing enabled flag as on.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// FocusRegexps returns the compiled focus patterns.
func (c *Config) FocusRegexps() []*regexp.Regexp {
	return c.focusRegexps
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.MaxItems <= 0 {
		c.MaxItems = defaultMaxItems
	}
}

func (c *Config) validate() error {
	if c.ID == "" {
		return fmt.Errorf("source id is required")
	}
	if c.URL == "" {
		return fmt.Errorf("source %s has no url", c.ID)
	}

	c.focusRegexps = c.focusRegexps[:0]
	for _, pattern := range c.FocusPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return fmt.Errorf("source %s has invalid focus pattern %q: %w", c.ID, pattern, err)
		}
		c.focusRegexps = append(c.focusRegexps, re)
	}

	return nil
}
