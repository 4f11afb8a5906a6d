package config

import (
	"fmt"
	"strings"
)

// ValidOutputFormats lists the accepted values for the output setting.
var ValidOutputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataPath == "" && len(c.FallbackPaths) == 0 {
		return fmt.Errorf("data_path is required")
	}

	if c.OutputFormat != "" {
		valid := false
		for _, f := range ValidOutputFormats {
			if c.OutputFormat == f {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid output format %q (valid: %s)", c.OutputFormat, strings.Join(ValidOutputFormats, ", "))
		}
	}

	return nil
}

// ValidateData checks that an input table exists at one of the configured
// locations. Commands that render graphs call this up front so the user gets
// a hint instead of a bare not-found error.
func (c *Config) ValidateData() error {
	if _, err := c.Source().Resolve(); err != nil {
		return fmt.Errorf("%w\nHint: Create the file or use --data to point at your feed inventory", err)
	}
	return nil
}
