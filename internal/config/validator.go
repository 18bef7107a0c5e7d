package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the entire configuration.
//
// Returns nil if valid, or a ValidationErrors containing all validation errors.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Count < 1 {
		errs.Add("count", "count must be at least 1")
	}
	if c.WarmUpCount < 0 {
		errs.Add("warmUpCount", "warmUpCount cannot be negative")
	}
	if c.CoolDownCount < 0 {
		errs.Add("coolDownCount", "coolDownCount cannot be negative")
	}
	if c.MaxConsecutiveFailures < -1 {
		errs.Add("maxConsecutiveFailures", "maxConsecutiveFailures must be -1 or greater")
	}
	if c.OverheadThreshold < 0 {
		errs.Add("overheadThreshold", "overheadThreshold cannot be negative")
	}
	if c.MaximumDurationInMinutes < 0 {
		errs.Add("maximumDurationInMinutes", "maximumDurationInMinutes cannot be negative")
	}

	validateTimeout("timeout", &c.Timeout, errs)
	validateStats(c, errs)

	validateExtensions("assertors", c.Assertors, errs)
	validateExtensions("exporters", c.Exporters, errs)
	validateExtensions("services", c.Services, errs)

	if len(c.Scenarios) == 0 {
		errs.Add("scenarios", "at least one scenario is required")
	}

	seen := make(map[string]bool)
	for i, sc := range c.Scenarios {
		prefix := fmt.Sprintf("scenarios[%d]", i)
		if sc == nil {
			errs.Add(prefix, "scenario cannot be empty")
			continue
		}
		if sc.Name != "" {
			if seen[sc.Name] {
				errs.Add(prefix+".name", fmt.Sprintf("duplicate scenario name: %s", sc.Name))
			}
			seen[sc.Name] = true
		}
		if sc.ProcessName == "" && c.ProcessName == "" {
			errs.Add(prefix+".processName", "processName is required (on the scenario or at the top level)")
		}
		if sc.Timeout != nil {
			validateTimeout(prefix+".timeout", sc.Timeout, errs)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateTimeout(prefix string, t *Timeout, errs *ValidationErrors) {
	if t.MaxDuration < 0 {
		errs.Add(prefix+".maxDuration", "maxDuration cannot be negative")
	}
	if t.ProcessArguments != "" && t.ProcessName == "" {
		errs.Add(prefix+".processName", "processName is required when processArguments is set")
	}
}

func validateStats(c *Config, errs *ValidationErrors) {
	o := c.StatsOptions
	if o.StartThreshold < 0 || o.ThresholdStep < 0 || o.MaxDurationThreshold < 0 || o.MaxMetricThreshold < 0 {
		errs.Add("statsOptions", "thresholds cannot be negative")
	}
	if o.MaxDurationThreshold > 0 && o.StartThreshold > o.MaxDurationThreshold {
		errs.Add("statsOptions.startThreshold", "startThreshold cannot exceed maxDurationThreshold")
	}
	if o.MaxOutlierFraction < 0 || o.MaxOutlierFraction > 1 {
		errs.Add("statsOptions.maxOutlierFraction", "maxOutlierFraction must be between 0 and 1")
	}
	if o.BinCount < 0 {
		errs.Add("statsOptions.binCount", "binCount cannot be negative")
	}
}

func validateExtensions(field string, exts []ExtensionConfig, errs *ValidationErrors) {
	for i, ext := range exts {
		if strings.TrimSpace(ext.Name) == "" {
			errs.Add(fmt.Sprintf("%s[%d].name", field, i), "extension name is required")
		}
	}
}
