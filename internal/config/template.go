package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
)

// Built-in template variable names.
const (
	VarCWD       = "CWD"
	VarHome      = "HOME"
	VarTimeitDir = "TIMEIT_DIR"
	VarOS        = "OS"
	VarArch      = "ARCH"
	VarName      = "NAME"
	envPrefix    = "ENV:"
)

// varPattern matches $(var) and $(ENV:VAR) placeholders.
var varPattern = regexp.MustCompile(`\$\(([^)]+)\)`)

// TemplateVars returns the built-in variables for one scenario merged under
// the user variables of the configuration.
func (c *Config) TemplateVars(scenarioName string) map[string]string {
	cwd, _ := os.Getwd()
	home, _ := os.UserHomeDir()

	builtins := map[string]string{
		VarCWD:       cwd,
		VarHome:      home,
		VarTimeitDir: c.Dir(),
		VarOS:        runtime.GOOS,
		VarArch:      runtime.GOARCH,
		VarName:      scenarioName,
	}
	return MergeMaps(builtins, c.Variables)
}

// Expand replaces $(var) and $(ENV:VAR) placeholders in text. Unknown
// placeholders are left in place and reported together in the error.
func Expand(text string, vars map[string]string) (string, error) {
	if !strings.Contains(text, "$(") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]

		if strings.HasPrefix(name, envPrefix) {
			envName := name[len(envPrefix):]
			if val, ok := os.LookupEnv(envName); ok {
				return val
			}
			errs = append(errs, fmt.Errorf("env var %q not set", envName))
			return match
		}

		if val, ok := vars[name]; ok {
			return val
		}
		errs = append(errs, fmt.Errorf("variable %q not found", name))
		return match
	})

	return result, errors.Join(errs...)
}

// ExpandMap applies Expand to every value of m.
func ExpandMap(m map[string]string, vars map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]string, len(m))
	var errs []error
	for k, v := range m {
		expanded, err := Expand(v, vars)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
		result[k] = expanded
	}
	return result, errors.Join(errs...)
}

// ExpandScenario expands every string field of s in place.
func ExpandScenario(s *Scenario, vars map[string]string) error {
	var errs []error
	expand := func(field string, target *string) {
		v, err := Expand(*target, vars)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
		*target = v
	}

	expand("processName", &s.ProcessName)
	expand("processArguments", &s.ProcessArguments)
	expand("workingDirectory", &s.WorkingDirectory)
	expand("environmentFile", &s.EnvironmentFile)
	for i := range s.PathValidations {
		expand(fmt.Sprintf("pathValidations[%d]", i), &s.PathValidations[i])
	}
	if s.Timeout != nil {
		expand("timeout.processName", &s.Timeout.ProcessName)
		expand("timeout.processArguments", &s.Timeout.ProcessArguments)
	}

	env, err := ExpandMap(s.EnvironmentVariables, vars)
	if err != nil {
		errs = append(errs, fmt.Errorf("environmentVariables: %w", err))
	}
	s.EnvironmentVariables = env

	tags, err := ExpandMap(s.Tags, vars)
	if err != nil {
		errs = append(errs, fmt.Errorf("tags: %w", err))
	}
	s.Tags = tags

	return errors.Join(errs...)
}
