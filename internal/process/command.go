// Package process spawns the benchmarked programs and the timeout killers.
package process

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// PIDPlaceholder is replaced by the target's PID in killer arguments.
const PIDPlaceholder = "%pid%"

// Command describes a process to spawn. Callbacks may mutate it before the
// process starts.
type Command struct {
	Name string
	Args []string
	Dir  string

	// Env overrides or extends the inherited environment.
	Env map[string]string

	// InheritEnv copies the harness environment into the child before Env
	// is applied.
	InheritEnv bool

	// OnStart is called with the child's PID right after it starts.
	OnStart func(pid int)
}

// NewCommand returns a command inheriting the harness environment.
func NewCommand(name string, args ...string) *Command {
	return &Command{
		Name:       name,
		Args:       args,
		Env:        make(map[string]string),
		InheritEnv: true,
	}
}

// SetEnv sets one environment variable.
func (c *Command) SetEnv(key, value string) *Command {
	if c.Env == nil {
		c.Env = make(map[string]string)
	}
	c.Env[key] = value
	return c
}

// AddArgs appends arguments.
func (c *Command) AddArgs(args ...string) *Command {
	c.Args = append(c.Args, args...)
	return c
}

// Clone returns a deep copy of c.
func (c *Command) Clone() *Command {
	clone := *c
	clone.Args = append([]string(nil), c.Args...)
	clone.Env = make(map[string]string, len(c.Env))
	for k, v := range c.Env {
		clone.Env[k] = v
	}
	return &clone
}

// Environ returns the final environment in KEY=VALUE form. Keys set in Env
// replace inherited ones.
func (c *Command) Environ() []string {
	merged := make(map[string]string)
	if c.InheritEnv {
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
				merged[k] = v
			}
		}
	}
	for k, v := range c.Env {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// String renders the command line for logs.
func (c *Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	for i, p := range parts {
		if strings.ContainsAny(p, " \t\"") {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, " ")
}

// SubstitutePID replaces PIDPlaceholder in every argument.
func SubstitutePID(args []string, pid int) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = strings.ReplaceAll(arg, PIDPlaceholder, strconv.Itoa(pid))
	}
	return result
}

// SplitArgs splits a command line on whitespace, honoring double quotes.
func SplitArgs(line string) []string {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case (r == ' ' || r == '\t' || r == '\n') && !quoted:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, current.String())
	}
	return args
}
