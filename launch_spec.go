package procstream

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// LaunchSpec describes how to launch a process: the executable path, its
// arguments, the working directory and the environment.
//
// A LaunchSpec is immutable. The With* methods return modified copies and
// the accessors return copies of the underlying slices and maps.
//
// An empty working directory means the child inherits the caller's working
// directory. A nil environment means the child inherits the caller's
// environment; a non-nil one (even empty) is the child's complete
// environment.
//
// No validation happens at construction time. A path that does not exist or
// is not executable surfaces as a launch failure when the spec is launched.
type LaunchSpec struct {
	path        string
	arguments   []string
	workingDir  string
	environment map[string]string
}

// NewLaunchSpec returns a LaunchSpec for path with the given arguments.
func NewLaunchSpec(path string, args ...string) LaunchSpec {
	return LaunchSpec{
		path:      path,
		arguments: slices.Clone(args),
	}
}

// WithArguments returns a copy of s with its arguments replaced.
func (s LaunchSpec) WithArguments(args ...string) LaunchSpec {
	s.arguments = slices.Clone(args)
	return s
}

// WithWorkingDirectory returns a copy of s that runs in dir.
func (s LaunchSpec) WithWorkingDirectory(dir string) LaunchSpec {
	s.workingDir = dir
	return s
}

// WithEnvironment returns a copy of s whose child sees exactly env.
// Passing nil restores inheritance of the caller's environment.
func (s LaunchSpec) WithEnvironment(env map[string]string) LaunchSpec {
	s.environment = maps.Clone(env)
	if env != nil && s.environment == nil {
		s.environment = map[string]string{}
	}
	return s
}

// Path returns the executable path.
func (s LaunchSpec) Path() string { return s.path }

// Arguments returns a copy of the argument list.
func (s LaunchSpec) Arguments() []string { return slices.Clone(s.arguments) }

// WorkingDirectory returns the working directory, or "" when inherited.
func (s LaunchSpec) WorkingDirectory() string { return s.workingDir }

// Environment returns a copy of the environment, or nil when inherited.
func (s LaunchSpec) Environment() map[string]string {
	if s.environment == nil {
		return nil
	}
	return maps.Clone(s.environment)
}

// InheritsEnvironment reports whether the child inherits the caller's
// environment.
func (s LaunchSpec) InheritsEnvironment() bool { return s.environment == nil }

// Equal reports whether s and o describe the same launch. Arguments are
// compared in order; the environment is compared as a set of pairs, and an
// inherited environment never equals an explicit one.
func (s LaunchSpec) Equal(o LaunchSpec) bool {
	if s.path != o.path || s.workingDir != o.workingDir {
		return false
	}
	if !slices.Equal(s.arguments, o.arguments) {
		return false
	}
	if (s.environment == nil) != (o.environment == nil) {
		return false
	}
	return maps.Equal(s.environment, o.environment)
}

// Hash returns a hex-encoded BLAKE3 digest of the spec. Equal specs have
// equal hashes.
func (s LaunchSpec) Hash() string {
	h := blake3.New()

	writeField := func(v string) {
		var n [binary.MaxVarintLen64]byte
		_, _ = h.Write(n[:binary.PutUvarint(n[:], uint64(len(v)))])
		_, _ = h.Write([]byte(v))
	}
	writeCount := func(c int) {
		var n [binary.MaxVarintLen64]byte
		_, _ = h.Write(n[:binary.PutUvarint(n[:], uint64(c))])
	}

	writeField(s.path)
	writeCount(len(s.arguments))
	for _, a := range s.arguments {
		writeField(a)
	}
	writeField(s.workingDir)

	if s.environment == nil {
		_, _ = h.Write([]byte{0})
	} else {
		_, _ = h.Write([]byte{1})
		keys := slices.Sorted(maps.Keys(s.environment))
		writeCount(len(keys))
		for _, k := range keys {
			writeField(k)
			writeField(s.environment[k])
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// String returns a shell-like rendering of the spec for logs.
func (s LaunchSpec) String() string {
	var b strings.Builder
	b.WriteString(s.path)
	for _, a := range s.arguments {
		fmt.Fprintf(&b, " %q", a)
	}
	if s.workingDir != "" {
		fmt.Fprintf(&b, " (in %s)", s.workingDir)
	}
	return b.String()
}

// environ renders the environment in the form expected by exec.Cmd.Env.
// It returns nil when the environment is inherited.
func (s LaunchSpec) environ() []string {
	if s.environment == nil {
		return nil
	}
	env := make([]string, 0, len(s.environment))
	for _, k := range slices.Sorted(maps.Keys(s.environment)) {
		env = append(env, k+"="+s.environment[k])
	}
	return env
}

type launchSpecYAML struct {
	Path             string             `yaml:"path"`
	Arguments        []string           `yaml:"arguments,omitempty"`
	WorkingDirectory string             `yaml:"working_directory,omitempty"`
	Environment      *map[string]string `yaml:"environment,omitempty"`
}

// MarshalYAML implements yaml.Marshaler. An explicit empty environment is
// written as an empty mapping so it survives a round trip.
func (s LaunchSpec) MarshalYAML() (any, error) {
	raw := launchSpecYAML{
		Path:             s.path,
		Arguments:        s.arguments,
		WorkingDirectory: s.workingDir,
	}
	if s.environment != nil {
		env := s.environment
		raw.Environment = &env
	}
	return raw, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *LaunchSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw launchSpecYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	spec := NewLaunchSpec(raw.Path, raw.Arguments...).
		WithWorkingDirectory(raw.WorkingDirectory)
	if raw.Environment != nil {
		env := *raw.Environment
		if env == nil {
			env = map[string]string{}
		}
		spec = spec.WithEnvironment(env)
	}

	*s = spec
	return nil
}
