package procstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"
)

func drawSpec(rt *rapid.T) LaunchSpec {
	word := rapid.StringMatching(`[a-zA-Z0-9 ./_:=-]{0,12}`)

	spec := NewLaunchSpec(
		rapid.StringMatching(`/[a-z/]{1,16}`).Draw(rt, "path"),
		rapid.SliceOfN(word, 0, 5).Draw(rt, "arguments")...,
	).WithWorkingDirectory(rapid.SampledFrom([]string{"", "/tmp", "/var/lib"}).Draw(rt, "dir"))

	if rapid.Bool().Draw(rt, "explicitEnv") {
		env := rapid.MapOfN(rapid.StringMatching(`[A-Z_]{1,8}`), word, 0, 4).Draw(rt, "env")
		spec = spec.WithEnvironment(env)
	}
	return spec
}

func TestLaunchSpecAccessorsCopy(t *testing.T) {
	args := []string{"-c", "echo hi"}
	env := map[string]string{"A": "1"}
	spec := NewLaunchSpec("/bin/sh", args...).WithEnvironment(env)

	args[0] = "mutated"
	env["A"] = "mutated"
	assert.Equal(t, []string{"-c", "echo hi"}, spec.Arguments())
	assert.Equal(t, map[string]string{"A": "1"}, spec.Environment())

	spec.Arguments()[0] = "mutated"
	spec.Environment()["B"] = "2"
	assert.Equal(t, []string{"-c", "echo hi"}, spec.Arguments())
	assert.Equal(t, map[string]string{"A": "1"}, spec.Environment())
}

func TestLaunchSpecEnvironmentModes(t *testing.T) {
	inherited := NewLaunchSpec("/bin/env")
	assert.True(t, inherited.InheritsEnvironment())
	assert.Nil(t, inherited.environ())

	empty := inherited.WithEnvironment(map[string]string{})
	assert.False(t, empty.InheritsEnvironment())
	assert.NotNil(t, empty.environ())
	assert.Empty(t, empty.environ())

	assert.False(t, inherited.Equal(empty), "inherited and empty environments differ")
	assert.NotEqual(t, inherited.Hash(), empty.Hash())

	explicit := inherited.WithEnvironment(map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"A=1", "B=2"}, explicit.environ())

	assert.True(t, explicit.WithEnvironment(nil).InheritsEnvironment())
}

func TestLaunchSpecEqual(t *testing.T) {
	base := NewLaunchSpec("/bin/echo", "a", "b").WithWorkingDirectory("/tmp")

	tests := []struct {
		name  string
		other LaunchSpec
		want  bool
	}{
		{"same", NewLaunchSpec("/bin/echo", "a", "b").WithWorkingDirectory("/tmp"), true},
		{"argument order", NewLaunchSpec("/bin/echo", "b", "a").WithWorkingDirectory("/tmp"), false},
		{"path", NewLaunchSpec("/bin/printf", "a", "b").WithWorkingDirectory("/tmp"), false},
		{"working directory", NewLaunchSpec("/bin/echo", "a", "b"), false},
		{"environment", base.WithEnvironment(map[string]string{"X": "1"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
			assert.Equal(t, tt.want, tt.other.Equal(base))
		})
	}
}

func TestLaunchSpecHashIgnoresEnvironmentOrder(t *testing.T) {
	a := NewLaunchSpec("/x").WithEnvironment(map[string]string{"A": "1", "B": "2", "C": "3"})
	b := NewLaunchSpec("/x").WithEnvironment(map[string]string{"C": "3", "A": "1", "B": "2"})
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestLaunchSpecHashFieldBoundaries(t *testing.T) {
	a := NewLaunchSpec("/x", "ab", "c")
	b := NewLaunchSpec("/x", "a", "bc")
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestLaunchSpecString(t *testing.T) {
	spec := NewLaunchSpec("/bin/sh", "-c", "echo hi").WithWorkingDirectory("/tmp")
	assert.Equal(t, `/bin/sh "-c" "echo hi" (in /tmp)`, spec.String())
}

func TestLaunchSpecYAML(t *testing.T) {
	in := `
path: /bin/sh
arguments: ["-c", "env"]
working_directory: /tmp
environment:
  FOO: bar
`
	var spec LaunchSpec
	require.NoError(t, yaml.Unmarshal([]byte(in), &spec))
	assert.Equal(t, "/bin/sh", spec.Path())
	assert.Equal(t, []string{"-c", "env"}, spec.Arguments())
	assert.Equal(t, "/tmp", spec.WorkingDirectory())
	assert.Equal(t, map[string]string{"FOO": "bar"}, spec.Environment())

	var empty LaunchSpec
	require.NoError(t, yaml.Unmarshal([]byte("path: /bin/true\nenvironment: {}\n"), &empty))
	assert.False(t, empty.InheritsEnvironment())
	assert.Empty(t, empty.Environment())

	var inherited LaunchSpec
	require.NoError(t, yaml.Unmarshal([]byte("path: /bin/true\n"), &inherited))
	assert.True(t, inherited.InheritsEnvironment())
}

func TestProperty_LaunchSpecEqualityAndHash(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		spec := drawSpec(rt)
		clone := NewLaunchSpec(spec.Path(), spec.Arguments()...).
			WithWorkingDirectory(spec.WorkingDirectory()).
			WithEnvironment(spec.Environment())

		if !spec.Equal(clone) {
			rt.Fatalf("rebuilt spec %v not equal to %v", clone, spec)
		}
		if spec.Hash() != clone.Hash() {
			rt.Fatalf("equal specs hash differently: %s vs %s", spec.Hash(), clone.Hash())
		}

		other := drawSpec(rt)
		if spec.Equal(other) != other.Equal(spec) {
			rt.Fatalf("Equal is not symmetric for %v and %v", spec, other)
		}
		if spec.Equal(other) && spec.Hash() != other.Hash() {
			rt.Fatalf("equal specs %v and %v hash differently", spec, other)
		}
	})
}

func TestProperty_LaunchSpecYAMLRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		spec := drawSpec(rt)

		out, err := yaml.Marshal(spec)
		if err != nil {
			rt.Fatalf("marshal: %v", err)
		}
		var back LaunchSpec
		if err := yaml.Unmarshal(out, &back); err != nil {
			rt.Fatalf("unmarshal %q: %v", out, err)
		}
		if !spec.Equal(back) {
			rt.Fatalf("round trip changed %v into %v (yaml %q)", spec, back, out)
		}
	})
}
