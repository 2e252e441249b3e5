package config

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-harvest/relbuild/internal/domain/platform"
)

// newTestCmd binds the target flags to cfg and parses args.
func newTestCmd(t *testing.T, cfg *EffectiveConfig, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	f := cmd.Flags()
	f.StringVar(&cfg.Home.Value, FlagHome, cfg.Home.Value, "")
	f.StringVar(&cfg.CompilerTriple.Value, FlagTriple, cfg.CompilerTriple.Value, "")
	f.StringVar(&cfg.PlatformTag.Value, FlagTag, cfg.PlatformTag.Value, "")
	f.StringVar(&cfg.Platform.Value, FlagPlatform, cfg.Platform.Value, "")
	f.BoolVar(&cfg.NoColor.Value, FlagNoColor, cfg.NoColor.Value, "")
	f.BoolVar(&cfg.RequireChecks.Value, FlagRequireChecks, cfg.RequireChecks.Value, "")
	f.IntVar(&cfg.Jobs.Value, FlagJobs, cfg.Jobs.Value, "")
	f.StringSliceVar(&cfg.Include.Value, FlagInclude, cfg.Include.Value, "")
	require.NoError(t, f.Parse(args))
	return cmd
}

func envOf(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }

func TestMerge_Precedence(t *testing.T) {
	file := &FileConfig{CompilerTriple: strPtr("from-file")}

	tests := []struct {
		name       string
		args       []string
		env        map[string]string
		wantValue  string
		wantSource ConfigSource
	}{
		{"file over default", nil, nil, "from-file", SourceConfigFile},
		{"env over file", nil, map[string]string{EnvCompilerTriple: "from-env"}, "from-env", SourceEnvironment},
		{"flag over env", []string{"--triple", "from-flag"}, map[string]string{EnvCompilerTriple: "from-env"}, "from-flag", SourceFlag},
		{"empty env ignored", nil, map[string]string{EnvCompilerTriple: ""}, "from-file", SourceConfigFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewEffectiveConfig("/home/u/.relbuild")
			cmd := newTestCmd(t, cfg, tt.args...)
			cfg.Merge(cmd, file, envOf(tt.env))
			assert.Equal(t, tt.wantValue, cfg.CompilerTriple.Value)
			assert.Equal(t, tt.wantSource, cfg.CompilerTriple.Source)
		})
	}
}

func TestMerge_Defaults(t *testing.T) {
	cfg := NewEffectiveConfig("/home/u/.relbuild")
	cfg.Merge(newTestCmd(t, cfg), nil, nil)

	assert.Equal(t, "/home/u/.relbuild", cfg.Home.Value)
	assert.Equal(t, SourceDefault, cfg.Home.Source)
	assert.Equal(t, platform.DefaultTriple, cfg.CompilerTriple.Value)
	assert.Equal(t, platform.DefaultTag, cfg.PlatformTag.Value)
	assert.Equal(t, DefaultJobs, cfg.Jobs.Value)
	assert.NoError(t, cfg.Validate())
}

func TestMerge_BoolFlagFalseKeepsFileTrue(t *testing.T) {
	cfg := NewEffectiveConfig("/h")
	cmd := newTestCmd(t, cfg)
	cfg.Merge(cmd, &FileConfig{RequireChecks: boolPtr(true)}, nil)

	assert.True(t, cfg.RequireChecks.Value)
	assert.Equal(t, SourceConfigFile, cfg.RequireChecks.Source)
}

func TestMerge_EnvironmentKeys(t *testing.T) {
	cfg := NewEffectiveConfig("/h")
	cfg.Merge(newTestCmd(t, cfg), nil, envOf(map[string]string{
		EnvHome:        "/srv/relbuild",
		EnvNoColor:     "1",
		EnvPlatformTag: "linux-arm64",
	}))

	assert.Equal(t, "/srv/relbuild", cfg.Home.Value)
	assert.Equal(t, SourceEnvironment, cfg.Home.Source)
	assert.True(t, cfg.NoColor.Value)
	assert.Equal(t, "linux-arm64", cfg.PlatformTag.Value)
}

func TestMerge_IncludeAndJobs(t *testing.T) {
	file := &FileConfig{Include: []string{"README.md"}, Jobs: intPtr(2)}

	cfg := NewEffectiveConfig("/h")
	cfg.Merge(newTestCmd(t, cfg), file, nil)
	assert.Equal(t, []string{"README.md"}, cfg.Include.Value)
	assert.Equal(t, 2, cfg.Jobs.Value)

	cfg = NewEffectiveConfig("/h")
	cfg.Merge(newTestCmd(t, cfg, "--include", "assets/*", "--jobs", "1"), file, nil)
	assert.Equal(t, []string{"assets/*"}, cfg.Include.Value)
	assert.Equal(t, SourceFlag, cfg.Include.Source)
	assert.Equal(t, 1, cfg.Jobs.Value)
}

func TestRequest(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		env        map[string]string
		file       *FileConfig
		wantTriple string
		wantTag    string
	}{
		{
			name:       "defaults",
			wantTriple: platform.DefaultTriple,
			wantTag:    platform.DefaultTag,
		},
		{
			name:       "triple override keeps default tag",
			env:        map[string]string{EnvCompilerTriple: "aarch64-unknown-linux-gnu"},
			wantTriple: "aarch64-unknown-linux-gnu",
			wantTag:    platform.DefaultTag,
		},
		{
			name:       "both overrides verbatim",
			env:        map[string]string{EnvCompilerTriple: "aarch64-unknown-linux-gnu", EnvPlatformTag: "linux-arm64"},
			wantTriple: "aarch64-unknown-linux-gnu",
			wantTag:    "linux-arm64",
		},
		{
			name:       "platform sets both",
			args:       []string{"--platform", "darwin-arm64"},
			wantTriple: "aarch64-apple-darwin",
			wantTag:    "darwin-arm64",
		},
		{
			name:       "explicit tag beats platform",
			file:       &FileConfig{Platform: strPtr("linux-arm64")},
			args:       []string{"--tag", "custom"},
			wantTriple: "aarch64-unknown-linux-gnu",
			wantTag:    "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewEffectiveConfig("/h")
			cfg.Merge(newTestCmd(t, cfg, tt.args...), tt.file, envOf(tt.env))
			req, err := cfg.Request()
			require.NoError(t, err)
			assert.Equal(t, tt.wantTriple, req.CompilerTriple)
			assert.Equal(t, tt.wantTag, req.ReleaseTag)
		})
	}
}

func TestRequest_UnknownPlatform(t *testing.T) {
	cfg := NewEffectiveConfig("/h")
	cfg.Platform = StringValue{Value: "plan9-386", Source: SourceFlag}
	_, err := cfg.Request()
	assert.ErrorContains(t, err, "unknown platform")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *EffectiveConfig)
		wantErr string
	}{
		{"negative jobs", func(c *EffectiveConfig) { c.Jobs.Value = -1 }, "invalid jobs"},
		{"bad ttl", func(c *EffectiveConfig) { c.CacheTTL.Value = "soon" }, "invalid cache_ttl"},
		{"bad platform", func(c *EffectiveConfig) { c.Platform.Value = "nope" }, "invalid platform"},
		{"bad include", func(c *EffectiveConfig) { c.Include.Value = []string{"[x"} }, "invalid include pattern"},
		{"empty output", func(c *EffectiveConfig) { c.OutputDir.Value = "" }, "invalid output_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewEffectiveConfig("/h")
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestToTable(t *testing.T) {
	cfg := NewEffectiveConfig("/h")
	cfg.PlatformTag = StringValue{Value: "linux-arm64", Source: SourceEnvironment}
	cfg.Jobs = IntValue{Value: 2, Source: SourceConfigFile}

	var buf bytes.Buffer
	cfg.ToTable(&buf)

	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Regexp(t, `platform_tag\s+linux-arm64\s+environment`, out)
	assert.Regexp(t, `jobs\s+2\s+config file`, out)
	assert.Regexp(t, `output_dir\s+release\s+default`, out)

	m := cfg.ToMap()
	assert.Equal(t, "linux-arm64", m["platform_tag"])
	assert.Equal(t, "", m["platform"])
}
