package settings_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/walteh/gonunjucks/pkg/settings"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := settings.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, settings.Default(), s)
	require.NoError(t, s.Validate())
}

func TestLoadFiles(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    func(s *settings.Settings)
	}{
		{
			name: "yaml",
			file: "nunjucks.yaml",
			content: `max_number_of_problems: 5
extensions: [".njk"]
enabled_features:
  hover: false
`,
			want: func(s *settings.Settings) {
				s.MaxNumberOfProblems = 5
				s.Extensions = []string{".njk"}
				s.EnabledFeatures.Hover = false
			},
		},
		{
			name: "hcl",
			file: "nunjucks.hcl",
			content: `template_paths = ["views", "partials"]
log_level = "debug"

enabled_features {
  completion = false
}
`,
			want: func(s *settings.Settings) {
				s.TemplatePaths = []string{"views", "partials"}
				s.LogLevel = "debug"
				s.EnabledFeatures.Completion = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)

			got, err := settings.Load(path, nil)
			require.NoError(t, err)

			want := settings.Default()
			tt.want(want)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := settings.Load(writeFile(t, "nunjucks.toml", ""), nil)
	require.Error(t, err)

	_, err = settings.Load(writeFile(t, "bad.hcl", "enabled_features {"), nil)
	require.Error(t, err)

	_, err = settings.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "nunjucks.yaml", "max_number_of_problems: 5\nlog_level: warn\n")

	t.Setenv("NUNJUCKS_MAX_NUMBER_OF_PROBLEMS", "7")
	t.Setenv("NUNJUCKS_EXTENSIONS", ".njk,.jinja")
	t.Setenv("NUNJUCKS_ENABLED_FEATURES__DIAGNOSTICS", "false")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	settings.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--max-number-of-problems=9"}))

	got, err := settings.Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, 9, got.MaxNumberOfProblems)
	assert.Equal(t, "warn", got.LogLevel)
	assert.Equal(t, []string{".njk", ".jinja"}, got.Extensions)
	assert.False(t, got.EnabledFeatures.Diagnostics)
	assert.True(t, got.EnabledFeatures.Hover)
}

func TestUnchangedFlagsDoNotOverride(t *testing.T) {
	path := writeFile(t, "nunjucks.yaml", "log_level: error\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	settings.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--template-path=a", "--template-path=b"}))

	got, err := settings.Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "error", got.LogLevel)
	assert.Equal(t, []string{"a", "b"}, got.TemplatePaths)
}

func TestValidate(t *testing.T) {
	s := settings.Default()
	s.MaxNumberOfProblems = -1
	s.Extensions = []string{"njk", ".html"}
	s.TemplatePaths = []string{" "}
	s.LogLevel = "loud"

	err := s.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
}

func TestLevel(t *testing.T) {
	s := settings.Default()
	s.LogLevel = "debug"
	assert.Equal(t, "debug", s.Level().String())

	s.LogLevel = "nonsense"
	assert.Equal(t, "info", s.Level().String())
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, settings.Default(), settings.Ctx(ctx))

	s := settings.Default()
	s.MaxNumberOfProblems = 3
	ctx = s.WithContext(ctx)
	assert.Same(t, s, settings.Ctx(ctx))
}
