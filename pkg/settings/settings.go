// Package settings loads the editor and CLI configuration of the Nunjucks tooling.
//
// Layers, lowest to highest precedence: defaults, a .yaml/.yml or .hcl file, NUNJUCKS_*
// environment variables, explicitly set command line flags.
package settings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

const EnvPrefix = "NUNJUCKS_"

// Settings mirrors the configuration the editor extension sends.
type Settings struct {
	MaxNumberOfProblems int      `koanf:"max_number_of_problems"`
	TemplatePaths       []string `koanf:"template_paths"`
	Extensions          []string `koanf:"extensions"`
	EnabledFeatures     Features `koanf:"enabled_features"`
	LogLevel            string   `koanf:"log_level"`
}

type Features struct {
	Completion  bool `koanf:"completion"`
	Diagnostics bool `koanf:"diagnostics"`
	Hover       bool `koanf:"hover"`
}

// Defaults are the settings used when nothing overrides them.
func Defaults() map[string]any {
	return map[string]any{
		"max_number_of_problems":       100,
		"template_paths":               []string{"."},
		"extensions":                   []string{".njk", ".nunjucks", ".html"},
		"enabled_features.completion":  true,
		"enabled_features.diagnostics": true,
		"enabled_features.hover":       true,
		"log_level":                    "info",
	}
}

// Default returns the settings with no file, environment or flags applied.
func Default() *Settings {
	return &Settings{
		MaxNumberOfProblems: 100,
		TemplatePaths:       []string{"."},
		Extensions:          []string{".njk", ".nunjucks", ".html"},
		EnabledFeatures:     Features{Completion: true, Diagnostics: true, Hover: true},
		LogLevel:            "info",
	}
}

// flag name -> config key, for flags whose key is not the snake_case of the name
var flagKeys = map[string]string{
	"template-path": "template_paths",
	"extension":     "extensions",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("max-number-of-problems", 100, "maximum number of diagnostics reported per file")
	fs.StringSlice("template-path", nil, "directories searched for templates")
	fs.StringSlice("extension", nil, "template file extensions")
	fs.String("log-level", "info", "log level (trace, debug, info, warn, error)")
}

// Load builds the settings from the defaults, the file at path (skipped when empty), the
// environment and the flags in fs that were explicitly set (fs may be nil).
func Load(path string, fs *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, errors.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Errorf("loading environment: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return nil, errors.Errorf("loading flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, errors.Errorf("decoding settings: %w", err)
	}
	return &s, nil
}

// envKey maps NUNJUCKS_ENABLED_FEATURES__HOVER to enabled_features.hover and splits lists.
func envKey(name, value string) (string, interface{}) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	switch key {
	case "template_paths", "extensions":
		return key, strings.Split(value, ",")
	}
	return key, value
}

func loadFile(k *koanf.Koanf, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return errors.Errorf("reading settings file %s: %w", path, err)
		}
		return nil
	case ".hcl":
		m, err := decodeHCL(path)
		if err != nil {
			return err
		}
		if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
			return errors.Errorf("loading settings file %s: %w", path, err)
		}
		return nil
	}
	return errors.Errorf("unsupported settings file %s: expected .yaml, .yml or .hcl", path)
}

type hclSettings struct {
	MaxNumberOfProblems *int         `hcl:"max_number_of_problems,optional"`
	TemplatePaths       []string     `hcl:"template_paths,optional"`
	Extensions          []string     `hcl:"extensions,optional"`
	LogLevel            *string      `hcl:"log_level,optional"`
	EnabledFeatures     *hclFeatures `hcl:"enabled_features,block"`
}

type hclFeatures struct {
	Completion  *bool `hcl:"completion,optional"`
	Diagnostics *bool `hcl:"diagnostics,optional"`
	Hover       *bool `hcl:"hover,optional"`
}

// decodeHCL reads an HCL settings file into the flat key map koanf layers.
func decodeHCL(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading settings file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var hs hclSettings
	if diags := gohcl.DecodeBody(f.Body, ctx, &hs); diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	m := map[string]any{}
	if hs.MaxNumberOfProblems != nil {
		m["max_number_of_problems"] = *hs.MaxNumberOfProblems
	}
	if hs.TemplatePaths != nil {
		m["template_paths"] = hs.TemplatePaths
	}
	if hs.Extensions != nil {
		m["extensions"] = hs.Extensions
	}
	if hs.LogLevel != nil {
		m["log_level"] = *hs.LogLevel
	}
	if ef := hs.EnabledFeatures; ef != nil {
		if ef.Completion != nil {
			m["enabled_features.completion"] = *ef.Completion
		}
		if ef.Diagnostics != nil {
			m["enabled_features.diagnostics"] = *ef.Diagnostics
		}
		if ef.Hover != nil {
			m["enabled_features.hover"] = *ef.Hover
		}
	}
	return m, nil
}

// Validate reports every problem with s at once.
func (s *Settings) Validate() error {
	var err error
	if s.MaxNumberOfProblems < 0 {
		err = multierr.Append(err, errors.Errorf("max_number_of_problems must not be negative, got %d", s.MaxNumberOfProblems))
	}
	if len(s.Extensions) == 0 {
		err = multierr.Append(err, errors.New("at least one template extension is required"))
	}
	for _, ext := range s.Extensions {
		if !strings.HasPrefix(ext, ".") {
			err = multierr.Append(err, errors.Errorf("extension %q must start with a dot", ext))
		}
	}
	for i, p := range s.TemplatePaths {
		if strings.TrimSpace(p) == "" {
			err = multierr.Append(err, errors.Errorf("template_paths[%d] is empty", i))
		}
	}
	if _, perr := zerolog.ParseLevel(s.LogLevel); perr != nil {
		err = multierr.Append(err, errors.Errorf("invalid log_level %q: %w", s.LogLevel, perr))
	}
	return err
}

// Level is the parsed log level, info when it does not parse.
func (s *Settings) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
