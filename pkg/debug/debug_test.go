package debug_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/walteh/gonunjucks/pkg/debug"
)

func TestGetPackageAndFuncFromFuncName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantPkg string
		wantFn  string
	}{
		{
			name:    "method on pointer",
			input:   "github.com/walteh/gonunjucks/pkg/parser.(*Converter).ConvertTree",
			wantPkg: "pkg/parser",
			wantFn:  "(*Converter).ConvertTree",
		},
		{
			name:    "plain function",
			input:   "github.com/walteh/gonunjucks/pkg/hover.BuildHover",
			wantPkg: "pkg/hover",
			wantFn:  "BuildHover",
		},
		{
			name:    "closure",
			input:   "github.com/walteh/gonunjucks/pkg/parser.Parse.func1",
			wantPkg: "pkg/parser",
			wantFn:  "Parse.func1",
		},
		{
			name:    "foreign package",
			input:   "main.main",
			wantPkg: "main",
			wantFn:  "main",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, fn := debug.GetPackageAndFuncFromFuncName(tt.input)
			assert.Equal(t, tt.wantPkg, pkg)
			assert.Equal(t, tt.wantFn, fn)
		})
	}
}

func TestFormatCaller(t *testing.T) {
	assert.Equal(t, "pkg/parser:parser.go:42", debug.FormatCaller("pkg/parser", "/src/pkg/parser/parser.go", 42, false))
	assert.Equal(t, "file.go", debug.FileNameOfPath("file.go"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := debug.NewLogger(&buf, zerolog.DebugLevel, false)

	logger.Debug().Str("file", "page.njk").Msg("parsed template")
	logger.Trace().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, "parsed template")
	assert.Contains(t, out, "file=page.njk")
	assert.Contains(t, out, "debug_test.go")
	assert.NotContains(t, out, "hidden")
}
