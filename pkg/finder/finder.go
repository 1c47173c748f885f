package finder

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultExtensions are searched when no extensions are given.
var DefaultExtensions = []string{".njk", ".nunjucks", ".html"}

// TemplateFinder is responsible for finding template files in a directory
type TemplateFinder interface {
	// FindTemplates finds all template files in a directory that match the given extensions
	FindTemplates(ctx context.Context, dir string, extensions []string) ([]string, error)
	// FindGlob finds the files matching any of the doublestar patterns
	FindGlob(ctx context.Context, patterns ...string) ([]string, error)
}

// FileInfo represents information about a found template file
type FileInfo struct {
	Path     string
	Content  []byte
	FileType string
}

var _ TemplateFinder = (*DefaultFinder)(nil)

// DefaultFinder is the default implementation of TemplateFinder
type DefaultFinder struct {
	fs afero.Fs
}

// NewDefaultFinder creates a finder over the OS filesystem
func NewDefaultFinder() *DefaultFinder {
	return NewFinder(afero.NewOsFs())
}

func NewFinder(fs afero.Fs) *DefaultFinder {
	return &DefaultFinder{fs: fs}
}

// FindTemplates implements TemplateFinder
func (f *DefaultFinder) FindTemplates(ctx context.Context, dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	if _, err := f.fs.Stat(dir); err != nil {
		return nil, errors.Errorf("reading template directory %s: %w", dir, err)
	}

	var found []string
	err := afero.Walk(f.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if hasExtension(path, extensions) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", dir, err)
	}

	zerolog.Ctx(ctx).Debug().Str("dir", dir).Strs("extensions", extensions).Int("found", len(found)).Msg("found templates")

	return sortedUnique(found), nil
}

// FindGlob implements TemplateFinder. Patterns may be absolute or start with "..".
func (f *DefaultFinder) FindGlob(ctx context.Context, patterns ...string) ([]string, error) {
	var found []string
	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, errors.Errorf("invalid glob pattern %q", pattern)
		}

		base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))

		// io/fs paths cannot be absolute or climb out with "..", so glob below the base
		var fsys afero.Fs = f.fs
		prefix := ""
		if base != "." && base != "" {
			fsys = afero.NewBasePathFs(f.fs, filepath.FromSlash(base))
			prefix = filepath.FromSlash(base)
		}

		matches, err := doublestar.Glob(afero.NewIOFS(fsys), rel, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("matching %s: %w", pattern, err)
		}
		for _, m := range matches {
			found = append(found, filepath.Join(prefix, filepath.FromSlash(m)))
		}
	}
	return sortedUnique(found), nil
}

// ReadAll loads every path. Files that cannot be read are skipped and reported together in the
// returned error, next to the files that could.
func (f *DefaultFinder) ReadAll(ctx context.Context, paths []string) ([]FileInfo, error) {
	var result *multierror.Error
	files := make([]FileInfo, 0, len(paths))

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		content, err := afero.ReadFile(f.fs, p)
		if err != nil {
			result = multierror.Append(result, errors.Errorf("reading %s: %w", p, err))
			continue
		}
		files = append(files, FileInfo{
			Path:     p,
			Content:  content,
			FileType: strings.TrimPrefix(filepath.Ext(p), "."),
		})
	}
	return files, result.ErrorOrNil()
}

func hasExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func sortedUnique(paths []string) []string {
	sort.Strings(paths)
	out := paths[:0]
	for i, p := range paths {
		if i == 0 || p != paths[i-1] {
			out = append(out, p)
		}
	}
	return out
}
