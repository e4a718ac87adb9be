package build

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery finds source documents under a root directory using include
// and exclude glob patterns matched against slash-separated relative paths.
type Discovery struct {
	root    string
	include []compiledPattern
	exclude []compiledPattern
}

// NewDiscovery compiles the include and exclude patterns
func NewDiscovery(root string, include, exclude []string) (*Discovery, error) {
	d := &Discovery{root: root}

	var err error
	if d.include, err = compilePatterns(include); err != nil {
		return nil, err
	}
	if d.exclude, err = compilePatterns(exclude); err != nil {
		return nil, err
	}
	return d, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// Root returns the discovery root
func (d *Discovery) Root() string {
	return d.root
}

// Discover walks the root and returns matching documents in lexical order
func (d *Discovery) Discover() ([]string, error) {
	var files []string

	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if relPath != "." && d.excluded(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.matchRel(relPath) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Match reports whether a path under the root is a source document
func (d *Discovery) Match(path string) bool {
	relPath, err := filepath.Rel(d.root, path)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return false
	}
	return d.matchRel(filepath.ToSlash(relPath))
}

func (d *Discovery) matchRel(relPath string) bool {
	return !d.excluded(relPath) && matchesAnyPattern(relPath, d.include)
}

// excluded checks the path itself and, for directories, the path with a /**
// suffix so that "node_modules/**" prunes the whole directory.
func (d *Discovery) excluded(relPath string) bool {
	return matchesAnyPattern(relPath, d.exclude) || matchesAnyPattern(relPath+"/**", d.exclude)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
// Paths in the root also match patterns with a leading **/, so "**/*.md"
// matches both "README.md" and "api/array.md".
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			if g, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}
	return false
}
