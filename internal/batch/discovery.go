package batch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery finds exchange files under a root directory using glob
// patterns and ignore rules.
type FileDiscovery struct {
	rootDir        string
	filePatterns   []compiledPattern
	ignorePatterns []compiledPattern
}

// NewFileDiscovery compiles the given glob patterns for discovery under
// rootDir.
func NewFileDiscovery(rootDir string, filePatterns, ignorePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{rootDir: rootDir}

	var err error
	if fd.filePatterns, err = compilePatterns(filePatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}
	return fd, nil
}

// compilePatterns compiles globs with '/' as the separator. A "**/" prefix
// requires at least one separator in the matched path, so such patterns get
// a second compiled form without the prefix to also cover root-level files.
func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var out []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})

		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			g, err := glob.Compile(rest, '/')
			if err != nil {
				return nil, err
			}
			out = append(out, compiledPattern{pattern: rest, glob: g})
		}
	}
	return out, nil
}

// DiscoverFiles walks the directory tree and returns matching files in walk
// order.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	files := []string{}

	err := filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if fd.matchesAny(relPath, fd.ignorePatterns) {
			return nil
		}
		if fd.matchesAny(relPath, fd.filePatterns) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (fd *FileDiscovery) matchesAny(relPath string, patterns []compiledPattern) bool {
	base := filepath.Base(relPath)
	for _, p := range patterns {
		if p.glob.Match(relPath) || p.glob.Match(base) {
			return true
		}
	}
	return false
}
