// Package discover finds TypeScript source files in a project.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/tsmodel/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Slash-separated, relative to the project root
	Language string
	Size     int64
}

// Options narrows discovery. Include and Exclude take gitignore-style
// patterns; an empty Include keeps every TypeScript file.
type Options struct {
	Include             []string
	Exclude             []string
	IncludeDeclarations bool
	MaxFileSize         int64
}

// Skipped describes a file that matched but was left out.
type Skipped struct {
	Path   string
	Reason string
}

var skipDirs = map[string]struct{}{
	"node_modules":     {},
	".git":             {},
	".hg":              {},
	".svn":             {},
	"build":            {},
	"dist":             {},
	"out":              {},
	"coverage":         {},
	".next":            {},
	".nuxt":            {},
	".angular":         {},
	".turbo":           {},
	".cache":           {},
	"bower_components": {},
}

// Files discovers source files under root. Files larger than
// opts.MaxFileSize are reported in the second return value.
func Files(ctx context.Context, root string, opts Options) ([]FileEntry, []Skipped, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, errors.Errorf("reading project root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, errors.Errorf("project root %s is not a directory", root)
	}

	gitFiles := gitLsFiles(ctx, root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}
	var include, exclude *ignore.GitIgnore
	if len(opts.Include) > 0 {
		include = ignore.CompileIgnoreLines(opts.Include...)
	}
	if len(opts.Exclude) > 0 {
		exclude = ignore.CompileIgnoreLines(opts.Exclude...)
	}

	var results []FileEntry
	var skipped []Skipped

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		l := lang.ForPath(name)
		if l == nil {
			return nil
		}
		if IsDeclarationFile(name) && !opts.IncludeDeclarations {
			return nil
		}
		if include != nil && !include.MatchesPath(rel) {
			return nil
		}
		if exclude != nil && exclude.MatchesPath(rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxFileSize > 0 && fi.Size() > opts.MaxFileSize {
			skipped = append(skipped, Skipped{Path: rel, Reason: "file too large"})
			return nil
		}

		results = append(results, FileEntry{Path: rel, Language: l.Name, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, nil, errors.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, skipped, nil
}

// IsDeclarationFile reports whether name is an ambient declaration file.
func IsDeclarationFile(name string) bool {
	for _, suffix := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func gitLsFiles(ctx context.Context, root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
