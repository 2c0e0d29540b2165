package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher decides which paths under a watched root are ignored. Each pattern
// is tried against the absolute path, the path relative to the root and the
// base name, all with forward slashes.
type Matcher struct {
	root     string
	patterns []glob.Glob
}

func NewMatcher(root string, patterns []string) (*Matcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	m := &Matcher{root: absRoot}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}

		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, g)
	}

	return m, nil
}

func (m *Matcher) Ignored(path string) bool {
	return m.match(path, false)
}

// IgnoredDir also treats the directory as its own contents, so "**/dist/**"
// prunes the dist directory itself.
func (m *Matcher) IgnoredDir(path string) bool {
	return m.match(path, true)
}

func (m *Matcher) match(path string, dir bool) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	abs := filepath.ToSlash(path)
	candidates := []string{abs, filepath.Base(abs)}
	if rel, err := filepath.Rel(m.root, path); err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
		candidates = append(candidates, filepath.ToSlash(rel))
	}
	if dir {
		candidates = append(candidates, abs+"/")
	}

	for _, g := range m.patterns {
		for _, c := range candidates {
			if g.Match(c) {
				return true
			}
		}
	}

	return false
}
