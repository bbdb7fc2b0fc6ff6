package client

import (
	"bufio"
	"bytes"
	"io/fs"
	"path"
	"strings"

	"emperror.dev/errors"
)

// IgnoreFileName is read from the root of a directory or zip repository.
// Each line is a pattern for files the client must not treat as assets.
const IgnoreFileName = ".assetignore"

// ignorePattern is one parsed pattern. Patterns without '/' match the base
// name of a path; patterns with '/' match the whole path below the root.
type ignorePattern struct {
	pattern   string
	matchPath bool
}

type ignoreMatcher struct {
	patterns []ignorePattern
}

// newIgnoreMatcher parses raw patterns, skipping blank lines and '#'
// comments.
func newIgnoreMatcher(raw []string) *ignoreMatcher {
	m := &ignoreMatcher{}
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		m.patterns = append(m.patterns, ignorePattern{
			pattern:   strings.TrimSuffix(p, "/"),
			matchPath: strings.Contains(strings.TrimSuffix(p, "/"), "/"),
		})
	}
	return m
}

// Match reports whether the slash-separated path p is ignored. A pattern
// that matches a directory ignores everything beneath it.
func (m *ignoreMatcher) Match(p string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	for dir := p; dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		base := path.Base(dir)
		for _, ip := range m.patterns {
			target := base
			if ip.matchPath {
				target = dir
			}
			// Malformed patterns never match.
			if ok, _ := path.Match(ip.pattern, target); ok {
				return true
			}
		}
	}
	return false
}

// loadIgnore combines configured patterns with those in the repository's
// ignore file. A missing ignore file is not an error.
func loadIgnore(fsys fs.FS, configured []string) (*ignoreMatcher, error) {
	patterns := append([]string{IgnoreFileName}, configured...)
	data, err := fs.ReadFile(fsys, IgnoreFileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newIgnoreMatcher(patterns), nil
		}
		return nil, errors.Wrap(err, "reading ignore file")
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading ignore file")
	}
	return newIgnoreMatcher(patterns), nil
}
