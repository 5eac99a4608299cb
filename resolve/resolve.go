// Package resolve expands test path arguments into a flat list of runnable files.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
)

// Extension is the test-source extension retained during directory expansion.
const Extension = ".js"

// Files expands a list of path arguments (files or directories, optionally
// missing their extension) into a flat, deduplicated, order-preserving list
// of test file paths. Directories are recursed in place; files without the
// test-source extension are silently dropped during expansion. A path that
// resolves to nothing is an error.
func Files(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	for _, p := range paths {
		resolved, err := resolveOne(p, true)
		if err != nil {
			return nil, err
		}
		for _, f := range resolved {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out, nil
}

// resolveOne resolves a single argument. Top-level arguments that don't
// exist are fatal and may omit the extension; entries discovered inside
// directories are taken as-is and filtered by extension instead.
func resolveOne(path string, explicit bool) ([]string, error) {
	candidate := path
	var info os.FileInfo
	var err error
	if explicit {
		// Only input arguments get the extension appended; a discovered
		// directory must never resolve to a same-named sibling file.
		info, err = os.Stat(candidate + Extension)
		if err == nil {
			candidate += Extension
		}
	}
	if info == nil {
		info, err = os.Stat(candidate)
	}
	if err != nil {
		return nil, fmt.Errorf("file %s does not exist", path)
	}

	if !info.IsDir() {
		if !explicit && filepath.Ext(candidate) != Extension {
			return nil, nil
		}
		return []string{candidate}, nil
	}

	entries, err := os.ReadDir(candidate)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", candidate, err)
	}

	var out []string
	for _, entry := range entries {
		child := filepath.Join(candidate, entry.Name())
		resolved, err := resolveOne(child, false)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}
	return out, nil
}
