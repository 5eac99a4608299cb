package server

import (
	"fmt"
	"os"
	"path/filepath"
)

// Preprocessor transforms file content before it is served to the browser.
// It mirrors the bundler plugin contract: content in, content (or error) out.
type Preprocessor func(content []byte, file string) ([]byte, error)

// Chain composes preprocessors left to right; the first error aborts.
func Chain(ps ...Preprocessor) Preprocessor {
	return func(content []byte, file string) ([]byte, error) {
		var err error
		for _, p := range ps {
			content, err = p(content, file)
			if err != nil {
				return nil, err
			}
		}
		return content, nil
	}
}

// SaveAdapter persists the content it sees to path, then passes it through
// unchanged. It runs before any consuming step so the persisted source is
// the post-processing adapter.
func SaveAdapter(path string) Preprocessor {
	return func(content []byte, file string) ([]byte, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating save-adapter directory: %w", err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return nil, fmt.Errorf("saving adapter to %s: %w", path, err)
		}
		return content, nil
	}
}
