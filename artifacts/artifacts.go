// Package artifacts owns the on-disk build directory holding the synthesized
// adapter. The directory is created lazily right before session start and
// removed unconditionally once the session completes.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
)

// AdapterFilename is the name of the adapter script inside the build directory.
const AdapterFilename = "adapter.js"

// Artifacts tracks the build directory and the files written into it.
type Artifacts struct {
	Dir         string
	AdapterPath string

	log     log.Logger
	removed bool
}

// Prepare creates the build directory and writes the adapter source into it.
// With an empty dir a fresh temporary directory is used. A creation failure
// is returned to the caller so the run can abort before session start.
func Prepare(dir string, adapterSource []byte, logger log.Logger) (*Artifacts, error) {
	var err error
	if dir == "" {
		dir, err = os.MkdirTemp("", "metatests-build-")
		if err != nil {
			return nil, fmt.Errorf("creating build directory: %w", err)
		}
	} else if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating build directory %s: %w", dir, err)
	}

	adapterPath := filepath.Join(dir, AdapterFilename)
	if err := os.WriteFile(adapterPath, adapterSource, 0o644); err != nil {
		// Roll back the directory so a failed run leaves nothing behind.
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("writing adapter script: %w", err)
	}

	logger.Debug("Build artifacts written", "dir", dir, "adapter", adapterPath)
	return &Artifacts{
		Dir:         dir,
		AdapterPath: adapterPath,
		log:         logger,
	}, nil
}

// Cleanup removes the build directory. It is idempotent and swallows
// secondary errors so a failed cleanup never masks the primary exit code.
func (a *Artifacts) Cleanup() {
	if a == nil || a.removed {
		return
	}
	a.removed = true
	if err := os.RemoveAll(a.Dir); err != nil {
		a.log.Debug("Failed to remove build directory", "dir", a.Dir, "error", err)
		return
	}
	a.log.Debug("Build artifacts removed", "dir", a.Dir)
}
