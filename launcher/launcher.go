// Package launcher maps browser names to the commands that start them.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/ethereum/go-ethereum/log"
)

// Launcher starts a specific browser engine pointed at a capture URL.
type Launcher struct {
	Name     string
	headless bool
	binaries []string // candidate binary names, first found wins
	args     func(profileDir, url string, headless bool) []string
}

func chromeArgs(profileDir, url string, headless bool) []string {
	args := []string{
		"--user-data-dir=" + profileDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-networking",
	}
	if headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	return append(args, url)
}

func firefoxArgs(profileDir, url string, headless bool) []string {
	args := []string{"-profile", profileDir, "-no-remote"}
	if headless {
		args = append(args, "-headless")
	}
	return append(args, url)
}

var registry = map[string]Launcher{
	"Chrome": {
		Name:     "Chrome",
		binaries: []string{"google-chrome", "google-chrome-stable", "chrome"},
		args:     chromeArgs,
	},
	"ChromeHeadless": {
		Name:     "ChromeHeadless",
		headless: true,
		binaries: []string{"google-chrome", "google-chrome-stable", "chrome"},
		args:     chromeArgs,
	},
	"Chromium": {
		Name:     "Chromium",
		binaries: []string{"chromium", "chromium-browser"},
		args:     chromeArgs,
	},
	"ChromiumHeadless": {
		Name:     "ChromiumHeadless",
		headless: true,
		binaries: []string{"chromium", "chromium-browser"},
		args:     chromeArgs,
	},
	"Firefox": {
		Name:     "Firefox",
		binaries: []string{"firefox"},
		args:     firefoxArgs,
	},
	"FirefoxHeadless": {
		Name:     "FirefoxHeadless",
		headless: true,
		binaries: []string{"firefox"},
		args:     firefoxArgs,
	},
}

// Lookup returns the launcher registered under name.
func Lookup(name string) (Launcher, error) {
	l, ok := registry[name]
	if !ok {
		return Launcher{}, fmt.Errorf("unsupported browser %q (supported: %v)", name, Names())
	}
	return l, nil
}

// Names returns the sorted list of registered browser names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Session is a running browser process.
type Session struct {
	Browser    string
	cmd        *exec.Cmd
	profileDir string
	log        log.Logger
}

// Launch starts the browser with an ephemeral profile directory, pointed at
// the capture URL. The process is killed when ctx is canceled.
func (l Launcher) Launch(ctx context.Context, url string, logger log.Logger) (*Session, error) {
	binary, err := l.findBinary()
	if err != nil {
		return nil, err
	}

	profileDir, err := os.MkdirTemp("", "metatests-profile-")
	if err != nil {
		return nil, fmt.Errorf("creating browser profile dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, binary, l.args(profileDir, url, l.headless)...)
	logger.Debug("Launching browser", "browser", l.Name, "binary", binary, "url", url)
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(profileDir)
		return nil, fmt.Errorf("starting %s: %w", l.Name, err)
	}

	return &Session{
		Browser:    l.Name,
		cmd:        cmd,
		profileDir: profileDir,
		log:        logger,
	}, nil
}

func (l Launcher) findBinary() (string, error) {
	for _, candidate := range l.binaries {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no binary found for %s (tried %v)", l.Name, l.binaries)
}

// Stop kills the browser process and removes its profile directory.
// Secondary errors during teardown are logged, never escalated.
func (s *Session) Stop() {
	if s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil {
			s.log.Debug("Failed to kill browser process", "browser", s.Browser, "error", err)
		}
		_ = s.cmd.Wait()
	}
	if err := os.RemoveAll(s.profileDir); err != nil {
		s.log.Debug("Failed to remove browser profile dir", "dir", s.profileDir, "error", err)
	}
}
