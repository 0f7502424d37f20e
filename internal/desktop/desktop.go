// Package desktop saves generated documents into a well-known user folder.
package desktop

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrNoFolder is returned when none of the candidate folders exist.
var ErrNoFolder = errors.New("no desktop folder found")

// Candidates returns the ordered folders to try for the current platform.
func Candidates(goos, home string, getenv func(string) string) []string {
	var out []string
	if dir := getenv("XDG_DESKTOP_DIR"); dir != "" {
		out = append(out, dir)
	}

	switch goos {
	case "windows":
		if profile := getenv("USERPROFILE"); profile != "" {
			home = profile
		}
		out = append(out,
			filepath.Join(home, "OneDrive", "Desktop"),
			filepath.Join(home, "Desktop"),
		)
		if od := getenv("OneDrive"); od != "" {
			out = append(out, filepath.Join(od, "Desktop"))
		}
	default:
		out = append(out,
			filepath.Join(home, "Desktop"),
			filepath.Join(home, "OneDrive", "Desktop"),
		)
	}
	return append(out, home)
}

// Resolve returns the first candidate that is an existing directory.
func Resolve(candidates []string) (string, error) {
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", ErrNoFolder
}

// Default resolves the desktop folder of the current user.
func Default() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return Resolve(Candidates(runtime.GOOS, home, os.Getenv))
}

// Save writes data as dir/name and returns the full path.
func Save(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// RevealCommand returns the file browser command for a platform.
func RevealCommand(goos, dir string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{dir}
	case "windows":
		return "explorer", []string{dir}
	default:
		return "xdg-open", []string{dir}
	}
}

// Reveal opens dir in the platform file browser. It does not wait for the
// browser and reports only start failures.
func Reveal(dir string) error {
	name, args := RevealCommand(runtime.GOOS, dir)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("reveal %s: %w", dir, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
