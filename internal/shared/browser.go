package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// startCommand is swapped in tests.
var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// browserCommand returns the launcher for url. $BROWSER wins over the platform default.
func browserCommand(goos, url string) (string, []string, error) {
	if b := os.Getenv("BROWSER"); b != "" {
		return b, []string{url}, nil
	}
	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	}
	return "", nil, fmt.Errorf("%w: no browser launcher for %s", ErrUnsupportedPlatform, goos)
}

// OpenBrowser starts the user's browser at url without waiting for it.
func OpenBrowser(url string) error {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := startCommand(name, args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
