package shared

import (
	"errors"
	"slices"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	const url = "http://127.0.0.1:8080/auth"

	t.Run("platform defaults", func(t *testing.T) {
		t.Setenv("BROWSER", "")
		tests := []struct {
			goos string
			name string
		}{
			{"darwin", "open"},
			{"linux", "xdg-open"},
			{"windows", "rundll32"},
		}
		for _, tc := range tests {
			name, args, err := browserCommand(tc.goos, url)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.goos, err)
			}
			if name != tc.name || args[len(args)-1] != url {
				t.Errorf("%s: got %s %v", tc.goos, name, args)
			}
		}
	})

	t.Run("BROWSER overrides", func(t *testing.T) {
		t.Setenv("BROWSER", "firefox")
		name, args, err := browserCommand("linux", url)
		if err != nil || name != "firefox" || !slices.Equal(args, []string{url}) {
			t.Errorf("got %s %v %v", name, args, err)
		}
	})

	t.Run("unknown platform", func(t *testing.T) {
		t.Setenv("BROWSER", "")
		if _, _, err := browserCommand("plan9", url); !errors.Is(err, ErrUnsupportedPlatform) {
			t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	orig := startCommand
	t.Cleanup(func() { startCommand = orig })
	t.Setenv("BROWSER", "true")

	var got []string
	startCommand = func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}
	if err := OpenBrowser("http://x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []string{"true", "http://x"}) {
		t.Errorf("unexpected command %v", got)
	}

	startCommand = func(string, ...string) error { return errors.New("boom") }
	if err := OpenBrowser("http://x"); err == nil {
		t.Error("expected start failure to surface")
	}
}
