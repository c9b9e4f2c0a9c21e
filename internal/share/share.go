// Package share hands an article link to the rest of the desktop: the
// default browser or the system clipboard.
package share

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing URL with scheme %q (only http/https allowed)", u.Scheme)
	}
	return nil
}

// Open launches the default browser on rawURL.
func Open(rawURL string) error {
	if err := checkURL(rawURL); err != nil {
		return err
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		// rundll32 avoids cmd /c start shell interpretation
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}

// Copy puts rawURL on the clipboard.
func Copy(rawURL string) error {
	if err := checkURL(rawURL); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard available")
	}
	if err := clipboard.WriteAll(rawURL); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}
