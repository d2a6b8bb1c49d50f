package browser

import (
	"os/exec"

	"github.com/jmylchreest/clearance/internal/logger"
)

// Config controls how Chrome is started.
type Config struct {
	// Headless runs Chrome without a window. Real challenge pages detect
	// headless Chrome, so this should stay false outside tests.
	Headless bool

	// ExecPath is the Chrome/Chromium binary. Empty means FindChromePath.
	ExecPath string

	// Display sets DISPLAY for the browser process, e.g. ":10.0" on a
	// server running Xvfb. Empty inherits the environment.
	Display string

	// Stealth injects anti-automation patches into every new document.
	Stealth bool
}

// Common Chrome/Chromium binary names across different systems
var chromeBinaryNames = []string{
	"chromium-browser",
	"chromium",
	"google-chrome-stable",
	"google-chrome",
	"chrome",
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/google-chrome-stable",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChromePath returns the first Chrome/Chromium binary found on PATH or at
// a well-known location, or "" to let chromedp search on its own.
func FindChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found on PATH; relying on chromedp defaults")
	return ""
}
