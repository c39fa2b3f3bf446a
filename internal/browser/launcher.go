package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"time"
)

// ErrNoBrowser is returned when no Chrome or Chromium binary can be found.
var ErrNoBrowser = errors.New("no chrome/chromium binary found")

// chromeCandidates are tried in order when no explicit binary is given.
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// devtoolsLine extracts the websocket endpoint Chrome prints on stderr.
var devtoolsLine = regexp.MustCompile(`DevTools listening on (ws://\S+)`)

// launchTimeout bounds how long we wait for the devtools endpoint to be
// announced after process start.
const launchTimeout = 20 * time.Second

// findChrome resolves the browser binary: the explicit path when given,
// otherwise the first candidate present on PATH.
func findChrome(explicit string) (string, error) {
	if explicit != "" {
		if _, err := exec.LookPath(explicit); err != nil {
			return "", fmt.Errorf("chrome binary %q: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, candidate := range chromeCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBrowser
}

// launchChrome starts a headless browser with a throwaway profile and
// returns the running command plus its devtools websocket URL. The caller
// owns the process and must stop it via stopChrome.
func launchChrome(ctx context.Context, binary string) (*exec.Cmd, string, string, error) {
	path, err := findChrome(binary)
	if err != nil {
		return nil, "", "", err
	}

	userDataDir, err := os.MkdirTemp("", "behold-chrome-*")
	if err != nil {
		return nil, "", "", fmt.Errorf("create profile dir: %w", err)
	}

	args := []string{
		"--headless=new",
		"--disable-gpu",
		"--hide-scrollbars",
		"--no-first-run",
		"--no-default-browser-check",
		"--remote-debugging-port=0",
		"--user-data-dir=" + userDataDir,
		"about:blank",
	}

	cmd := exec.CommandContext(ctx, path, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		os.RemoveAll(userDataDir)
		return nil, "", "", fmt.Errorf("pipe stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		os.RemoveAll(userDataDir)
		return nil, "", "", fmt.Errorf("start %s: %w", path, err)
	}

	wsURL, err := awaitDevToolsURL(ctx, stderr)
	if err != nil {
		stopChrome(cmd)
		os.RemoveAll(userDataDir)
		return nil, "", "", err
	}

	return cmd, wsURL, userDataDir, nil
}

// awaitDevToolsURL scans the browser's stderr for the devtools endpoint
// announcement.
func awaitDevToolsURL(ctx context.Context, stderr io.Reader) (string, error) {
	type scanResult struct {
		url string
		err error
	}
	found := make(chan scanResult, 1)

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if m := devtoolsLine.FindStringSubmatch(scanner.Text()); m != nil {
				found <- scanResult{url: m[1]}
				return
			}
		}
		found <- scanResult{err: fmt.Errorf("browser exited before announcing devtools endpoint")}
	}()

	timer := time.NewTimer(launchTimeout)
	defer timer.Stop()

	select {
	case r := <-found:
		return r.url, r.err
	case <-timer.C:
		return "", fmt.Errorf("timed out waiting for devtools endpoint")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// stopChrome terminates the browser process, killing it outright if needed.
func stopChrome(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
}

// parseDevToolsURL extracts the endpoint from a full stderr line. Split out
// for testing.
func parseDevToolsURL(line string) (string, bool) {
	m := devtoolsLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
