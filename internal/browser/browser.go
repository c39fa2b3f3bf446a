// Package browser implements the rendering collaborator on top of the
// Chrome DevTools Protocol. Each capture runs in its own isolated browser
// target, which is closed on every exit path.
package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beholdci/behold/internal/log"
	"github.com/beholdci/behold/internal/snapshot"
)

// Options configures a Browser.
type Options struct {
	// Chrome overrides binary discovery for launched browsers.
	Chrome string
	// ReadySelector is the DOM marker to wait for after load. Empty skips
	// the wait.
	ReadySelector string
	// Settle is the fixed delay after readiness, letting transitions and
	// animations finish.
	Settle time.Duration
	// NavigationTimeout bounds a single capture. Zero means 30s.
	NavigationTimeout time.Duration
	Logger            *log.Logger
}

func (o *Options) defaults() {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Discard()
	}
}

// Browser is a handle to one automation session. It satisfies the capture
// package's Renderer interface and is passed explicitly to whoever needs
// it; nothing here is global.
type Browser struct {
	client      *client
	cmd         *exec.Cmd
	userDataDir string
	opts        Options
}

// Launch starts a headless browser owned by the returned handle.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	opts.defaults()

	cmd, wsURL, userDataDir, err := launchChrome(ctx, opts.Chrome)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("browser launched", "endpoint", wsURL)

	b, err := Attach(ctx, wsURL, opts)
	if err != nil {
		stopChrome(cmd)
		os.RemoveAll(userDataDir)
		return nil, err
	}
	b.cmd = cmd
	b.userDataDir = userDataDir
	return b, nil
}

// Attach connects to an already-running browser's devtools endpoint. The
// browser process itself stays unowned.
func Attach(ctx context.Context, wsURL string, opts Options) (*Browser, error) {
	opts.defaults()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial devtools %s: %w", wsURL, err)
	}

	return &Browser{client: newClient(conn), opts: opts}, nil
}

// Close tears down the devtools connection and, for launched browsers, the
// browser process and its throwaway profile.
func (b *Browser) Close() error {
	err := b.client.close()
	if b.cmd != nil {
		stopChrome(b.cmd)
	}
	if b.userDataDir != "" {
		os.RemoveAll(b.userDataDir)
	}
	return err
}

// RenderAndCapture opens an isolated target sized to the viewport,
// navigates to address, waits for load, network idleness, the ready
// marker, and the settle delay, then returns a PNG screenshot.
func (b *Browser) RenderAndCapture(ctx context.Context, address string, viewport snapshot.Viewport) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.NavigationTimeout)
	defer cancel()

	targetID, err := b.createTarget(ctx)
	if err != nil {
		return nil, err
	}
	defer b.closeTarget(targetID)

	sessionID, err := b.attach(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if _, err := b.client.call(ctx, sessionID, "Page.enable", nil); err != nil {
		return nil, err
	}
	if _, err := b.client.call(ctx, sessionID, "Page.setLifecycleEventsEnabled", map[string]any{"enabled": true}); err != nil {
		return nil, err
	}

	metrics := map[string]any{
		"width":             viewport.Width,
		"height":            viewport.Height,
		"deviceScaleFactor": viewport.Scale(),
		"mobile":            false,
	}
	if _, err := b.client.call(ctx, sessionID, "Emulation.setDeviceMetricsOverride", metrics); err != nil {
		return nil, err
	}

	// Subscribe before navigating so neither event can be missed.
	loaded := b.client.subscribe(sessionID, "Page.loadEventFired")
	idle := b.client.subscribeStream(sessionID, "Page.lifecycleEvent")
	defer b.client.unsubscribe(idle)

	if err := b.navigate(ctx, sessionID, address); err != nil {
		b.client.unsubscribe(loaded)
		return nil, err
	}
	if _, err := b.client.wait(ctx, loaded); err != nil {
		return nil, fmt.Errorf("wait for load of %s: %w", address, err)
	}
	if err := b.awaitNetworkIdle(ctx, sessionID, idle); err != nil {
		return nil, fmt.Errorf("wait for network idle of %s: %w", address, err)
	}

	if b.opts.ReadySelector != "" {
		if err := b.awaitSelector(ctx, sessionID, b.opts.ReadySelector); err != nil {
			return nil, err
		}
	}

	if b.opts.Settle > 0 {
		select {
		case <-time.After(b.opts.Settle):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return b.screenshot(ctx, sessionID)
}

func (b *Browser) createTarget(ctx context.Context) (string, error) {
	res, err := b.client.call(ctx, "", "Target.createTarget", map[string]any{"url": "about:blank"})
	if err != nil {
		return "", fmt.Errorf("create target: %w", err)
	}
	var out struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return "", fmt.Errorf("parse createTarget result: %w", err)
	}
	return out.TargetID, nil
}

// closeTarget runs on every exit path, with its own deadline so teardown
// happens even when the capture context is already cancelled.
func (b *Browser) closeTarget(targetID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := b.client.call(ctx, "", "Target.closeTarget", map[string]any{"targetId": targetID}); err != nil {
		b.opts.Logger.Warn("close target", "target", targetID, "error", err)
	}
}

func (b *Browser) attach(ctx context.Context, targetID string) (string, error) {
	res, err := b.client.call(ctx, "", "Target.attachToTarget", map[string]any{
		"targetId": targetID,
		"flatten":  true,
	})
	if err != nil {
		return "", fmt.Errorf("attach to target: %w", err)
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return "", fmt.Errorf("parse attachToTarget result: %w", err)
	}
	return out.SessionID, nil
}

func (b *Browser) navigate(ctx context.Context, sessionID, address string) error {
	res, err := b.client.call(ctx, sessionID, "Page.navigate", map[string]any{"url": address})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", address, err)
	}
	var out struct {
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(res, &out); err == nil && out.ErrorText != "" {
		return fmt.Errorf("navigate to %s: %s", address, out.ErrorText)
	}
	return nil
}

// awaitNetworkIdle waits for the networkIdle lifecycle event on an
// already-registered stream. If the event never arrives within the grace
// period, document readiness is checked directly so an idle-before-
// subscribe race cannot hang the capture.
func (b *Browser) awaitNetworkIdle(ctx context.Context, sessionID string, idle *eventWaiter) error {
	deadline := time.NewTimer(5 * time.Second)
	defer deadline.Stop()

	for {
		select {
		case params, ok := <-idle.ch:
			if !ok {
				return ErrConnectionClosed
			}
			var ev struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(params, &ev); err == nil && ev.Name == "networkIdle" {
				return nil
			}
		case <-deadline.C:
			// Idle likely fired before we subscribed. Confirm the document
			// finished loading and move on.
			complete, err := b.evaluateBool(ctx, sessionID, `document.readyState === "complete"`)
			if err != nil {
				return err
			}
			if complete {
				return nil
			}
			return fmt.Errorf("page never reached network idle")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// awaitSelector polls for the ready marker element.
func (b *Browser) awaitSelector(ctx context.Context, sessionID, selector string) error {
	expr := fmt.Sprintf("document.querySelector(%q) !== null", selector)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		found, err := b.evaluateBool(ctx, sessionID, expr)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("ready marker %q never appeared: %w", selector, ctx.Err())
		}
	}
}

func (b *Browser) evaluateBool(ctx context.Context, sessionID, expression string) (bool, error) {
	res, err := b.client.call(ctx, sessionID, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
	})
	if err != nil {
		return false, err
	}
	var out struct {
		Result struct {
			Value bool `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return false, fmt.Errorf("parse evaluate result: %w", err)
	}
	return out.Result.Value, nil
}

func (b *Browser) screenshot(ctx context.Context, sessionID string) ([]byte, error) {
	res, err := b.client.call(ctx, sessionID, "Page.captureScreenshot", map[string]any{"format": "png"})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	var out struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, fmt.Errorf("parse screenshot result: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(out.Data)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot data: %w", err)
	}
	return raw, nil
}
