// Package browser drives a Chrome instance through the DevTools protocol.
// It exposes the small automation surface the join sequence needs: navigate,
// act on the first of an ordered candidate list, probe for presence, and a
// couple of synthetic-activity primitives.
package browser

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

// pollInterval is how often FindAndAct re-evaluates its candidate list while
// waiting for one to appear.
const pollInterval = 500 * time.Millisecond

// Driver is the browser surface consumed by the session state machine.
// Implementations must make Close idempotent; every other method returns
// ErrBrowserClosed once the driver is closed.
type Driver interface {
	// Navigate loads the given URL and waits for the page load event.
	Navigate(ctx context.Context, url string) error

	// FindAndAct evaluates candidates in order until one resolves, performs
	// the action on it, and reports which candidate matched. It keeps
	// re-evaluating the whole list until the timeout elapses; a false return
	// means no candidate ever resolved.
	FindAndAct(ctx context.Context, candidates []Candidate, action Action, timeout time.Duration) (Match, bool)

	// Probe reports whether the CSS selector currently matches, without
	// waiting.
	Probe(ctx context.Context, selector string) bool

	// Jitter moves the cursor a small random amount.
	Jitter(ctx context.Context) error

	// PressKey taps a benign modifier key that has no effect on the page.
	PressKey(ctx context.Context) error

	// Close tears down the browser. Safe to call multiple times.
	Close() error
}

// Options configures the Chrome launch.
type Options struct {
	// UserDataDir points Chrome at an existing profile directory so the
	// session inherits the operator's logged-in Google account. Empty means
	// a throwaway profile.
	UserDataDir string
	// ProfileName selects the profile within UserDataDir ("Default",
	// "Profile 1", ...).
	ProfileName string
	// Headless runs Chrome without a visible window.
	Headless bool
}

// ChromeDriver drives a real Chrome via chromedp.
type ChromeDriver struct {
	ctx         context.Context
	cancelBrows context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      logging.Logger
	closed      atomic.Bool
	closeOnce   sync.Once
}

// New launches Chrome with the given options and returns a driver bound to
// a fresh browser tab.
func New(ctx context.Context, opts Options, logger logging.Logger) (*ChromeDriver, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{},
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("start-maximized", true),
		// Auto-grant mic and camera so the pre-join screen never blocks on
		// a permission prompt.
		chromedp.Flag("use-fake-ui-for-media-stream", true),
		chromedp.Flag("disable-notifications", true),
	)
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Headless)
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
		profile := opts.ProfileName
		if profile == "" {
			profile = "Default"
		}
		allocOpts = append(allocOpts, chromedp.Flag("profile-directory", profile))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Run a no-op to force the browser process to start now, so launch
	// failures surface here rather than on the first real action.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, errors.NewPipelineError(errors.ErrJoinFailed, "browser",
			"launching chrome", err)
	}

	logger.Info("browser launched",
		logging.F("headless", opts.Headless),
		logging.F("profile", opts.ProfileName))

	return &ChromeDriver{
		ctx:         browserCtx,
		cancelBrows: cancelBrowser,
		cancelAlloc: cancelAlloc,
		logger:      logger,
	}, nil
}

// Navigate loads the URL and waits for the page load event to fire.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if d.closed.Load() {
		return errors.ErrBrowserClosed
	}
	d.logger.Debug("navigating", logging.F("url", url))

	runCtx, cancel := d.scoped(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return errors.NewPipelineError(errors.ErrJoinFailed, "browser",
			"navigating to "+url, err)
	}
	return nil
}

// FindAndAct walks the candidate list in priority order, acting on the first
// element that is present. The list is re-walked every poll interval until
// the timeout, so a lower-priority candidate that appears early still loses
// to a higher-priority one that appears later within the same poll.
func (d *ChromeDriver) FindAndAct(ctx context.Context, candidates []Candidate, action Action, timeout time.Duration) (Match, bool) {
	if d.closed.Load() || len(candidates) == 0 {
		return Match{}, false
	}

	deadline := time.Now().Add(timeout)
	for {
		for i, cand := range candidates {
			if !d.present(ctx, cand) {
				continue
			}
			if action == ActionClick {
				if err := d.click(ctx, cand); err != nil {
					d.logger.Debug("click failed, trying next candidate",
						logging.F("candidate", cand.String()), logging.Err(err))
					continue
				}
			}
			return Match{Candidate: cand, Index: i}, true
		}

		if time.Now().After(deadline) {
			return Match{}, false
		}
		select {
		case <-ctx.Done():
			return Match{}, false
		case <-time.After(pollInterval):
		}
	}
}

// Probe checks selector presence without waiting.
func (d *ChromeDriver) Probe(ctx context.Context, selector string) bool {
	if d.closed.Load() {
		return false
	}
	return d.present(ctx, Css(selector))
}

// Jitter nudges the cursor to a random point near the viewport center.
func (d *ChromeDriver) Jitter(ctx context.Context) error {
	if d.closed.Load() {
		return errors.ErrBrowserClosed
	}
	x := 300 + rand.Float64()*200
	y := 300 + rand.Float64()*200

	runCtx, cancel := d.scoped(ctx)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

// PressKey taps Shift. Modifier keys alone never type anything or trigger
// meeting shortcuts, but still count as user input.
func (d *ChromeDriver) PressKey(ctx context.Context) error {
	if d.closed.Load() {
		return errors.ErrBrowserClosed
	}
	runCtx, cancel := d.scoped(ctx)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		down := input.DispatchKeyEvent(input.KeyDown).
			WithKey("Shift").WithCode("ShiftLeft").WithWindowsVirtualKeyCode(16)
		if err := down.Do(ctx); err != nil {
			return err
		}
		up := input.DispatchKeyEvent(input.KeyUp).
			WithKey("Shift").WithCode("ShiftLeft").WithWindowsVirtualKeyCode(16)
		return up.Do(ctx)
	}))
}

// Close shuts the browser down. Idempotent.
func (d *ChromeDriver) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		// Ask the browser to quit cleanly before cancelling contexts.
		closeCtx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
		_ = chromedp.Run(closeCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			return page.Close().Do(ctx)
		}))
		cancel()
		d.cancelBrows()
		d.cancelAlloc()
		d.logger.Debug("browser closed")
	})
	return nil
}

// present checks whether the candidate matches at least one node right now.
func (d *ChromeDriver) present(ctx context.Context, cand Candidate) bool {
	runCtx, cancel := d.scoped(ctx)
	defer cancel()

	queryOpt := chromedp.ByQueryAll
	if cand.IsXPath() {
		queryOpt = chromedp.BySearch
	}

	var nodes []*cdp.Node
	err := chromedp.Run(runCtx,
		chromedp.Nodes(cand.Selector(), &nodes, queryOpt, chromedp.AtLeast(0)))
	return err == nil && len(nodes) > 0
}

// click clicks the first node the candidate matches.
func (d *ChromeDriver) click(ctx context.Context, cand Candidate) error {
	runCtx, cancel := d.scoped(ctx)
	defer cancel()

	queryOpt := chromedp.ByQuery
	if cand.IsXPath() {
		queryOpt = chromedp.BySearch
	}
	return chromedp.Run(runCtx, chromedp.Click(cand.Selector(), queryOpt))
}

// scoped derives a run context that honors both the caller's cancellation
// and the browser's lifetime.
func (d *ChromeDriver) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(d.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() { stop(); cancel() }
}
