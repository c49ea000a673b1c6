// Package browser fetches competition pages through a headless Chrome
// instance. Kaggle renders everything client-side, so plain HTTP GETs return
// an empty shell; pages are only useful after the React app hydrates.
package browser

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// contentSelector is the container Kaggle mounts page content into.
const contentSelector = "#site-content"

// hydrationDelay is the extra settle time after network idle, giving the
// client-side app a chance to finish rendering lists.
const hydrationDelay = 2 * time.Second

// Options configures a Fetcher.
type Options struct {
	Headless bool
	// Delay is the minimum interval between successive page loads.
	Delay time.Duration
	// Timeout bounds a single navigation including hydration.
	Timeout time.Duration
}

// Page is the rendered result of one fetch.
type Page struct {
	URL       string
	Status    int
	Text      string // visible text of the content container
	HTML      string // outer HTML of the content container
	FetchedAt time.Time
}

// NotFound reports whether the page resolved to a 404.
func (p *Page) NotFound() bool { return p.Status == http.StatusNotFound }

// Fetcher drives one headless browser. It is not safe for concurrent use;
// parallel ingestion runs one Fetcher per worker.
type Fetcher struct {
	opts     Options
	limiter  *rate.Limiter
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// New creates a Fetcher. The browser is launched lazily on first fetch so
// that constructing a Fetcher never requires Chrome to be present.
func New(opts Options) *Fetcher {
	if opts.Delay <= 0 {
		opts.Delay = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Fetcher{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.Delay), 1),
	}
}

func (f *Fetcher) ensureBrowser() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().Headless(f.opts.Headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, eris.Wrap(err, "browser: connect")
	}

	f.launcher = l
	f.browser = b
	return b, nil
}

// FetchPage navigates to url, waits for the network to go idle plus a
// hydration delay, and returns the rendered content container. A 404
// returns a Page with only Status set and no error; callers decide how to
// treat missing tabs. Console and page errors are logged, never returned.
func (f *Fetcher) FetchPage(ctx context.Context, url string) (*Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "browser: rate limit wait")
	}

	b, err := f.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, eris.Wrap(err, "browser: new page")
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(f.opts.Timeout)

	status := watchResponses(page)
	logConsoleErrors(page, url)

	if err := page.Navigate(url); err != nil {
		return nil, eris.Wrapf(err, "browser: navigate %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, eris.Wrapf(err, "browser: wait load %s", url)
	}
	waitIdle := page.WaitRequestIdle(time.Second, nil, nil, nil)
	waitIdle()

	if st := status(); st == http.StatusNotFound {
		return &Page{URL: url, Status: st, FetchedAt: time.Now().UTC()}, nil
	}

	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "browser: hydration wait")
	case <-time.After(hydrationDelay):
	}

	text, html, err := f.extractContent(page)
	if err != nil {
		return nil, eris.Wrapf(err, "browser: extract %s", url)
	}

	st := status()
	if st == 0 {
		st = http.StatusOK
	}
	return &Page{
		URL:       url,
		Status:    st,
		Text:      text,
		HTML:      html,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// extractContent pulls text and HTML from the content container, falling
// back to the document body when the container never mounted.
func (f *Fetcher) extractContent(page *rod.Page) (text, html string, err error) {
	el, err := page.Timeout(5 * time.Second).Element(contentSelector)
	if err != nil {
		zap.L().Debug("content container missing, using body",
			zap.String("selector", contentSelector))
		el, err = page.Element("body")
		if err != nil {
			return "", "", eris.Wrap(err, "no body element")
		}
	}

	text, err = el.Text()
	if err != nil {
		return "", "", eris.Wrap(err, "element text")
	}
	html, err = el.HTML()
	if err != nil {
		return "", "", eris.Wrap(err, "element html")
	}
	return text, html, nil
}

// watchResponses records the status code of the main document response.
// The returned func reports it, or 0 if no document response was seen.
// The event loop ends when the page closes.
func watchResponses(page *rod.Page) func() int {
	var mu sync.Mutex
	var status int

	go page.EachEvent(func(ev *proto.NetworkResponseReceived) {
		if ev.Type != proto.NetworkResourceTypeDocument {
			return
		}
		mu.Lock()
		if status == 0 {
			status = ev.Response.Status
		}
		mu.Unlock()
	})()

	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return status
	}
}

// logConsoleErrors surfaces in-page errors in our logs without failing the
// fetch. Kaggle pages routinely emit noisy console errors that do not affect
// the rendered content. The event loop ends when the page closes.
func logConsoleErrors(page *rod.Page, url string) {
	go page.EachEvent(func(ev *proto.RuntimeConsoleAPICalled) {
		if ev.Type != proto.RuntimeConsoleAPICalledTypeError {
			return
		}
		var parts []string
		for _, arg := range ev.Args {
			if arg.Value.Str() != "" {
				parts = append(parts, arg.Value.Str())
			}
		}
		zap.L().Debug("page console error",
			zap.String("url", url),
			zap.String("message", strings.Join(parts, " ")))
	})()
}

// Close shuts the browser down. Safe to call when nothing was launched.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			zap.L().Warn("browser close failed", zap.Error(err))
		}
		f.browser = nil
	}
	if f.launcher != nil {
		f.launcher.Cleanup()
		f.launcher = nil
	}
}
