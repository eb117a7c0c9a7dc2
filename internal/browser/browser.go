package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrNotFound is returned by FindOne when no element matches the selector.
var ErrNotFound = errors.New("element not found")

// Node is one element inside a live page. Lookups that fail return an
// error instead of crashing the session.
type Node interface {
	Text() (string, error)
	Attr(name string) (string, error)
	FindOne(selector string) (Node, error)
	FindAll(selector string) ([]Node, error)
	Click() error
	// ClickScript clicks via injected script, for controls that reject a
	// regular click while partially obscured.
	ClickScript() error
}

// Session is a single live browser page the crawler drives. One session
// is owned exclusively by one harvest run.
type Session interface {
	Navigate(url string) error
	FindOne(selector string) (Node, error)
	FindAll(selector string) ([]Node, error)
	Close() error
}

type Options struct {
	// WSEndpoint connects to a remote scraping browser over CDP. When
	// empty a local Chromium is launched instead.
	WSEndpoint     string
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
	ProxyServer    string
	ProxyUsername  string
	ProxyPassword  string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "ko-KR",
		TimezoneID:     "Asia/Seoul",
	}
}

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  *slog.Logger
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var b playwright.Browser
	if opts.WSEndpoint != "" {
		b, err = pw.Chromium.ConnectOverCDP(opts.WSEndpoint)
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to connect remote browser: %w", err)
		}
	} else {
		launchOpts := playwright.BrowserTypeLaunchOptions{
			Headless: &opts.Headless,
			Args: []string{
				"--disable-blink-features=AutomationControlled",
				"--disable-dev-shm-usage",
				"--no-sandbox",
			},
		}
		if opts.ProxyServer != "" {
			launchOpts.Proxy = &playwright.Proxy{
				Server: opts.ProxyServer,
			}
			if opts.ProxyUsername != "" {
				launchOpts.Proxy.Username = &opts.ProxyUsername
				launchOpts.Proxy.Password = &opts.ProxyPassword
			}
		}
		b, err = pw.Chromium.Launch(launchOpts)
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	}

	context, err := browserContext(b, opts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, err
	}

	return &Browser{
		pw:      pw,
		browser: b,
		context: context,
		timeout: opts.Timeout,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

func browserContext(b playwright.Browser, opts *Options) (playwright.BrowserContext, error) {
	// Remote CDP browsers usually come with a live default context.
	if contexts := b.Contexts(); len(contexts) > 0 {
		return contexts[0], nil
	}

	context, err := b.NewContext(playwright.BrowserNewContextOptions{
		Locale:     &opts.Locale,
		TimezoneId: &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	return context, nil
}

// NewSession opens a fresh page owned by the caller.
func (b *Browser) NewSession() (Session, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(b.timeout.Milliseconds()))

	return &pageSession{page: page, timeout: b.timeout}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

type pageSession struct {
	page    playwright.Page
	timeout time.Duration
}

func (s *pageSession) Navigate(url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *pageSession) FindOne(selector string) (Node, error) {
	return findOne(s.page.Locator(selector))
}

func (s *pageSession) FindAll(selector string) ([]Node, error) {
	return findAll(s.page.Locator(selector))
}

func (s *pageSession) Close() error {
	return s.page.Close()
}

type element struct {
	loc playwright.Locator
}

func findOne(loc playwright.Locator) (Node, error) {
	first := loc.First()
	count, err := first.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve locator: %w", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return &element{loc: first}, nil
}

func findAll(loc playwright.Locator) ([]Node, error) {
	locs, err := loc.All()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve locator list: %w", err)
	}

	nodes := make([]Node, 0, len(locs))
	for _, l := range locs {
		nodes = append(nodes, &element{loc: l})
	}
	return nodes, nil
}

func (e *element) Text() (string, error) {
	text, err := e.loc.TextContent()
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (e *element) Attr(name string) (string, error) {
	value, err := e.loc.GetAttribute(name)
	if err != nil {
		return "", fmt.Errorf("failed to read attribute %s: %w", name, err)
	}
	return value, nil
}

func (e *element) FindOne(selector string) (Node, error) {
	return findOne(e.loc.Locator(selector))
}

func (e *element) FindAll(selector string) ([]Node, error) {
	return findAll(e.loc.Locator(selector))
}

func (e *element) Click() error {
	return e.loc.Click()
}

func (e *element) ClickScript() error {
	_, err := e.loc.Evaluate("el => el.click()", nil)
	return err
}
