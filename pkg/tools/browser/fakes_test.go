package browser

import (
	"errors"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/domscope/pkg/cdp/cdptest"
)

// recorder collects the order of lifecycle events across fakes.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// fakeDriver launches fakeBrowsers. When gate is set, Launch blocks until
// it is closed.
type fakeDriver struct {
	rec       *recorder
	gate      chan struct{}
	launchErr error
	devices   map[string]*playwright.DeviceDescriptor

	// newConn scripts the debugging connection of each launched browser.
	newConn func() *cdptest.Conn
	// page customizes each created page.
	page func(*fakePage)

	mu       sync.Mutex
	launched []*fakeBrowser
	stopped  bool
}

func (d *fakeDriver) Launch(headless bool) (playwright.Browser, error) {
	if d.gate != nil {
		<-d.gate
	}
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	d.rec.add("browser.launch")
	b := &fakeBrowser{driver: d, headless: headless}
	d.mu.Lock()
	d.launched = append(d.launched, b)
	d.mu.Unlock()
	return b, nil
}

func (d *fakeDriver) Device(name string) (*playwright.DeviceDescriptor, bool) {
	desc, ok := d.devices[name]
	return desc, ok
}

func (d *fakeDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *fakeDriver) isStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func (d *fakeDriver) browsers() []*fakeBrowser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeBrowser(nil), d.launched...)
}

type fakeBrowser struct {
	playwright.Browser
	driver   *fakeDriver
	headless bool
	closeErr error

	mu          sync.Mutex
	contextOpts playwright.BrowserNewContextOptions
	context     *fakeContext
	closed      bool
}

func (b *fakeBrowser) NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(options) > 0 {
		b.contextOpts = options[0]
	}
	b.context = &fakeContext{browser: b}
	return b.context, nil
}

func (b *fakeBrowser) Close(options ...playwright.BrowserCloseOptions) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.driver.rec.add("browser.close")
	return b.closeErr
}

func (b *fakeBrowser) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type fakeContext struct {
	playwright.BrowserContext
	browser *fakeBrowser
	page    *fakePage
	cdp     *fakeCDP
}

func (c *fakeContext) NewPage() (playwright.Page, error) {
	c.page = &fakePage{rec: c.browser.driver.rec, url: "about:blank"}
	if c.browser.driver.page != nil {
		c.browser.driver.page(c.page)
	}
	return c.page, nil
}

func (c *fakeContext) NewCDPSession(page interface{}) (playwright.CDPSession, error) {
	conn := cdptest.New()
	if c.browser.driver.newConn != nil {
		conn = c.browser.driver.newConn()
	} else {
		enableDomains(conn)
	}
	c.cdp = &fakeCDP{conn: conn, rec: c.browser.driver.rec}
	return c.cdp, nil
}

func (c *fakeContext) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.browser.driver.rec.add("context.close")
	return nil
}

// fakeCDP forwards commands and events to a scripted connection.
type fakeCDP struct {
	playwright.CDPSession
	conn *cdptest.Conn
	rec  *recorder
}

func (c *fakeCDP) Send(method string, params map[string]interface{}) (interface{}, error) {
	return c.conn.Send(method, params)
}

func (c *fakeCDP) On(name string, handler interface{}) {
	c.conn.On(name, handler)
}

func (c *fakeCDP) Detach() error {
	c.rec.add("cdp.detach")
	return nil
}

// fakePage implements the page calls the session makes.
type fakePage struct {
	playwright.Page
	rec *recorder

	mu       sync.Mutex
	url      string
	title    string
	gotoErr  error
	redirect string
	html     string
	text     string
	closeErr error
	evalFn   func(script string) (interface{}, error)
	clicked  []string
	filled   map[string]string
	gotos    []string
}

func (p *fakePage) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotos = append(p.gotos, url)
	if p.gotoErr != nil {
		return nil, p.gotoErr
	}
	p.url = url
	if p.redirect != "" && url != "about:blank" {
		p.url = p.redirect
	}
	return nil, nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Title() (string, error) {
	return p.title, nil
}

func (p *fakePage) Content() (string, error) {
	return p.html, nil
}

func (p *fakePage) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	if p.evalFn == nil {
		return nil, errors.New("evaluate not scripted")
	}
	return p.evalFn(expression)
}

func (p *fakePage) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	return []byte("png-bytes"), nil
}

func (p *fakePage) WaitForSelector(selector string, options ...playwright.PageWaitForSelectorOptions) (playwright.ElementHandle, error) {
	return nil, nil
}

func (p *fakePage) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	return &fakeLocator{page: p, selector: selector}
}

func (p *fakePage) SetDefaultTimeout(timeout float64)           {}
func (p *fakePage) SetDefaultNavigationTimeout(timeout float64) {}

func (p *fakePage) Close(options ...playwright.PageCloseOptions) error {
	p.rec.add("page.close")
	return p.closeErr
}

// locatorBase keeps the embedded field from shadowing Locator.Locator.
type locatorBase = playwright.Locator

var _ playwright.Locator = (*fakeLocator)(nil)

type fakeLocator struct {
	locatorBase
	page     *fakePage
	selector string
}

func (l *fakeLocator) First() playwright.Locator {
	return l
}

func (l *fakeLocator) Click(options ...playwright.LocatorClickOptions) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	l.page.clicked = append(l.page.clicked, l.selector)
	return nil
}

func (l *fakeLocator) Fill(value string, options ...playwright.LocatorFillOptions) error {
	l.page.mu.Lock()
	defer l.page.mu.Unlock()
	if l.page.filled == nil {
		l.page.filled = make(map[string]string)
	}
	l.page.filled[l.selector] = value
	return nil
}

func (l *fakeLocator) InnerText(options ...playwright.LocatorInnerTextOptions) (string, error) {
	return l.page.text, nil
}

func (l *fakeLocator) InnerHTML(options ...playwright.LocatorInnerHTMLOptions) (string, error) {
	return l.page.html, nil
}

// enableDomains makes DOM.enable and CSS.enable succeed.
func enableDomains(conn *cdptest.Conn) {
	conn.Respond("DOM.enable", map[string]interface{}{})
	conn.Respond("CSS.enable", map[string]interface{}{})
}
