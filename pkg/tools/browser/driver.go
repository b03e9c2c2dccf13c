package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Driver launches browsers. The playwright implementation is used in
// production; tests supply fakes.
type Driver interface {
	// Launch starts a Chromium instance.
	Launch(headless bool) (playwright.Browser, error)
	// Device returns a named device profile ("iPhone 13", "Pixel 7").
	Device(name string) (*playwright.DeviceDescriptor, bool)
	// Stop shuts the driver down.
	Stop() error
}

// DriverFactory creates a driver on first use.
type DriverFactory func() (Driver, error)

// PlaywrightDriver drives Chromium through playwright.
type PlaywrightDriver struct {
	pw *playwright.Playwright
}

// NewPlaywrightDriver installs the playwright driver and browsers if needed
// and starts it. Output is discarded because stdout carries the tool
// protocol.
func NewPlaywrightDriver() (*PlaywrightDriver, error) {
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return &PlaywrightDriver{pw: pw}, nil
}

// Launch starts Chromium.
func (d *PlaywrightDriver) Launch(headless bool) (playwright.Browser, error) {
	return d.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
}

// Device looks up a playwright device descriptor.
func (d *PlaywrightDriver) Device(name string) (*playwright.DeviceDescriptor, bool) {
	desc, ok := d.pw.Devices[name]
	return desc, ok && desc != nil
}

// Stop stops the playwright driver process.
func (d *PlaywrightDriver) Stop() error {
	return d.pw.Stop()
}

// lazyDriver creates the underlying driver once, on first launch.
type lazyDriver struct {
	factory DriverFactory

	mu     sync.Mutex
	driver Driver
}

func (l *lazyDriver) get() (Driver, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.driver != nil {
		return l.driver, nil
	}
	d, err := l.factory()
	if err != nil {
		return nil, err
	}
	l.driver = d
	return d, nil
}

// stop stops the driver if one was created.
func (l *lazyDriver) stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.driver == nil {
		return nil
	}
	err := l.driver.Stop()
	l.driver = nil
	return err
}
