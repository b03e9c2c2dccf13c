package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/multierr"

	"github.com/entrhq/domscope/pkg/cascade"
	"github.com/entrhq/domscope/pkg/cdp"
	"github.com/entrhq/domscope/pkg/config"
	"github.com/entrhq/domscope/pkg/errs"
	"github.com/entrhq/domscope/pkg/hooks"
	"github.com/entrhq/domscope/pkg/logging"
	"github.com/entrhq/domscope/pkg/query"
)

// ManagerOptions configures a SessionManager.
type ManagerOptions struct {
	Settings config.BrowserSettings

	// Driver creates the browser driver on first start. Defaults to
	// NewPlaywrightDriver.
	Driver DriverFactory

	// Scenarios is the optional scenario catalog.
	Scenarios *config.ScenarioCatalog

	// Hooks runs scenario setup hooks. Nil disables hooks.
	Hooks hooks.Invoker

	Logger *logging.Logger
}

// SessionManager owns the single browser session slot. It serializes
// page operations against teardown and expires the session after the
// configured idle period.
type SessionManager struct {
	settings  config.BrowserSettings
	allowlist *config.OriginAllowlist
	scenarios *config.ScenarioCatalog
	hooks     hooks.Invoker
	driver    *lazyDriver
	logger    *logging.Logger
	now       func() time.Time

	// opMu is held for the duration of every page operation and every
	// teardown, so a teardown never races an in-flight query.
	opMu sync.Mutex

	mu      sync.Mutex
	state   State
	session *Session
	busy    int
	timer   *time.Timer
	gen     uint64
	closed  bool
	// settled is closed when the start in flight finishes.
	settled chan struct{}
}

// NewSessionManager creates a session manager. The settings are validated
// and the allowlist compiled up front.
func NewSessionManager(opts ManagerOptions) (*SessionManager, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	allow, err := opts.Settings.Allowlist()
	if err != nil {
		return nil, err
	}

	factory := opts.Driver
	if factory == nil {
		factory = func() (Driver, error) { return NewPlaywrightDriver() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &SessionManager{
		settings:  opts.Settings,
		allowlist: allow,
		scenarios: opts.Scenarios,
		hooks:     opts.Hooks,
		driver:    &lazyDriver{factory: factory},
		logger:    logger,
		now:       time.Now,
		state:     StateAbsent,
	}, nil
}

// Settings returns the configuration the manager was built with.
func (m *SessionManager) Settings() config.BrowserSettings {
	return m.settings
}

// Start creates the browser session. A second start while one is in
// flight fails with START_IN_PROGRESS without waiting. A start while a
// session is active fails with ALREADY_STARTED unless single-instance
// enforcement is off, in which case the old session is torn down first.
func (m *SessionManager) Start(ctx context.Context, opts StartOptions) (*StartResult, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errShutdown()
	}
	var previous *Session
	switch m.state {
	case StateStarting:
		m.mu.Unlock()
		return nil, errs.New(errs.CodeStartInProgress, "a browser session is already starting")
	case StateActive:
		if m.settings.SingleInstance {
			id := m.session.ID
			m.mu.Unlock()
			return nil, errs.New(errs.CodeAlreadyStarted, "a browser session is already active").With("sessionId", id)
		}
		previous = m.detachLocked()
	}
	m.state = StateStarting
	m.settled = make(chan struct{})
	m.mu.Unlock()

	if previous != nil {
		m.logger.Infof("Replacing browser session %s", previous.ID)
		if err := m.teardown(previous); err != nil {
			m.logger.Warnf("Teardown of replaced session %s: %v", previous.ID, err)
		}
	}

	s, err := m.create(ctx, opts)

	m.mu.Lock()
	settled := m.settled
	m.settled = nil
	if err == nil && m.closed {
		m.state = StateAbsent
		m.mu.Unlock()
		m.logger.Infof("Discarding browser session %s started during shutdown", s.ID)
		m.discard(s)
		close(settled)
		return nil, errShutdown()
	}
	defer m.mu.Unlock()
	defer close(settled)
	if err != nil {
		m.state = StateAbsent
		m.logger.Errorf("Browser session start failed: %v", err)
		return nil, err
	}
	s.lastUsedAt = m.now()
	m.session = s
	m.state = StateActive
	m.armLocked()
	m.logger.Infof("Browser session %s started (headless=%t scenario=%q)", s.ID, s.Headless, s.Scenario)

	return &StartResult{
		OK:        true,
		SessionID: s.ID,
		Headless:  s.Headless,
		Scenario:  s.Scenario,
		URL:       opts.URL,
	}, nil
}

// Stop tears the active session down. It reports whether a session was
// stopped. Only a failing hook teardown callback is returned as an error;
// resource release failures are logged.
func (m *SessionManager) Stop(ctx context.Context) (bool, error) {
	m.mu.Lock()
	switch m.state {
	case StateAbsent:
		m.mu.Unlock()
		return false, nil
	case StateStarting:
		m.mu.Unlock()
		return false, errs.New(errs.CodeStartInProgress, "a browser session is still starting")
	}
	s := m.detachLocked()
	m.mu.Unlock()

	m.logger.Infof("Stopping browser session %s", s.ID)
	return true, m.teardown(s)
}

// Shutdown stops the session, if any, and then the browser driver. A
// start in flight is waited for and its session discarded; later starts
// fail.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	settled := m.settled
	m.mu.Unlock()

	if settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
			m.logger.Warnf("Shutdown did not wait for the starting session: %v", ctx.Err())
		}
	}

	_, stopErr := m.Stop(ctx)
	if errs.Is(stopErr, errs.CodeStartInProgress) {
		stopErr = nil
	}
	return multierr.Append(stopErr, m.driver.stop())
}

// Status reports the session slot without touching the idle timer.
func (m *SessionManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{State: m.state}
	if m.state != StateActive {
		return st
	}
	s := m.session
	created, last := s.CreatedAt, s.lastUsedAt
	remaining := last.Add(m.settings.IdleTimeout).Sub(m.now()).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	st.SessionID = s.ID
	st.URL = s.Page.URL()
	st.Scenario = s.Scenario
	st.CreatedAt = &created
	st.LastUsedAt = &last
	st.IdleRemainingMs = &remaining
	return st
}

// WithSession runs fn against the active session. The idle timer is held
// while fn runs and reset when it succeeds.
func (m *SessionManager) WithSession(ctx context.Context, fn func(*Session) error) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return errs.New(errs.CodeNoActiveSession, "no active browser session; call browser_start_session first")
	}
	s := m.session
	m.busy++
	m.mu.Unlock()

	err := fn(s)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy--
	if m.session != s {
		return err
	}
	if err == nil {
		s.lastUsedAt = m.now()
	}
	m.armLocked()
	return err
}

// detachLocked empties the slot and disarms the idle timer.
func (m *SessionManager) detachLocked() *Session {
	s := m.session
	m.session = nil
	m.state = StateAbsent
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	return s
}

// armLocked (re)starts the idle timer from the session's last use.
func (m *SessionManager) armLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.gen++
	gen := m.gen
	wait := m.session.lastUsedAt.Add(m.settings.IdleTimeout).Sub(m.now())
	if wait < 0 {
		wait = 0
	}
	m.timer = time.AfterFunc(wait, func() { m.expire(gen) })
}

func (m *SessionManager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateActive || m.busy > 0 {
		m.mu.Unlock()
		return
	}
	s := m.detachLocked()
	m.mu.Unlock()

	m.logger.Infof("Browser session %s idle for %s, closing", s.ID, m.settings.IdleTimeout)
	if err := m.teardown(s); err != nil {
		m.logger.Warnf("Idle teardown of session %s: %v", s.ID, err)
	}
}

// teardown releases s in order: debugging connection, page, context,
// browser, then the hook's stop callback. Every step runs regardless of
// earlier failures.
func (m *SessionManager) teardown(s *Session) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := release(s); err != nil {
		m.logger.Warnf("Releasing browser session %s: %v", s.ID, err)
	}
	if s.stop == nil {
		return nil
	}
	if err := callStop(s.stop); err != nil {
		return errs.Wrap(errs.CodeHookTeardownFailed, err, "scenario %q teardown failed", s.Scenario)
	}
	return nil
}

func release(s *Session) error {
	var err error
	if s.CDP != nil {
		err = multierr.Append(err, s.CDP.Detach())
	}
	if s.Page != nil {
		err = multierr.Append(err, s.Page.Close())
	}
	if s.Context != nil {
		err = multierr.Append(err, s.Context.Close())
	}
	if s.Browser != nil {
		err = multierr.Append(err, s.Browser.Close())
	}
	return err
}

func callStop(stop func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("teardown callback panicked")
		}
	}()
	return stop()
}

// create builds a session. Anything created before a failure is released
// before returning.
func (m *SessionManager) create(ctx context.Context, opts StartOptions) (*Session, error) {
	scenario, inCatalog := m.scenarios.Lookup(opts.Scenario)
	hook, err := m.resolveHook(opts.Scenario, scenario, inCatalog)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		Scenario:  opts.Scenario,
		Headless:  m.settings.Headless,
		BaseURL:   m.settings.BaseURL,
		CreatedAt: m.now(),
		settings:  m.settings,
		allowlist: m.allowlist,
	}
	if scenario.Headless != nil {
		s.Headless = *scenario.Headless
	}
	if opts.Interactive {
		s.Headless = false
	}
	if scenario.BaseURL != "" {
		s.BaseURL = scenario.BaseURL
	}

	if err := m.open(s, scenario); err != nil {
		if rErr := release(s); rErr != nil {
			m.logger.Warnf("Releasing partially started session: %v", rErr)
		}
		return nil, err
	}

	if err := m.enable(ctx, s); err != nil {
		m.discard(s)
		return nil, err
	}

	if err := m.runHook(ctx, s, hook); err != nil {
		m.discard(s)
		return nil, err
	}

	if opts.URL != "" {
		if _, err := s.Navigate(ctx, opts.URL, NavigateOptions{}); err != nil {
			m.discard(s)
			return nil, err
		}
	}
	return s, nil
}

// discard releases a session that never became active, including any
// teardown callback its hook returned.
func (m *SessionManager) discard(s *Session) {
	if err := release(s); err != nil {
		m.logger.Warnf("Releasing partially started session: %v", err)
	}
	if s.stop != nil {
		if err := callStop(s.stop); err != nil {
			m.logger.Warnf("Scenario %q teardown after failed start: %v", s.Scenario, err)
		}
	}
}

// open launches the browser and creates the context, page and debugging
// connection.
func (m *SessionManager) open(s *Session, scenario config.Scenario) error {
	driver, err := m.driver.get()
	if err != nil {
		return errs.Wrap(errs.CodeLaunchFailed, err, "browser driver unavailable")
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if scenario.Device != "" {
		device, ok := driver.Device(scenario.Device)
		if !ok {
			return errs.New(errs.CodeInvalidArgument, "unknown device profile %q", scenario.Device)
		}
		contextOpts.UserAgent = playwright.String(device.UserAgent)
		contextOpts.Viewport = device.Viewport
		contextOpts.DeviceScaleFactor = playwright.Float(device.DeviceScaleFactor)
		contextOpts.IsMobile = playwright.Bool(device.IsMobile)
		contextOpts.HasTouch = playwright.Bool(device.HasTouch)
	}
	if scenario.Viewport != nil {
		contextOpts.Viewport = &playwright.Size{
			Width:  scenario.Viewport.Width,
			Height: scenario.Viewport.Height,
		}
	}
	if s.BaseURL != "" {
		contextOpts.BaseURL = playwright.String(s.BaseURL)
	}
	storage := m.settings.StorageState
	if scenario.StorageState != "" {
		storage = scenario.StorageState
	}
	if storage != "" {
		contextOpts.StorageStatePath = playwright.String(storage)
	}

	if s.Browser, err = driver.Launch(s.Headless); err != nil {
		return errs.Wrap(errs.CodeLaunchFailed, err, "failed to launch browser")
	}
	if s.Context, err = s.Browser.NewContext(contextOpts); err != nil {
		return errs.Wrap(errs.CodeLaunchFailed, err, "failed to create browser context")
	}
	if s.Page, err = s.Context.NewPage(); err != nil {
		return errs.Wrap(errs.CodeLaunchFailed, err, "failed to create page")
	}
	s.Page.SetDefaultTimeout(millis(m.settings.QueryTimeout))
	s.Page.SetDefaultNavigationTimeout(millis(m.settings.NavigationTimeout))

	if s.CDP, err = s.Context.NewCDPSession(s.Page); err != nil {
		return errs.Wrap(errs.CodeLaunchFailed, err, "failed to attach debugging session")
	}
	return nil
}

// enable turns on the DOM and CSS domains and builds the query layers.
func (m *SessionManager) enable(ctx context.Context, s *Session) error {
	s.client = cdp.NewClient(s.CDP)
	s.client.Watch(s.CDP)

	ctx, cancel := context.WithTimeout(ctx, m.settings.QueryTimeout)
	defer cancel()
	if err := s.client.Enable(ctx); err != nil {
		if errs.CodeOf(err) == errs.CodeUnexpected {
			return errs.Wrap(errs.CodeLaunchFailed, err, "failed to enable inspection domains")
		}
		return err
	}

	s.queries = query.New(s.client)
	s.cascade = cascade.NewEngine(s.client)
	return nil
}

// resolveHook picks the setup hook for a scenario before anything is
// launched. A catalog scenario without an explicit hook uses the hook of
// the same name only if one exists. An empty name means no hook runs.
func (m *SessionManager) resolveHook(name string, scenario config.Scenario, inCatalog bool) (string, error) {
	if name == "" {
		return "", nil
	}
	hook := scenario.Hook
	if hook == "" {
		hook = name
	}

	found := false
	if m.hooks != nil {
		ok, err := m.hooks.Has(hook)
		if err != nil {
			return "", errs.Wrap(errs.CodeHookSetupFailed, err, "scenario %q: hooks module unavailable", name).With("hook", hook)
		}
		found = ok
	}

	switch {
	case found:
		return hook, nil
	case !inCatalog:
		return "", errs.New(errs.CodeInvalidArgument, "unknown scenario %q", name).
			With("scenarios", m.scenarios.Names())
	case scenario.Hook != "":
		return "", errs.New(errs.CodeHookSetupFailed, "scenario %q needs hook %q but it is not defined", name, hook).
			With("hook", hook)
	default:
		return "", nil
	}
}

// runHook invokes the setup hook, if any, and keeps its stop callback.
func (m *SessionManager) runHook(ctx context.Context, s *Session, hook string) error {
	if hook == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultHookTimeout)
	defer cancel()

	res, err := m.hooks.Invoke(ctx, hook, hooks.Context{
		Page:    &hookPage{session: s},
		BaseURL: s.BaseURL,
	})
	if err != nil {
		return errs.Wrap(errs.CodeHookSetupFailed, err, "scenario %q setup failed", s.Scenario).With("hook", hook)
	}
	s.stop = res.Stop
	return nil
}

func errShutdown() error {
	return errs.New(errs.CodeLaunchFailed, "browser session manager is shut down")
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
