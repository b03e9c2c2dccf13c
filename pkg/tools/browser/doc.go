// Package browser drives a single Chromium session through Playwright and
// exposes it as tools for an agent.
//
// # Session Lifecycle
//
// A SessionManager owns one session slot that moves through three states:
//
//	absent --Start--> starting --ok--> active --Stop/idle--> absent
//	                           --err-> absent
//
// Start is rejected with START_IN_PROGRESS while another start is in
// flight, and with ALREADY_STARTED while a session is active (unless
// single-instance enforcement is disabled, in which case the old session
// is replaced). Every successful page operation resets the idle timer;
// status, start and stop do not.
//
// Teardown releases the debugging connection, page, context and browser
// in that order, logging failures, and then runs the scenario hook's stop
// callback, whose failure is reported as HOOK_TEARDOWN_FAILED.
//
// # Tools
//
// Session management:
//   - browser_start_session, browser_stop_session, browser_session_status
//
// Inspection:
//   - browser_get_element: attributes, role, box model, computed styles
//   - browser_get_css_provenance: winning declaration and its source location
//
// Page interaction:
//   - browser_navigate, browser_click, browser_fill, browser_wait_for
//   - browser_evaluate, browser_read_content, browser_search_text, browser_screenshot
//
// Failures are *errs.Error values carrying a stable code.
package browser
