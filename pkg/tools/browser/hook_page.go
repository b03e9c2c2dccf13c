package browser

import (
	"context"
)

// hookPage exposes the session page to setup hooks. Navigation goes
// through the same URL resolution and allowlist as browser_navigate.
type hookPage struct {
	session *Session
}

func (p *hookPage) Goto(url string) error {
	_, err := p.session.Navigate(context.Background(), url, NavigateOptions{})
	return err
}

func (p *hookPage) Click(selector string) error {
	return p.session.Click(selector, ClickOptions{})
}

func (p *hookPage) Fill(selector, value string) error {
	return p.session.Fill(selector, value, 0)
}

func (p *hookPage) WaitForSelector(selector string) error {
	return p.session.Wait(selector, WaitOptions{})
}

func (p *hookPage) Evaluate(script string) (interface{}, error) {
	return p.session.Evaluate(context.Background(), script, 0)
}

func (p *hookPage) URL() string {
	return p.session.Page.URL()
}
