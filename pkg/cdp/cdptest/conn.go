// Package cdptest provides a scripted protocol connection for tests.
package cdptest

import (
	"fmt"
	"reflect"
	"sync"
)

// Handler produces the result of one command.
type Handler func(params map[string]interface{}) (interface{}, error)

// Call is a recorded command.
type Call struct {
	Method string
	Params map[string]interface{}
}

// Conn is an in-memory cdp.Conn and cdp.EventSource. Commands without a
// handler fail with a "wasn't found" error, as the browser does.
type Conn struct {
	mu        sync.Mutex
	handlers  map[string]Handler
	listeners map[string][]interface{}
	calls     []Call
}

// New creates an empty connection.
func New() *Conn {
	return &Conn{
		handlers:  make(map[string]Handler),
		listeners: make(map[string][]interface{}),
	}
}

// Handle installs fn for method.
func (c *Conn) Handle(method string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[method] = fn
}

// Respond installs a fixed result for method.
func (c *Conn) Respond(method string, result interface{}) {
	c.Handle(method, func(map[string]interface{}) (interface{}, error) {
		return result, nil
	})
}

// Fail makes method return err.
func (c *Conn) Fail(method string, err error) {
	c.Handle(method, func(map[string]interface{}) (interface{}, error) {
		return nil, err
	})
}

// Send implements cdp.Conn.
func (c *Conn) Send(method string, params map[string]interface{}) (interface{}, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: method, Params: params})
	fn, ok := c.handlers[method]
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("'%s' wasn't found", method)
	}
	return fn(params)
}

// On implements cdp.EventSource.
func (c *Conn) On(name string, handler interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[name] = append(c.listeners[name], handler)
}

// Emit delivers an event to every listener registered for name.
func (c *Conn) Emit(name string, params map[string]interface{}) {
	c.mu.Lock()
	listeners := append([]interface{}(nil), c.listeners[name]...)
	c.mu.Unlock()

	for _, l := range listeners {
		reflect.ValueOf(l).Call([]reflect.Value{reflect.ValueOf(params)})
	}
}

// Calls returns every recorded command.
func (c *Conn) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallCount returns how many times method was sent.
func (c *Conn) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Method == method {
			n++
		}
	}
	return n
}
