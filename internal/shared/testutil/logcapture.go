package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// Entry is one log line seen by a LogCapture. Attribute keys inside a
// group are joined with dots, the way the JSON handler nests them.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type entries struct {
	mu   sync.Mutex
	list []Entry
}

// LogCapture is a slog.Handler that keeps every entry in memory.
// Handlers derived through WithAttrs or WithGroup append to the same list.
type LogCapture struct {
	shared *entries
	prefix string
	bound  map[string]any
	t      testing.TB
}

// NewTestLogger returns a logger writing into a fresh capture. Entries are
// echoed through t.Logf so they show up under -v.
func NewTestLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	c := &LogCapture{shared: &entries{}, bound: map[string]any{}, t: t}
	return slog.New(c), c
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Level: r.Level, Message: r.Message, Attrs: make(map[string]any, len(c.bound)+r.NumAttrs())}
	for k, v := range c.bound {
		e.Attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(e.Attrs, c.prefix, a)
		return true
	})

	c.shared.mu.Lock()
	c.shared.list = append(c.shared.list, e)
	c.shared.mu.Unlock()

	if c.t != nil {
		c.t.Logf("%s %q %v", r.Level, r.Message, e.Attrs)
	}
	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := c.derive(c.prefix)
	for _, a := range attrs {
		flatten(next.bound, c.prefix, a)
	}
	return next
}

func (c *LogCapture) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	return c.derive(c.prefix + name + ".")
}

func (c *LogCapture) derive(prefix string) *LogCapture {
	bound := make(map[string]any, len(c.bound))
	for k, v := range c.bound {
		bound[k] = v
	}
	return &LogCapture{shared: c.shared, prefix: prefix, bound: bound, t: c.t}
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[prefix+a.Key] = v.Any()
}

// Entries returns a copy of everything captured so far. With levels given,
// only entries at one of those levels are returned.
func (c *LogCapture) Entries(levels ...slog.Level) []Entry {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	out := make([]Entry, 0, len(c.shared.list))
	for _, e := range c.shared.list {
		if len(levels) == 0 || containsLevel(levels, e.Level) {
			out = append(out, e)
		}
	}
	return out
}

func containsLevel(levels []slog.Level, l slog.Level) bool {
	for _, want := range levels {
		if want == l {
			return true
		}
	}
	return false
}

// Find returns the first entry whose message contains substr.
func (c *LogCapture) Find(substr string) (Entry, bool) {
	for _, e := range c.Entries() {
		if strings.Contains(e.Message, substr) {
			return e, true
		}
	}
	return Entry{}, false
}

func (c *LogCapture) ContainsMessage(substr string) bool {
	_, ok := c.Find(substr)
	return ok
}

func (c *LogCapture) Count() int {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()
	return len(c.shared.list)
}

// Reset drops captured entries for every handler sharing this capture.
func (c *LogCapture) Reset() {
	c.shared.mu.Lock()
	c.shared.list = nil
	c.shared.mu.Unlock()
}

// AssertLogContains fails t unless an entry at level has a message
// containing substr.
func AssertLogContains(t testing.TB, c *LogCapture, level slog.Level, substr string) {
	t.Helper()
	for _, e := range c.Entries(level) {
		if strings.Contains(e.Message, substr) {
			return
		}
	}
	t.Errorf("no %s entry containing %q; captured:", level, substr)
	for _, e := range c.Entries() {
		t.Logf("  %s %q", e.Level, e.Message)
	}
}

// AssertLogAttr fails t unless some entry carries key with the given value.
func AssertLogAttr(t testing.TB, c *LogCapture, key string, want any) {
	t.Helper()
	for _, e := range c.Entries() {
		if got, ok := e.Attrs[key]; ok && got == want {
			return
		}
	}
	t.Errorf("no entry with %s=%v; captured:", key, want)
	for _, e := range c.Entries() {
		t.Logf("  %q %v", e.Message, e.Attrs)
	}
}
