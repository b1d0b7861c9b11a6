package prophecy

import (
	"fmt"
	"sync"
)

const (
	DefaultMaxTracked  = 1000
	DefaultMaxInsights = 20
)

type contextEntry struct {
	text     string
	theme    Theme
	insights []string
}

// InsightContext remembers generated prophecies for the life of the process so
// insights can be answered without a store round trip. It holds at most
// maxTracked ids and maxInsights insights per id, evicting the oldest first.
type InsightContext struct {
	mu          sync.RWMutex
	entries     map[string]*contextEntry
	order       []string
	last        string
	maxTracked  int
	maxInsights int
}

// NewInsightContext creates an empty context. Non-positive limits use the defaults.
func NewInsightContext(maxTracked, maxInsights int) *InsightContext {
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTracked
	}
	if maxInsights <= 0 {
		maxInsights = DefaultMaxInsights
	}
	return &InsightContext{
		entries:     make(map[string]*contextEntry),
		maxTracked:  maxTracked,
		maxInsights: maxInsights,
	}
}

// Record allocates an id for a prophecy created at unix second ts and stores it.
// The id is "prophecy_<ts>", or "prophecy_<ts>_<n>" (n >= 2) when that id is taken.
func (c *InsightContext) Record(ts int64, text string, theme Theme) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := fmt.Sprintf("prophecy_%d", ts)
	for n := 2; c.entries[id] != nil; n++ {
		id = fmt.Sprintf("prophecy_%d_%d", ts, n)
	}
	c.insert(id, text, theme)
	c.last = id
	return id
}

// Seed stores a prophecy under a known id, e.g. one recovered from the content store.
// An existing entry keeps its insight history.
func (c *InsightContext) Seed(id, text string, theme Theme) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok {
		e.text, e.theme = text, theme
		return
	}
	c.insert(id, text, theme)
}

func (c *InsightContext) insert(id, text string, theme Theme) {
	for len(c.order) >= c.maxTracked {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		if c.last == oldest {
			c.last = ""
		}
	}
	c.entries[id] = &contextEntry{text: text, theme: theme}
	c.order = append(c.order, id)
}

// Lookup returns the text and theme stored for id.
func (c *InsightContext) Lookup(id string) (text string, theme Theme, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return "", "", false
	}
	return e.text, e.theme, true
}

// AppendInsight adds an insight to id's history. It returns false if id is unknown.
func (c *InsightContext) AppendInsight(id, insight string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return false
	}
	e.insights = append(e.insights, insight)
	if over := len(e.insights) - c.maxInsights; over > 0 {
		e.insights = append([]string(nil), e.insights[over:]...)
	}
	return true
}

// History returns a copy of id's insights, oldest first.
func (c *InsightContext) History(id string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok || len(e.insights) == 0 {
		return nil
	}
	out := make([]string, len(e.insights))
	copy(out, e.insights)
	return out
}

// Last returns the most recently recorded id.
func (c *InsightContext) Last() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.last != ""
}

// Len returns the number of tracked ids.
func (c *InsightContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset forgets everything.
func (c *InsightContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*contextEntry)
	c.order = nil
	c.last = ""
}
