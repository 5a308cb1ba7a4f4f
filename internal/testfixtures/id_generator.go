package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out predictable snapshot identifiers.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

// NewIDGenerator returns a generator producing prefix-0001, prefix-0002...
// An empty prefix becomes "snap".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "snap"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the following identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%04d", g.prefix, g.counter)
}

// Issued reports how many identifiers have been produced.
func (g *IDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}
