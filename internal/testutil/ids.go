package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator produces translation IDs "<prefix>-1", "<prefix>-2", ...
//
// Unlike translator.FixedGenerator it never runs out, and it can be reset so
// the same scenario run twice yields identical IDs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequenceGenerator creates a generator starting at 0.
// If prefix is empty, IDs are "translation-N".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "translation"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next ID. The first call returns "<prefix>-1".
//
// Implements translator.IDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Current returns the number of IDs handed out.
func (g *SequenceGenerator) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. The next Generate returns "<prefix>-1".
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
