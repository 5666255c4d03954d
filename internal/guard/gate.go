package guard

import (
	"sync"

	"github.com/dtroode/healping/internal/model"
)

// Gate remembers the last decision of a policy so that a navigation is issued
// once per outcome change rather than on every state update.
type Gate struct {
	policy *Policy

	mu   sync.Mutex
	last *Decision
}

// NewGate creates a Gate for policy.
func NewGate(policy *Policy) *Gate {
	return &Gate{policy: policy}
}

// Observe decides for s and reports whether the decision differs from the previous one.
func (g *Gate) Observe(s model.State) (Decision, bool) {
	d := g.policy.Decide(s)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last != nil && *g.last == d {
		return d, false
	}
	g.last = &d
	return d, true
}
