package core

import (
	"fmt"
	"sort"
	"sync"
)

// CallBudget is the model call allowance of one pipeline run. The coordinator
// and every worker it invokes charge the same budget, so a worker stuck in tool
// rounds cannot starve the presenter of its call indefinitely.
type CallBudget struct {
	mu       sync.Mutex
	max      int
	total    int
	byWorker map[string]int
}

// NewCallBudget creates a budget of max calls; max <= 0 means unlimited.
func NewCallBudget(max int) *CallBudget {
	return &CallBudget{max: max, byWorker: map[string]int{}}
}

// Charge records one model call by worker. It fails without recording once
// the budget is spent.
func (b *CallBudget) Charge(worker string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.total >= b.max {
		return fmt.Errorf("%w: %s after %d calls", ErrModelCallLimit, worker, b.total)
	}
	b.total++
	b.byWorker[worker]++
	return nil
}

// Count returns the calls charged so far.
func (b *CallBudget) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Spent reports whether no call is left.
func (b *CallBudget) Spent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max > 0 && b.total >= b.max
}

// Breakdown returns "worker=n" pairs sorted by worker name, for logging.
func (b *CallBudget) Breakdown() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.byWorker))
	for w, n := range b.byWorker {
		out = append(out, fmt.Sprintf("%s=%d", w, n))
	}
	sort.Strings(out)
	return out
}
