package api

import "sync"

// runLimiter bounds concurrent engine runs per client IP and in total.
type runLimiter struct {
	mu       sync.Mutex
	active   map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newRunLimiter(maxPerIP, maxTotal int) *runLimiter {
	return &runLimiter{
		active:   make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire registers a run for ip. It returns false when either limit is
// reached.
func (l *runLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.active[ip] >= l.maxPerIP {
		return false
	}
	l.active[ip]++
	l.total++
	return true
}

func (l *runLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total--
	if l.active[ip]--; l.active[ip] <= 0 {
		delete(l.active, ip)
	}
}

func (l *runLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[ip]
}
