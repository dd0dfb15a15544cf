package booking

import "sync"

// sessionTracker holds the most authoritative short-lived session
// credential for one run. Last write wins; callers apply precedence
// (login-derived over venue-derived) by choosing what to Set and when.
type sessionTracker struct {
	mu    sync.Mutex
	token string
}

func (s *sessionTracker) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *sessionTracker) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
