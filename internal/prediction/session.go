package prediction

import (
	"sync"

	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// Session is a single-slot holder for the latest prediction. Each Store
// replaces the previous result; there is no history. The service runs one
// shared session, so concurrent users see each other's latest prediction.
type Session struct {
	mu     sync.RWMutex
	result *domain.PredictionResult
}

// NewSession returns an empty session.
func NewSession() *Session { return &Session{} }

// Store replaces the current prediction.
func (s *Session) Store(r domain.PredictionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &r
}

// Current returns the latest prediction, or [domain.ErrNoPrediction].
func (s *Session) Current() (domain.PredictionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return domain.PredictionResult{}, domain.ErrNoPrediction
	}
	return *s.result, nil
}
