package migration

import "sync"

// Session holds the cross-entity mapping state for one migration run. Each
// phase writes the mappings the next phase reads: activities populate the
// activity table, timeslices consume it and populate the timeslice table,
// notes and states consume the timeslice table. A Session is owned by the
// orchestrator and passed into every phase; it is never shared between runs.
type Session struct {
	mu           sync.Mutex
	activityIDs  map[string]string
	timesliceIDs map[string]string
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{
		activityIDs:  make(map[string]string),
		timesliceIDs: make(map[string]string),
	}
}

// MapActivity records a source→target activity ID pair.
func (s *Session) MapActivity(sourceID, targetID string) {
	s.mu.Lock()
	s.activityIDs[sourceID] = targetID
	s.mu.Unlock()
}

// ActivityID resolves a source activity ID to its target counterpart.
func (s *Session) ActivityID(sourceID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.activityIDs[sourceID]
	return id, ok
}

// ActivityCount reports how many activity mappings have been recorded.
func (s *Session) ActivityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activityIDs)
}

// MapTimeslice records a source→target timeslice ID pair.
func (s *Session) MapTimeslice(sourceID, targetID string) {
	s.mu.Lock()
	s.timesliceIDs[sourceID] = targetID
	s.mu.Unlock()
}

// TimesliceID resolves a source timeslice ID to its target counterpart.
func (s *Session) TimesliceID(sourceID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.timesliceIDs[sourceID]
	return id, ok
}

// TimesliceCount reports how many timeslice mappings have been recorded.
func (s *Session) TimesliceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timesliceIDs)
}

// Reset drops all recorded mappings.
func (s *Session) Reset() {
	s.mu.Lock()
	s.activityIDs = make(map[string]string)
	s.timesliceIDs = make(map[string]string)
	s.mu.Unlock()
}
