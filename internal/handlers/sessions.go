package handlers

import (
	"sync"

	"clinic-portal-server/internal/schedule"
)

// CalendarSessions caches one calendar controller per portal user for the
// lifetime of their clinic session. An entry is stored only after the
// controller's first load succeeded, is replaced whenever the stored clinic
// token changes, and is dropped on logout.
type CalendarSessions struct {
	mu      sync.Mutex
	entries map[string]*calendarSession
}

type calendarSession struct {
	controller  *schedule.Controller
	clinicToken string
}

// NewCalendarSessions creates an empty session registry.
func NewCalendarSessions() *CalendarSessions {
	return &CalendarSessions{entries: make(map[string]*calendarSession)}
}

// lookup returns the cached controller for the user when the clinic token
// still matches the one the controller was built with.
func (s *CalendarSessions) lookup(userID, clinicToken string) (*schedule.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.entries[userID]
	if !ok || session.clinicToken != clinicToken {
		return nil, false
	}
	return session.controller, true
}

// store caches an initialized controller, replacing any previous session for
// the user.
func (s *CalendarSessions) store(userID, clinicToken string, controller *schedule.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[userID]; ok {
		old.controller.Close()
	}
	s.entries[userID] = &calendarSession{controller: controller, clinicToken: clinicToken}
}

// evict drops the user's cached session, if any.
func (s *CalendarSessions) evict(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.entries[userID]; ok {
		session.controller.Close()
		delete(s.entries, userID)
	}
}
