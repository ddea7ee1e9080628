package aggregate

import (
	"sort"
	"time"
)

// DefaultSessionIdleTimeout closes a session after this much inactivity.
// Matches the default billing block duration, so a gap long enough to end
// a block also ends the session.
const DefaultSessionIdleTimeout = 5 * time.Hour

// Session is one span of conversation activity. A conversation id yields a
// new Session whenever it resumes after the idle timeout.
type Session struct {
	ID        string
	Project   string
	Instance  string
	StartedAt time.Time
	LastAt    time.Time
	Totals    Totals
	models    modelMap
	Open      bool
}

func (s *Session) Duration() time.Duration {
	return s.LastAt.Sub(s.StartedAt)
}

// Models returns the session's per-model breakdown, name-sorted.
func (s *Session) Models() []ModelBreakdown {
	return s.models.breakdowns()
}

func (s *Session) append(ev CostedEvent) {
	if ev.Timestamp.Before(s.StartedAt) {
		s.StartedAt = ev.Timestamp
	}
	if ev.Timestamp.After(s.LastAt) {
		s.LastAt = ev.Timestamp
	}
	s.Totals.add(ev)
	s.models.add(ev)
}

func newSession(ev CostedEvent) *Session {
	s := &Session{
		ID:        ev.SessionID,
		Project:   ev.Project,
		Instance:  ev.Instance,
		StartedAt: ev.Timestamp,
		LastAt:    ev.Timestamp,
		models:    make(modelMap),
	}
	s.Totals.add(ev)
	s.models.add(ev)
	return s
}

// GroupSessions walks time-sorted events and assigns each to the open
// session with its conversation id, splitting on idle gaps longer than the
// timeout. Sessions are never merged once split. now decides which
// sessions are still open.
func GroupSessions(events []CostedEvent, idleTimeout time.Duration, now time.Time) []*Session {
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}

	var sessions []*Session
	open := make(map[string]*Session)

	for _, ev := range events {
		s, ok := open[ev.SessionID]
		if ok && ev.Timestamp.Sub(s.LastAt) > idleTimeout {
			ok = false
		}
		if !ok {
			s = newSession(ev)
			sessions = append(sessions, s)
			open[ev.SessionID] = s
			continue
		}
		s.append(ev)
	}

	// Only the latest session per conversation can still be open, and only
	// while its idle window has not lapsed.
	for _, s := range open {
		s.Open = now.Sub(s.LastAt) <= idleTimeout
	}

	// Most recent activity first.
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastAt.Equal(sessions[j].LastAt) {
			return sessions[i].LastAt.After(sessions[j].LastAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions
}
