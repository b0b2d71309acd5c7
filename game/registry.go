package game

// sessionRegistry tracks the open sessions per userId within one room.
// It is only ever touched from the room's goroutine, so it needs no
// locking; the actor supplies the mutual exclusion.
type sessionRegistry struct {
	byUser map[string]map[*session]struct{}
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byUser: map[string]map[*session]struct{}{}}
}

func (r *sessionRegistry) add(s *session) {
	sessions, ok := r.byUser[s.userID]
	if !ok {
		sessions = map[*session]struct{}{}
		r.byUser[s.userID] = sessions
	}
	sessions[s] = struct{}{}
}

// remove reports whether this was the user's last open session, which
// is what decides whether a disconnect event is emitted.
func (r *sessionRegistry) remove(s *session) (last bool) {
	sessions, ok := r.byUser[s.userID]
	if !ok {
		return false
	}
	delete(sessions, s)
	if len(sessions) == 0 {
		delete(r.byUser, s.userID)
		return true
	}
	return false
}

func (r *sessionRegistry) connectedUserIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.byUser))
	for id := range r.byUser {
		ids[id] = struct{}{}
	}
	return ids
}

func (r *sessionRegistry) each(fn func(*session)) {
	for _, sessions := range r.byUser {
		for s := range sessions {
			fn(s)
		}
	}
}

func (r *sessionRegistry) empty() bool {
	return len(r.byUser) == 0
}
