package registry

import "sort"

// Registry maps a user to its most recent session. The last admitted
// session wins; older sessions of the same user are no longer tracked.
//
// Registry is not safe for concurrent use. The hub loop owns it.
type Registry struct {
	current map[string]string // userID -> sessionID
}

func New() *Registry {
	return &Registry{current: make(map[string]string)}
}

// Admit records sessionID as the current session of userID, replacing any
// earlier one. It returns the superseded session id, if any.
func (r *Registry) Admit(userID, sessionID string) (previous string) {
	previous = r.current[userID]
	r.current[userID] = sessionID
	return previous
}

// Evict removes userID only while sessionID is still its current session.
// A false result means a newer session superseded sessionID.
func (r *Registry) Evict(userID, sessionID string) bool {
	cur, ok := r.current[userID]
	if !ok || cur != sessionID {
		return false
	}
	delete(r.current, userID)
	return true
}

// IsOnline reports whether userID has a current session.
func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.current[userID]
	return ok
}

// Current returns the session id userID is mapped to.
func (r *Registry) Current(userID string) (string, bool) {
	sid, ok := r.current[userID]
	return sid, ok
}

// Online returns the sorted ids of all online users.
func (r *Registry) Online() []string {
	users := make([]string, 0, len(r.current))
	for u := range r.current {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Len returns the number of online users.
func (r *Registry) Len() int {
	return len(r.current)
}
