package attempt

import "sync"

// SessionCache mirrors {attempt, order, cursor} for the participant's
// live session so the hot path can skip a lookup. It is never
// authoritative: entries are dropped and rebuilt from the store on any
// mismatch, and losing the whole cache costs nothing but a query.
type SessionCache struct {
	mu sync.RWMutex
	m  map[string]sessionState
}

type sessionState struct {
	AttemptID int64
	Order     []int64
	Index     int
}

func NewSessionCache() *SessionCache {
	return &SessionCache{m: map[string]sessionState{}}
}

func (c *SessionCache) Get(participantID string) (sessionState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.m[participantID]
	return st, ok
}

func (c *SessionCache) Put(participantID string, a Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[participantID] = sessionState{AttemptID: a.ID, Order: a.QuestionOrder, Index: a.CurrentIndex}
}

func (c *SessionCache) Drop(participantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, participantID)
}
