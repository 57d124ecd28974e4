package recruit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State tags one workflow instance's position in the submission sequence.
type State string

const (
	StateCategoryPending State = "category_pending"
	StateFormPending     State = "form_pending"
	StateValidating      State = "validating"
	StateCooldownCheck   State = "cooldown_check"
	StateFanningOut      State = "fanning_out"
	StateCompleted       State = "completed"
	StateRejected        State = "rejected"
	StateFailed          State = "failed"
)

// Session is the transient state threaded through one workflow instance.
// It is scoped to one actor and one interaction chain; nothing here is
// shared across instances.
type Session struct {
	ActorID   string
	ActorName string
	TenantID  string
	ChannelID string

	Category string // "normal" or a level "1".."15"
	Code     string
	Comment  string

	State State
}

// SessionStore holds live workflow sessions keyed by a generated token.
//
// Interaction component payloads are size-limited on the platform side, so
// the session lives server-side and only the short token travels in the
// component ID. Entries expire after a TTL; abandoned flows just age out.
type SessionStore struct {
	mu  sync.Mutex
	ttl time.Duration

	nextSweep time.Time
	m         map[string]sessionEntry
}

type sessionEntry struct {
	s   Session
	exp time.Time
}

const (
	defaultSessionTTL    = 15 * time.Minute
	sessionSweepInterval = time.Minute
)

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{ttl: ttl, m: map[string]sessionEntry{}}
}

// Put stores s and returns its token.
func (st *SessionStore) Put(s Session) string {
	tok := uuid.NewString()
	now := time.Now()

	st.mu.Lock()
	st.sweepLocked(now)
	st.m[tok] = sessionEntry{s: s, exp: now.Add(st.ttl)}
	st.mu.Unlock()
	return tok
}

// Get returns the session for tok, if present and not expired.
func (st *SessionStore) Get(tok string) (Session, bool) {
	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(now)

	e, ok := st.m[tok]
	if !ok || now.After(e.exp) {
		delete(st.m, tok)
		return Session{}, false
	}
	return e.s, true
}

// Update overwrites the session for tok, keeping its expiry.
func (st *SessionStore) Update(tok string, s Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.m[tok]
	if !ok {
		return false
	}
	e.s = s
	st.m[tok] = e
	return true
}

// Delete discards the session for tok.
func (st *SessionStore) Delete(tok string) {
	st.mu.Lock()
	delete(st.m, tok)
	st.mu.Unlock()
}

func (st *SessionStore) sweepLocked(now time.Time) {
	if now.Before(st.nextSweep) {
		return
	}
	for k, e := range st.m {
		if now.After(e.exp) {
			delete(st.m, k)
		}
	}
	st.nextSweep = now.Add(sessionSweepInterval)
}
