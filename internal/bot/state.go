package bot

import "sync"

// StateTag identifies which multi-step dialog a user is currently in.
type StateTag string

const (
	StateIdle               StateTag = "idle"
	StateAwaitingContent    StateTag = "awaiting_content"
	StateAwaitingCode       StateTag = "awaiting_code"
	StateAwaitingDeleteCode StateTag = "awaiting_delete_code"
	StateConfirmingDelete   StateTag = "confirming_delete"
	StateViewingItems       StateTag = "viewing_items"
)

// Data keys used inside ConversationState.Data.
const (
	stateKeyCodes       = "codes" // comma-joined short codes of the cached list
	stateKeyPage        = "page"  // current page index of the cached list
	stateKeyPendingCode = "code"  // short code awaiting delete confirmation
)

// ConversationState is the engine's memory of a user's current dialog.
type ConversationState struct {
	Tag  StateTag
	Data map[string]string
}

// StateStore maps Telegram user ids to their conversation state.
// In-memory only: all dialog progress is lost on process restart, which
// is acceptable because every flow can be restarted from the main menu.
//
// StateStore also hands out per-user locks so the processor can serialize
// concurrent read-modify-write cycles for the same user.
type StateStore struct {
	mu     sync.RWMutex
	states map[int64]ConversationState

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewStateStore creates an empty conversation state store.
func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[int64]ConversationState),
		locks:  make(map[int64]*sync.Mutex),
	}
}

// Get returns the user's current state, or an idle default if none exists.
// The returned Data map is a copy; mutating it does not affect the store.
func (s *StateStore) Get(userID int64) ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return ConversationState{Tag: StateIdle, Data: map[string]string{}}
	}
	return ConversationState{Tag: st.Tag, Data: copyData(st.Data)}
}

// Set overwrites the user's state tag and data as a unit.
func (s *StateStore) Set(userID int64, tag StateTag, data map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = ConversationState{Tag: tag, Data: copyData(data)}
}

// Clear removes the user's state entirely; the next Get returns idle.
func (s *StateStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// Len returns the number of users with live state (diagnostics only).
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// LockUser acquires the per-user mutex and returns its unlock function.
// Requests for different users never contend. Lock entries are tiny and
// kept for reuse after Clear.
func (s *StateStore) LockUser(userID int64) func() {
	s.locksMu.Lock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	s.locksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
