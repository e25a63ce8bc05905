package notification

import (
	"sync"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
)

// Snapshot list of the current user's notifications, newest first
type Snapshot struct {
	Data        []*domain.NotificationEntry `json:"data"`
	UnreadCount int                         `json:"unreadCount"`
}

// Store the notification list of the current user.
//
// Every mutation builds a new slice from the previous one and entries are
// never modified once stored, so a Snapshot stays valid after later mutations.
type Store struct {
	mu      sync.Mutex
	entries []*domain.NotificationEntry
	// documentIds pushed since the last fetch
	pending   map[string]struct{}
	listeners map[int]func(Snapshot)
	nextID    int
}

// NewStore .
func NewStore() *Store {
	return &Store{
		pending:   make(map[string]struct{}),
		listeners: make(map[int]func(Snapshot)),
	}
}

// OnChange registers a listener called with the new snapshot after every mutation.
// Listeners run under the store lock and must not call back into the store.
func (s *Store) OnChange(listener func(Snapshot)) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// IngestPushed prepend a pushed entry, reports false when its documentId is already stored
func (s *Store) IngestPushed(entry *domain.NotificationEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.entries, entry.DocumentID) >= 0 {
		return false
	}

	cp := *entry
	next := make([]*domain.NotificationEntry, 0, len(s.entries)+1)
	next = append(next, &cp)
	next = append(next, s.entries...)
	s.pending[entry.DocumentID] = struct{}{}
	s.commitLocked(next)
	return true
}

// IngestFetched replace the list with a fetched one. Entries pushed since the
// previous fetch and missing from the list are kept in front of it.
func (s *Store) IngestFetched(list []*domain.NotificationEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(list))
	fetched := make([]*domain.NotificationEntry, 0, len(list))
	for _, e := range list {
		if e == nil {
			continue
		}
		if _, ok := seen[e.DocumentID]; ok {
			continue
		}
		seen[e.DocumentID] = struct{}{}
		cp := *e
		fetched = append(fetched, &cp)
	}

	next := make([]*domain.NotificationEntry, 0, len(fetched)+len(s.pending))
	for _, e := range s.entries {
		if _, ok := s.pending[e.DocumentID]; !ok {
			continue
		}
		if _, ok := seen[e.DocumentID]; ok {
			continue
		}
		next = append(next, e)
	}
	next = append(next, fetched...)
	s.pending = make(map[string]struct{})
	s.commitLocked(next)
}

// MarkRead flag one entry as read, reports false when it is not stored
func (s *Store) MarkRead(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.entries, documentID)
	if i < 0 {
		return false
	}
	if s.entries[i].IsRead {
		return true
	}

	next := make([]*domain.NotificationEntry, len(s.entries))
	copy(next, s.entries)
	cp := *next[i]
	cp.IsRead = true
	next[i] = &cp
	s.commitLocked(next)
	return true
}

// MarkAllRead flag every entry as read, returns how many changed
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	next := make([]*domain.NotificationEntry, len(s.entries))
	for i, e := range s.entries {
		if e.IsRead {
			next[i] = e
			continue
		}
		cp := *e
		cp.IsRead = true
		next[i] = &cp
		changed++
	}
	if changed > 0 {
		s.commitLocked(next)
	}
	return changed
}

// Snapshot .
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(s.entries)
}

// UnreadCount number of unread entries
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return unread(s.entries)
}

// Len .
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset drop everything, used when the identity goes away
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]struct{})
	s.commitLocked(nil)
}

func (s *Store) commitLocked(next []*domain.NotificationEntry) {
	s.entries = next
	if len(s.listeners) == 0 {
		return
	}
	snap := snapshotOf(next)
	for _, l := range s.listeners {
		l(snap)
	}
}

func snapshotOf(entries []*domain.NotificationEntry) Snapshot {
	data := entries
	if data == nil {
		data = []*domain.NotificationEntry{}
	}
	return Snapshot{Data: data, UnreadCount: unread(entries)}
}

func unread(entries []*domain.NotificationEntry) int {
	n := 0
	for _, e := range entries {
		if !e.IsRead {
			n++
		}
	}
	return n
}

func indexOf(entries []*domain.NotificationEntry, documentID string) int {
	for i, e := range entries {
		if e.DocumentID == documentID {
			return i
		}
	}
	return -1
}
