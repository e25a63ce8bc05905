package notification

import (
	"testing"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, read bool) *domain.NotificationEntry {
	return &domain.NotificationEntry{DocumentID: id, Title: "title " + id, IsRead: read}
}

func documentIDs(s Snapshot) []string {
	ids := make([]string, 0, len(s.Data))
	for _, e := range s.Data {
		ids = append(ids, e.DocumentID)
	}
	return ids
}

// assertUnreadConsistent unreadCount always equals the number of unread entries
func assertUnreadConsistent(t *testing.T, s *Store) {
	t.Helper()
	snap := s.Snapshot()
	n := 0
	for _, e := range snap.Data {
		if !e.IsRead {
			n++
		}
	}
	assert.Equal(t, n, snap.UnreadCount)
	assert.Equal(t, n, s.UnreadCount())
}

func TestStore_IngestPushedPrepends(t *testing.T) {
	s := NewStore()
	assert.True(t, s.IngestPushed(entry("n1", false)))
	assert.True(t, s.IngestPushed(entry("n2", false)))
	assert.Equal(t, []string{"n2", "n1"}, documentIDs(s.Snapshot()))
	assertUnreadConsistent(t, s)
}

func TestStore_DuplicatePushLeavesStoreUnchanged(t *testing.T) {
	s := NewStore()
	s.IngestFetched([]*domain.NotificationEntry{entry("n1", false), entry("n2", true)})
	before := s.Snapshot()

	dup := entry("n1", true)
	dup.Title = "other"
	assert.False(t, s.IngestPushed(dup))

	after := s.Snapshot()
	assert.Equal(t, before, after)
	assertUnreadConsistent(t, s)
}

func TestStore_IngestPushedCopiesEntry(t *testing.T) {
	s := NewStore()
	e := entry("n1", false)
	s.IngestPushed(e)
	e.Title = "mutated"
	assert.Equal(t, "title n1", s.Snapshot().Data[0].Title)
}

func TestStore_IngestFetched(t *testing.T) {
	tests := []struct {
		name   string
		pushed []string
		first  []string
		second []string
		want   []string
	}{
		{
			name:   "seeds empty store",
			second: []string{"a", "b"},
			want:   []string{"a", "b"},
		},
		{
			name:   "replaces previous fetch",
			first:  []string{"a", "b"},
			second: []string{"c"},
			want:   []string{"c"},
		},
		{
			name:   "keeps push that beat the fetch",
			first:  []string{"a"},
			pushed: []string{"p"},
			second: []string{"a"},
			want:   []string{"p", "a"},
		},
		{
			name:   "fetched copy of pushed entry wins",
			pushed: []string{"p"},
			second: []string{"p", "a"},
			want:   []string{"p", "a"},
		},
		{
			name:   "drops duplicates in fetched list",
			second: []string{"a", "a", "b"},
			want:   []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			if tt.first != nil {
				var list []*domain.NotificationEntry
				for _, id := range tt.first {
					list = append(list, entry(id, false))
				}
				s.IngestFetched(list)
			}
			for _, id := range tt.pushed {
				s.IngestPushed(entry(id, false))
			}
			var list []*domain.NotificationEntry
			for _, id := range tt.second {
				list = append(list, entry(id, false))
			}
			s.IngestFetched(list)

			assert.Equal(t, tt.want, documentIDs(s.Snapshot()))
			assertUnreadConsistent(t, s)
		})
	}
}

func TestStore_PushKeptOnlyUntilNextFetch(t *testing.T) {
	s := NewStore()
	s.IngestPushed(entry("p", false))
	s.IngestFetched([]*domain.NotificationEntry{entry("a", false)})
	require.Equal(t, []string{"p", "a"}, documentIDs(s.Snapshot()))

	// removed on the server
	s.IngestFetched([]*domain.NotificationEntry{entry("a", false)})
	assert.Equal(t, []string{"a"}, documentIDs(s.Snapshot()))
}

func TestStore_MarkRead(t *testing.T) {
	s := NewStore()
	s.IngestFetched([]*domain.NotificationEntry{entry("n1", false), entry("n2", false)})
	old := s.Snapshot()

	assert.True(t, s.MarkRead("n2"))
	assert.True(t, s.MarkRead("n2"))
	assert.False(t, s.MarkRead("missing"))

	assert.Equal(t, 1, s.UnreadCount())
	assertUnreadConsistent(t, s)
	// earlier snapshots are not affected
	assert.False(t, old.Data[1].IsRead)
	assert.Equal(t, 2, old.UnreadCount)
}

func TestStore_MarkAllRead(t *testing.T) {
	s := NewStore()
	s.IngestFetched([]*domain.NotificationEntry{entry("n1", false), entry("n2", true), entry("n3", false)})

	assert.Equal(t, 2, s.MarkAllRead())
	assert.Equal(t, 0, s.MarkAllRead())
	assert.Zero(t, s.UnreadCount())
	assertUnreadConsistent(t, s)
}

func TestStore_OnChange(t *testing.T) {
	s := NewStore()
	var counts []int
	remove := s.OnChange(func(snap Snapshot) { counts = append(counts, snap.UnreadCount) })

	s.IngestPushed(entry("n1", false))
	s.IngestPushed(entry("n1", false))
	s.IngestPushed(entry("n2", false))
	s.MarkRead("n1")
	s.MarkAllRead()
	remove()
	s.Reset()

	assert.Equal(t, []int{1, 2, 1, 0}, counts)
	assert.Zero(t, s.Len())
}

func TestStore_ResetForgetsPending(t *testing.T) {
	s := NewStore()
	s.IngestPushed(entry("p", false))
	s.Reset()
	s.IngestFetched([]*domain.NotificationEntry{entry("a", false)})
	assert.Equal(t, []string{"a"}, documentIDs(s.Snapshot()))
}

func TestStore_EmptySnapshot(t *testing.T) {
	snap := NewStore().Snapshot()
	assert.NotNil(t, snap.Data)
	assert.Zero(t, snap.UnreadCount)
}

func TestRenderForAudience(t *testing.T) {
	e := &domain.NotificationEntry{Title: "Review approved", Content: "You have a new review"}
	for _, role := range []domain.Role{domain.RoleLearner, domain.RoleAdmin} {
		assert.Equal(t, Rendered{Title: e.Title, Content: e.Content}, RenderForAudience(e, role))
	}
	assert.Equal(t, Rendered{}, RenderForAudience(nil, domain.RoleAdmin))
}
