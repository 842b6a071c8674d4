package bot

import (
	"sync"

	"task-dashboard/internal/query"
)

// sessions keeps one filter state per chat. Every filter change goes through
// updateFilter, which sends the chat back to page 1.
type sessions struct {
	mu       sync.Mutex
	pageSize int
	byChat   map[int64]query.FilterState
}

func newSessions(pageSize int) *sessions {
	if pageSize <= 0 {
		pageSize = 5
	}
	return &sessions{pageSize: pageSize, byChat: make(map[int64]query.FilterState)}
}

func (s *sessions) defaults() query.FilterState {
	return query.FilterState{
		SortKey:   query.SortTitle,
		Direction: query.Asc,
		Page:      1,
		PageSize:  s.pageSize,
	}
}

func (s *sessions) get(chatID int64) query.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byChat[chatID]
	if !ok {
		return s.defaults()
	}
	return f
}

// updateFilter applies fn to the chat's filter and resets the page.
func (s *sessions) updateFilter(chatID int64, fn func(f *query.FilterState)) query.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byChat[chatID]
	if !ok {
		f = s.defaults()
	}
	fn(&f)
	f.Page = 1
	s.byChat[chatID] = f
	return f
}

// setPage moves the chat to page without touching its filters.
func (s *sessions) setPage(chatID int64, page int) query.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byChat[chatID]
	if !ok {
		f = s.defaults()
	}
	if page < 1 {
		page = 1
	}
	f.Page = page
	s.byChat[chatID] = f
	return f
}

func (s *sessions) reset(chatID int64) query.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChat, chatID)
	return s.defaults()
}
