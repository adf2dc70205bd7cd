package service

import (
	"context"
	"sync"
	"time"

	"github.com/yogastudio/internal/model"
	"github.com/yogastudio/internal/repository"
)

// memSessions stores copies so callers never share slices with the store.
type memSessions struct {
	mu       sync.Mutex
	rows     map[int64]*model.Session
	nextID   int64
	saves    int
	afterGet  func()
	saveErr   error
	createErr error
}

func newMemSessions(sessions ...*model.Session) *memSessions {
	m := &memSessions{rows: make(map[int64]*model.Session)}
	for _, s := range sessions {
		m.rows[s.ID] = s.Clone()
		if s.ID > m.nextID {
			m.nextID = s.ID
		}
	}
	return m
}

func (m *memSessions) List(context.Context) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Session, 0, len(m.rows))
	for id := int64(1); id <= m.nextID; id++ {
		if s, ok := m.rows[id]; ok {
			out = append(out, *s.Clone())
		}
	}
	return out, nil
}

func (m *memSessions) GetByID(_ context.Context, id int64) (*model.Session, error) {
	m.mu.Lock()
	s, ok := m.rows[id]
	var out *model.Session
	if ok {
		out = s.Clone()
	}
	m.mu.Unlock()
	if m.afterGet != nil {
		m.afterGet()
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (m *memSessions) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	s.ID = m.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.rows[s.ID] = s.Clone()
	return nil
}

func (m *memSessions) Save(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.rows[s.ID]; !ok {
		return repository.ErrNotFound
	}
	m.rows[s.ID] = s.Clone()
	m.saves++
	return nil
}

func (m *memSessions) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memSessions) users(id int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Clone().Users
}

// memTeachers knows teachers by id only.
type memTeachers map[int64]model.Teacher

func (m memTeachers) List(context.Context) ([]model.Teacher, error) {
	out := make([]model.Teacher, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	return out, nil
}

func (m memTeachers) GetByID(_ context.Context, id int64) (*model.Teacher, error) {
	t, ok := m[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func newMemTeachers(ids ...int64) memTeachers {
	m := make(memTeachers, len(ids))
	for _, id := range ids {
		m[id] = model.Teacher{ID: id}
	}
	return m
}

type memUsers struct {
	mu     sync.Mutex
	byID   map[int64]*model.User
	nextID int64
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{byID: make(map[int64]*model.User)}
	for _, u := range users {
		c := *u
		m.byID[u.ID] = &c
		if u.ID > m.nextID {
			m.nextID = u.ID
		}
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	c := *u
	m.byID[u.ID] = &c
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.RosterEvent
}

func (p *recordingPublisher) Publish(ev model.RosterEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) all() []model.RosterEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.RosterEvent(nil), p.events...)
}
