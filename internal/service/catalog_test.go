package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yogastudio/internal/auth"
	"github.com/yogastudio/internal/model"
	"github.com/yogastudio/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func TestSessionService_CreateDeduplicatesParticipants(t *testing.T) {
	repo := newMemSessions()
	svc := NewSessionService(repo, newMemTeachers(1, 2), nil)

	s, err := svc.Create(context.Background(), SessionInput{
		Name: "Yin", Date: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), TeacherID: ptr(int64(1)),
		Description: "Slow class", Users: []int64{3, 4, 3},
	})
	require.NoError(t, err)

	assert.NotZero(t, s.ID)
	assert.Equal(t, []int64{3, 4}, s.Users)
}

func TestSessionService_UpdateKeepsParticipantsWhenOmitted(t *testing.T) {
	repo := newMemSessions(&model.Session{ID: 1, Name: "Old", Users: []int64{5, 7}})
	events := &recordingPublisher{}
	svc := NewSessionService(repo, newMemTeachers(1, 2), events)

	s, err := svc.Update(context.Background(), 1, SessionInput{
		Name: "New", Date: time.Now(), TeacherID: ptr(int64(2)), Description: "d",
	})
	require.NoError(t, err)

	assert.Equal(t, "New", s.Name)
	assert.Equal(t, []int64{5, 7}, repo.users(1))
	require.Len(t, events.all(), 1)
	assert.Equal(t, model.EventSessionUpdated, events.all()[0].Type)
}

func TestSessionService_NotFound(t *testing.T) {
	svc := NewSessionService(newMemSessions(), newMemTeachers(1), nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, 1, SessionInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 1), ErrNotFound)
}

func TestSessionService_MissingTeacher(t *testing.T) {
	repo := newMemSessions(&model.Session{ID: 1, Name: "Old", TeacherID: ptr(int64(1)), Users: []int64{5}})
	events := &recordingPublisher{}
	svc := NewSessionService(repo, newMemTeachers(1), events)
	ctx := context.Background()
	in := SessionInput{Name: "Yin", Date: time.Now(), TeacherID: ptr(int64(99)), Description: "d"}

	_, err := svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, 1, in)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Old", got.Name)
	assert.Empty(t, events.all())
}

func TestSessionService_MissingParticipant(t *testing.T) {
	repo := newMemSessions(&model.Session{ID: 1, Name: "Old"})
	repo.createErr = repository.ErrNotFound
	repo.saveErr = repository.ErrNotFound
	svc := NewSessionService(repo, newMemTeachers(1), nil)
	ctx := context.Background()
	in := SessionInput{Name: "Yin", Date: time.Now(), TeacherID: ptr(int64(1)), Description: "d", Users: []int64{42}}

	_, err := svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, 1, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionService_DeletePublishes(t *testing.T) {
	events := &recordingPublisher{}
	svc := NewSessionService(newMemSessions(&model.Session{ID: 3}), newMemTeachers(1), events)

	require.NoError(t, svc.Delete(context.Background(), 3))
	assert.Equal(t, []model.RosterEvent{{Type: model.EventSessionDeleted, SessionID: 3}}, events.all())
}

type MockTeacherRepo struct {
	mock.Mock
}

func (m *MockTeacherRepo) List(ctx context.Context) ([]model.Teacher, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Teacher), args.Error(1)
}

func (m *MockTeacherRepo) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Teacher), args.Error(1)
}

func TestTeacherService(t *testing.T) {
	repo := new(MockTeacherRepo)
	margot := model.Teacher{ID: 1, FirstName: "Margot", LastName: "DELAHAYE"}
	repo.On("List", mock.Anything).Return([]model.Teacher{margot}, nil)
	repo.On("GetByID", mock.Anything, int64(1)).Return(&margot, nil)
	repo.On("GetByID", mock.Anything, int64(2)).Return(nil, repository.ErrNotFound)
	svc := NewTeacherService(repo)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Teacher{margot}, list)

	got, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Margot", got.FirstName)

	_, err = svc.Get(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
	repo.AssertExpectations(t)
}

func TestUserService_Delete(t *testing.T) {
	newSvc := func() (*UserService, *memUsers) {
		users := newMemUsers(
			&model.User{ID: 1, Email: "owner@example.com"},
			&model.User{ID: 2, Email: "other@example.com"},
		)
		return NewUserService(users), users
	}
	ctx := context.Background()
	owner := &auth.Principal{ID: 1, Username: "owner@example.com"}

	t.Run("own account", func(t *testing.T) {
		svc, users := newSvc()
		require.NoError(t, svc.Delete(ctx, owner, 1))
		assert.Equal(t, 1, users.count())
	})
	t.Run("someone else", func(t *testing.T) {
		svc, users := newSvc()
		assert.ErrorIs(t, svc.Delete(ctx, owner, 2), ErrUnauthorized)
		assert.Equal(t, 2, users.count())
	})
	t.Run("admin deleting someone else", func(t *testing.T) {
		svc, _ := newSvc()
		admin := &auth.Principal{ID: 9, Username: "yoga@studio.com", Admin: true}
		assert.ErrorIs(t, svc.Delete(ctx, admin, 2), ErrUnauthorized)
	})
	t.Run("missing", func(t *testing.T) {
		svc, _ := newSvc()
		assert.ErrorIs(t, svc.Delete(ctx, owner, 99), ErrNotFound)
	})
}
