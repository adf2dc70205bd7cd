package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yogastudio/internal/auth"
	"github.com/yogastudio/internal/logger"
	"github.com/yogastudio/internal/model"
	"github.com/yogastudio/internal/repository"
)

// notFound maps repository.ErrNotFound to ErrNotFound and wraps everything else.
func notFound(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type SessionRepo interface {
	List(ctx context.Context) ([]model.Session, error)
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	Create(ctx context.Context, s *model.Session) error
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id int64) error
}

// SessionInput is the body of session create/update requests.
type SessionInput struct {
	Name        string    `json:"name" validate:"required,max=50"`
	Date        time.Time `json:"date" validate:"required"`
	TeacherID   *int64    `json:"teacher_id" validate:"required"`
	Description string    `json:"description" validate:"required,max=2500"`
	Users       []int64   `json:"users"`
}

type SessionService struct {
	repo     SessionRepo
	teachers TeacherRepo
	events   EventPublisher
}

func NewSessionService(repo SessionRepo, teachers TeacherRepo, events EventPublisher) *SessionService {
	if events == nil {
		events = nopPublisher{}
	}
	return &SessionService{repo: repo, teachers: teachers, events: events}
}

// checkTeacher reports ErrNotFound when the referenced teacher does not exist.
func (s *SessionService) checkTeacher(ctx context.Context, op string, teacherID *int64) error {
	if teacherID == nil {
		return nil
	}
	if _, err := s.teachers.GetByID(ctx, *teacherID); err != nil {
		return notFound(op, err)
	}
	return nil
}

func (s *SessionService) List(ctx context.Context) ([]model.Session, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("sessions.List: %w", err)
	}
	return list, nil
}

func (s *SessionService) Get(ctx context.Context, id int64) (*model.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("sessions.Get", err)
	}
	return sess, nil
}

func (s *SessionService) Create(ctx context.Context, in SessionInput) (*model.Session, error) {
	if err := s.checkTeacher(ctx, "sessions.Create", in.TeacherID); err != nil {
		return nil, err
	}
	sess := &model.Session{
		Name:        in.Name,
		Date:        in.Date,
		TeacherID:   in.TeacherID,
		Description: in.Description,
		Users:       dedupe(in.Users),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, notFound("sessions.Create", err)
	}
	logger.Infof("session %d created", sess.ID)
	return sess, nil
}

// Update replaces the session fields. A nil Users list keeps the current participants.
func (s *SessionService) Update(ctx context.Context, id int64, in SessionInput) (*model.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("sessions.Update", err)
	}
	if err := s.checkTeacher(ctx, "sessions.Update", in.TeacherID); err != nil {
		return nil, err
	}
	sess.Name = in.Name
	sess.Date = in.Date
	sess.TeacherID = in.TeacherID
	sess.Description = in.Description
	if in.Users != nil {
		sess.Users = dedupe(in.Users)
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, notFound("sessions.Update", err)
	}
	s.events.Publish(model.RosterEvent{Type: model.EventSessionUpdated, SessionID: id, Users: sess.Users})
	return sess, nil
}

func (s *SessionService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound("sessions.Delete", err)
	}
	logger.Infof("session %d deleted", id)
	s.events.Publish(model.RosterEvent{Type: model.EventSessionDeleted, SessionID: id})
	return nil
}

// dedupe drops repeated ids keeping first occurrences in order.
func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type TeacherRepo interface {
	List(ctx context.Context) ([]model.Teacher, error)
	GetByID(ctx context.Context, id int64) (*model.Teacher, error)
}

type TeacherService struct {
	repo TeacherRepo
}

func NewTeacherService(repo TeacherRepo) *TeacherService {
	return &TeacherService{repo: repo}
}

func (s *TeacherService) List(ctx context.Context) ([]model.Teacher, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("teachers.List: %w", err)
	}
	return list, nil
}

func (s *TeacherService) Get(ctx context.Context, id int64) (*model.Teacher, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("teachers.Get", err)
	}
	return t, nil
}

type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Delete(ctx context.Context, id int64) error
}

type UserService struct {
	repo UserRepo
}

func NewUserService(repo UserRepo) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("users.Get", err)
	}
	return u, nil
}

// Delete removes the account of the calling principal. Deleting anyone
// else's account is ErrUnauthorized, admins included.
func (s *UserService) Delete(ctx context.Context, p *auth.Principal, id int64) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return notFound("users.Delete", err)
	}
	if p == nil || p.Username != u.Email {
		return fmt.Errorf("delete user %d: %w", id, ErrUnauthorized)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound("users.Delete", err)
	}
	logger.Infof("user %d deleted", id)
	return nil
}
