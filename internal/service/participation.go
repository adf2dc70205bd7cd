package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/yogastudio/internal/logger"
	"github.com/yogastudio/internal/model"
	"github.com/yogastudio/internal/repository"
)

// SessionStore is implemented by *repository.SessionRepository.
type SessionStore interface {
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
}

// UserStore is implemented by *repository.UserRepository.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// EventPublisher receives roster changes; *ws.Hub implements it.
type EventPublisher interface {
	Publish(ev model.RosterEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.RosterEvent) {}

// ParticipationService adds and removes users from a session's participant list.
//
// There is no lock around the load/modify/save cycle: two concurrent joins on
// the same session both read the old list and the last Save wins.
type ParticipationService struct {
	sessions SessionStore
	users    UserStore
	events   EventPublisher
}

func NewParticipationService(sessions SessionStore, users UserStore, events EventPublisher) *ParticipationService {
	if events == nil {
		events = nopPublisher{}
	}
	return &ParticipationService{sessions: sessions, users: users, events: events}
}

// Join appends userID to the session. NotFound when either the session or the
// user does not exist, BadRequest when the user already participates.
func (s *ParticipationService) Join(ctx context.Context, sessionID, userID int64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("participation.Join: load session: %w", err)
	}
	user, uerr := s.users.GetByID(ctx, userID)
	if uerr != nil && !errors.Is(uerr, repository.ErrNotFound) {
		return fmt.Errorf("participation.Join: load user: %w", uerr)
	}
	if session == nil || user == nil {
		return fmt.Errorf("join session %d user %d: %w", sessionID, userID, ErrNotFound)
	}
	if session.HasParticipant(userID) {
		return fmt.Errorf("user %d already participates in session %d: %w", userID, sessionID, ErrBadRequest)
	}
	session.Users = append(session.Users, userID)
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("participation.Join: save: %w", err)
	}
	logger.Infof("participation: user %d joined session %d", userID, sessionID)
	s.events.Publish(model.RosterEvent{
		Type: model.EventParticipantJoined, SessionID: sessionID, UserID: userID, Users: slices.Clone(session.Users),
	})
	return nil
}

// Leave removes userID from the session, keeping the order of the others.
// NotFound when the session does not exist, BadRequest when the user is not a participant.
func (s *ParticipationService) Leave(ctx context.Context, sessionID, userID int64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && session == nil) {
		return fmt.Errorf("leave session %d: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("participation.Leave: load session: %w", err)
	}
	idx := slices.Index(session.Users, userID)
	if idx < 0 {
		return fmt.Errorf("user %d does not participate in session %d: %w", userID, sessionID, ErrBadRequest)
	}
	session.Users = slices.Delete(session.Users, idx, idx+1)
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("participation.Leave: save: %w", err)
	}
	logger.Infof("participation: user %d left session %d", userID, sessionID)
	s.events.Publish(model.RosterEvent{
		Type: model.EventParticipantLeft, SessionID: sessionID, UserID: userID, Users: slices.Clone(session.Users),
	})
	return nil
}
