package handler

import (
	"context"
	"net/http"

	"github.com/yogastudio/internal/auth"
	"github.com/yogastudio/internal/model"
	"github.com/yogastudio/internal/service"
)

type SessionHandler struct {
	sessions      *service.SessionService
	participation *service.ParticipationService
}

func NewSessionHandler(sessions *service.SessionService, participation *service.ParticipationService) *SessionHandler {
	return &SessionHandler{sessions: sessions, participation: participation}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.sessions.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]*model.Session, 0, len(list))
	for i := range list {
		out = append(out, list[i].Clone())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Clone())
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.SessionInput
	if !decode(w, r, &in) {
		return
	}
	s, err := h.sessions.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Clone())
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in service.SessionInput
	if !decode(w, r, &in) {
		return
	}
	s, err := h.sessions.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Clone())
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *SessionHandler) Participate(w http.ResponseWriter, r *http.Request) {
	h.participate(w, r, h.participation.Join)
}

func (h *SessionHandler) NoLongerParticipate(w http.ResponseWriter, r *http.Request) {
	h.participate(w, r, h.participation.Leave)
}

// participate applies join or leave. Non-admin principals may only act for themselves.
func (h *SessionHandler) participate(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, sessionID, userID int64) error) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	p := auth.PrincipalFrom(r.Context())
	if p == nil || (!p.Admin && p.ID != userID) {
		writeServiceError(w, r, service.ErrUnauthorized)
		return
	}
	if err := apply(r.Context(), sessionID, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
