package model

import (
	"slices"
	"time"
)

// Session is a scheduled yoga class. Users holds participant ids in join order.
type Session struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	TeacherID   *int64    `json:"teacher_id"`
	Description string    `json:"description"`
	Users       []int64   `json:"users"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasParticipant reports whether userID is in the participant list.
func (s *Session) HasParticipant(userID int64) bool {
	return slices.Contains(s.Users, userID)
}

// Clone returns a copy whose participant slice does not alias s.Users.
func (s *Session) Clone() *Session {
	c := *s
	c.Users = slices.Clone(s.Users)
	if c.Users == nil {
		c.Users = []int64{}
	}
	if s.TeacherID != nil {
		id := *s.TeacherID
		c.TeacherID = &id
	}
	return &c
}
