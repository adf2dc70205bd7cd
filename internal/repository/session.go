package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yogastudio/internal/logger"
	"github.com/yogastudio/internal/model"
)

// sessionSelect aggregates participants in join order; sessions without
// participants get an empty array.
const sessionSelect = `SELECT s.id, s.name, s.date, s.teacher_id, s.description, s.created_at, s.updated_at,
       COALESCE(array_agg(p.user_id ORDER BY p.position) FILTER (WHERE p.user_id IS NOT NULL), '{}')
  FROM sessions s
  LEFT JOIN participate p ON p.session_id = s.id`

// SessionRepository stores class sessions and their participant lists.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func scanSession(s interface{ Scan(dest ...any) error }, out *model.Session) error {
	return s.Scan(&out.ID, &out.Name, &out.Date, &out.TeacherID, &out.Description, &out.CreatedAt, &out.UpdatedAt, &out.Users)
}

func (r *SessionRepository) List(ctx context.Context) ([]model.Session, error) {
	defer logger.DeferLogDuration("session.List", time.Now())()
	rows, err := r.pool.Query(ctx, sessionSelect+` GROUP BY s.id ORDER BY s.date, s.id`)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.List query: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0, 16)
	for rows.Next() {
		var s model.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, fmt.Errorf("sessionRepo.List scan: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessionRepo.List rows: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	defer logger.DeferLogDuration("session.GetByID", time.Now())()
	s := &model.Session{}
	row := r.pool.QueryRow(ctx, sessionSelect+` WHERE s.id = $1 GROUP BY s.id`, id)
	if err := scanSession(row, s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}
	return s, nil
}

// Create inserts s with its participants and fills id and timestamps.
// A teacher or participant that does not exist yields ErrNotFound.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	defer logger.DeferLogDuration("session.Create", time.Now())()
	now := time.Now().UTC()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO sessions (name, description, date, teacher_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $5)
			 RETURNING id`,
			s.Name, s.Description, s.Date, s.TeacherID, now,
		).Scan(&s.ID); err != nil {
			return err
		}
		return insertParticipants(ctx, tx, s.ID, s.Users)
	})
	if isPgCode(err, pgForeignKeyViolation) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}
	s.CreatedAt, s.UpdatedAt = now, now
	if s.Users == nil {
		s.Users = []int64{}
	}
	return nil
}

// Save overwrites the session row and its whole participant list in one
// transaction. Two concurrent read-modify-write cycles on the same session
// race and the last Save wins.
func (r *SessionRepository) Save(ctx context.Context, s *model.Session) error {
	defer logger.DeferLogDuration("session.Save", time.Now())()
	now := time.Now().UTC()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE sessions SET name = $1, description = $2, date = $3, teacher_id = $4, updated_at = $5
			 WHERE id = $6`,
			s.Name, s.Description, s.Date, s.TeacherID, now, s.ID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM participate WHERE session_id = $1`, s.ID); err != nil {
			return err
		}
		return insertParticipants(ctx, tx, s.ID, s.Users)
	})
	if errors.Is(err, ErrNotFound) || isPgCode(err, pgForeignKeyViolation) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sessionRepo.Save: %w", err)
	}
	s.UpdatedAt = now
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	defer logger.DeferLogDuration("session.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("sessionRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertParticipants(ctx context.Context, tx pgx.Tx, sessionID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO participate (session_id, user_id, position)
		 SELECT $1, u.user_id, u.ord FROM unnest($2::bigint[]) WITH ORDINALITY AS u(user_id, ord)`,
		sessionID, userIDs,
	)
	return err
}
