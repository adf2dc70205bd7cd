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

type TeacherRepository struct {
	pool *pgxpool.Pool
}

func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

func (r *TeacherRepository) List(ctx context.Context) ([]model.Teacher, error) {
	defer logger.DeferLogDuration("teacher.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, last_name, first_name, created_at, updated_at FROM teachers ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("teacherRepo.List query: %w", err)
	}
	defer rows.Close()

	teachers := make([]model.Teacher, 0, 8)
	for rows.Next() {
		var t model.Teacher
		if err := rows.Scan(&t.ID, &t.LastName, &t.FirstName, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("teacherRepo.List scan: %w", err)
		}
		teachers = append(teachers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("teacherRepo.List rows: %w", err)
	}
	return teachers, nil
}

func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*model.Teacher, error) {
	defer logger.DeferLogDuration("teacher.GetByID", time.Now())()
	t := &model.Teacher{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, last_name, first_name, created_at, updated_at FROM teachers WHERE id = $1`, id,
	).Scan(&t.ID, &t.LastName, &t.FirstName, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("teacherRepo.GetByID: %w", err)
	}
	return t, nil
}
