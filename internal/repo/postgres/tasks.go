package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TasksRepo scopes every statement by owner: the WHERE clause always carries
// both the task id and the owning user id, so a task belonging to someone
// else behaves exactly like a missing one.
type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{
		pool: pool,
		prom: prom,
	}
}

// invalid_text_representation: the id path param never parsed as a uuid, so
// no task can match it
const invalidTextRepresentation = "22P02"

func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *TasksRepo) Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error) {
	now := time.Now().UTC()

	t := task.Task{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.observe("tasks.create", func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO tasks(id, user_id, name, description, due_date, status, priority, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			t.ID, t.OwnerID, t.Name, t.Description, t.DueDate, t.Status, t.Priority, t.CreatedAt, t.UpdatedAt)
		return execErr
	})

	if err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, ownerID string) ([]task.Task, error) {
	output := make([]task.Task, 0)

	err := r.observe("tasks.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, name, description, due_date, status, priority, created_at, updated_at
			 FROM tasks
			 WHERE user_id = $1
			 ORDER BY created_at ASC, id ASC`,
			ownerID)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var t task.Task

			err = rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Description, &t.DueDate, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt)

			if err != nil {
				return err
			}

			output = append(output, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

// Update applies only the fields present in the patch. The SET list is built
// positionally the same way the list filters are, and the owner check rides
// in the same statement as the mutation.
func (r *TasksRepo) Update(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error) {
	var sets []string
	var args []interface{}

	argsPosition := 1

	add := func(column string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, val)
		argsPosition++
	}

	if req.Name != nil {
		add("name", *req.Name)
	}

	if req.Description != nil {
		add("description", *req.Description)
	}

	if req.DueDate != nil {
		add("due_date", *req.DueDate)
	}

	if req.Status != nil {
		add("status", *req.Status)
	}

	if req.Priority != nil {
		add("priority", *req.Priority)
	}

	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE tasks
			SET %s
		WHERE id = $%d AND user_id = $%d
		RETURNING id, user_id, name, description, due_date, status, priority, created_at, updated_at`,
		strings.Join(sets, ", "), argsPosition, argsPosition+1,
	)

	args = append(args, id, ownerID)

	var t task.Task

	err := r.observe("tasks.update", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&t.ID,
			&t.OwnerID,
			&t.Name,
			&t.Description,
			&t.DueDate,
			&t.Status,
			&t.Priority,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
	})

	if err != nil {
		// no row matched the (id, owner) pair
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return task.Task{}, task.ErrNotFound
		}

		return task.Task{}, err
	}

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("tasks.delete", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `
			DELETE FROM tasks WHERE id = $1 AND user_id = $2
		`, id, ownerID)
		return execErr
	})

	if err != nil {
		if isMalformedID(err) {
			return task.ErrNotFound
		}

		return err
	}

	// nothing deleted: absent, or owned by someone else
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}

	return nil
}
