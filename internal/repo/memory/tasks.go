package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/google/uuid"
)

type TasksRepo struct {
	mu    sync.RWMutex
	items map[string]task.Task
}

func NewTasksRepo() *TasksRepo {
	return &TasksRepo{
		items: make(map[string]task.Task),
	}
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

	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TasksRepo) List(ctx context.Context, ownerID string) ([]task.Task, error) {
	r.mu.RLock()

	output := make([]task.Task, 0)

	for _, t := range r.items {
		if t.OwnerID == ownerID {
			output = append(output, t)
		}
	}
	r.mu.RUnlock()

	// insertion order, like the postgres repo
	sort.Slice(output, func(i, j int) bool {
		if output[i].CreatedAt.Equal(output[j].CreatedAt) {
			return output[i].ID < output[j].ID
		}
		return output[i].CreatedAt.Before(output[j].CreatedAt)
	})

	return output, nil
}

// Update checks ownership and mutates under one lock, matching the single
// compound-condition statement of the postgres repo.
func (r *TasksRepo) Update(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]

	if !ok || t.OwnerID != ownerID {
		return task.Task{}, task.ErrNotFound
	}

	if req.Name != nil {
		t.Name = *req.Name
	}

	if req.Description != nil {
		t.Description = *req.Description
	}

	if req.DueDate != nil {
		t.DueDate = *req.DueDate
	}

	if req.Status != nil {
		t.Status = *req.Status
	}

	if req.Priority != nil {
		t.Priority = *req.Priority
	}

	t.UpdatedAt = time.Now().UTC()

	r.items[id] = t

	return t, nil
}

func (r *TasksRepo) Delete(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]

	if !ok || t.OwnerID != ownerID {
		return task.ErrNotFound
	}

	delete(r.items, id)

	return nil
}
