package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

type TaskStore interface {
	Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error)
	List(ctx context.Context, ownerID string) ([]task.Task, error)
	Update(ctx context.Context, ownerID, id string, req task.UpdateTaskRequest) (task.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// TasksHandler serves the per-user task CRUD. Every operation takes the
// owner identity from the auth middleware, not from the payload.
type TasksHandler struct {
	repo  TaskStore
	cache *cache.TasksCache // nil disables caching
	prom  *observability.Prom
	sf    singleflight.Group
}

func NewTasksHandler(repo TaskStore, c *cache.TasksCache, prom *observability.Prom) *TasksHandler {
	return &TasksHandler{
		repo:  repo,
		cache: c,
		prom:  prom,
	}
}

func (h *TasksHandler) countCache(result string) {
	if h.prom != nil {
		h.prom.CacheResults.WithLabelValues(result).Inc()
	}
}

func ownerID(ctx *gin.Context) (string, bool) {
	uid, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		// RequireAuth did not run; treat as a server-side wiring fault
		RespondInternal(ctx, "Missing authenticated identity")
		return "", false
	}

	return uid, true
}

func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	uid, ok := ownerID(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tasks, err := h.listTasks(cctx, uid)

	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	ctx.JSON(http.StatusOK, tasks)
}

// listTasks consults the redis cache first; singleflight collapses
// concurrent fills for the same user.
func (h *TasksHandler) listTasks(ctx context.Context, uid string) ([]task.Task, error) {
	if h.cache == nil {
		return h.repo.List(ctx, uid)
	}

	v, err, _ := h.sf.Do("list:"+uid, func() (interface{}, error) {
		cached, err := h.cache.GetList(ctx, uid)

		if err != nil {
			h.countCache("error")
		} else if cached != nil {
			h.countCache("hit")
			return cached, nil
		} else {
			h.countCache("miss")
		}

		list, err := h.repo.List(ctx, uid)

		if err != nil {
			return nil, err
		}

		// best effort; a failed fill only costs the next read a DB trip
		_ = h.cache.SetList(ctx, uid, list)

		return list, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]task.Task), nil
}

func (h *TasksHandler) invalidate(ctx context.Context, uid string) {
	if h.cache != nil {
		_ = h.cache.Invalidate(ctx, uid)
	}
}

func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	uid, ok := ownerID(ctx)

	if !ok {
		return
	}

	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Defaults()

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t, err := h.repo.Create(cctx, uid, req)

	if err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	h.invalidate(cctx, uid)

	ctx.JSON(http.StatusCreated, t)
}

func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	uid, ok := ownerID(ctx)

	if !ok {
		return
	}

	id := ctx.Param("id")

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Empty() {
		RespondBadRequest(ctx, "invalid_request", "No fields to update", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	t, err := h.repo.Update(cctx, uid, id, req)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			// covers both "no such task" and "someone else's task"
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not update task")
		return
	}

	h.invalidate(cctx, uid)

	ctx.JSON(http.StatusOK, t)
}

func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	uid, ok := ownerID(ctx)

	if !ok {
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, uid, id)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not delete task")
		return
	}

	h.invalidate(cctx, uid)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}
