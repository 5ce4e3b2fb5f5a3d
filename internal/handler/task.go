package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-auth-service/internal/logging"
	"github.com/iliyamo/user-auth-service/internal/queue"
)

// Enqueuer publishes background tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any) (string, error)
}

// StatusReader looks up task progress.
type StatusReader interface {
	Get(ctx context.Context, id string) (*queue.Status, error)
}

// TaskHandler exposes the background task queue.
type TaskHandler struct {
	Queue  Enqueuer
	Status StatusReader
	Log    logging.Logger
}

func NewTaskHandler(q Enqueuer, status StatusReader, log logging.Logger) *TaskHandler {
	return &TaskHandler{Queue: q, Status: status, Log: log}
}

func (h *TaskHandler) enqueue(c echo.Context, name string, payload any) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Queue.Enqueue(ctx, name, payload)
	if err != nil {
		h.Log.Error(ctx, "enqueue task", "name", name, "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "task queue unavailable"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"task_id": id})
}

// Email: POST /tasks/email
func (h *TaskHandler) Email(c echo.Context) error {
	var req queue.EmailPayload
	if ok, err := bind(c, &req); !ok {
		return err
	}
	return h.enqueue(c, queue.TaskSendEmail, req)
}

// Process: POST /tasks/process
func (h *TaskHandler) Process(c echo.Context) error {
	var req queue.ProcessPayload
	if ok, err := bind(c, &req); !ok {
		return err
	}
	return h.enqueue(c, queue.TaskProcessData, req)
}

// Progress: POST /tasks/progress
func (h *TaskHandler) Progress(c echo.Context) error {
	req := queue.ProgressPayload{Steps: 10}
	if ok, err := bind(c, &req); !ok {
		return err
	}
	return h.enqueue(c, queue.TaskProgress, req)
}

// Get: GET /tasks/:id
func (h *TaskHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	st, err := h.Status.Get(ctx, c.Param("id"))
	switch {
	case errors.Is(err, queue.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	case errors.Is(err, queue.ErrStatusUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "task status unavailable"})
	case err != nil:
		h.Log.Error(ctx, "read task status", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, st)
}
