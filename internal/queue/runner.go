package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/user-auth-service/internal/logging"
)

// ProgressFunc reports how far a running task has got.
type ProgressFunc func(current, total int)

// Handler runs one task and returns its JSON-encodable result.
type Handler func(ctx context.Context, t Task, progress ProgressFunc) (any, error)

// Retrier schedules a task for another attempt.
type Retrier interface {
	Retry(ctx context.Context, t Task, delay time.Duration) error
}

// ErrPoison marks a delivery that can never succeed.
var ErrPoison = errors.New("undeliverable task")

// Runner dispatches tasks to handlers and applies the retry policy.
type Runner struct {
	handlers map[string]Handler
	status   *StatusStore
	retrier  Retrier
	delay    time.Duration
	timeout  time.Duration
	log      logging.Logger
}

func NewRunner(status *StatusStore, retrier Retrier, retryDelay, timeout time.Duration, log logging.Logger) *Runner {
	return &Runner{
		handlers: map[string]Handler{},
		status:   status,
		retrier:  retrier,
		delay:    retryDelay,
		timeout:  timeout,
		log:      log,
	}
}

func (r *Runner) Register(name string, h Handler) { r.handlers[name] = h }

// Process runs the task in body. A nil error means the delivery is done
// with, either finished or handed to the retrier. Any error means it should
// be rejected.
func (r *Runner) Process(ctx context.Context, body []byte) error {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil || t.ID == "" {
		return errors.Wrap(ErrPoison, "decode task")
	}
	log := r.log.With("task_id", t.ID, "name", t.Name, "attempt", t.Attempt)

	h, ok := r.handlers[t.Name]
	if !ok {
		err := errors.Wrapf(ErrPoison, "no handler for %q", t.Name)
		r.record(ctx, log, r.status.Fail(ctx, t.ID, err))
		return err
	}
	r.record(ctx, log, r.status.Started(ctx, t))

	res, err := r.run(ctx, h, t, log)
	if err == nil {
		r.record(ctx, log, r.status.Succeed(ctx, t.ID, res))
		log.Info(ctx, "task succeeded")
		return nil
	}

	if t.Attempt < t.MaxRetries && !errors.Is(err, ErrPoison) {
		next := t
		next.Attempt++
		rerr := r.retrier.Retry(ctx, next, r.delay)
		if rerr == nil {
			r.record(ctx, log, r.status.Retry(ctx, t.ID, next.Attempt, err))
			log.Warn(ctx, "task failed, retry scheduled", "error", err, "delay", r.delay)
			return nil
		}
		log.Error(ctx, "task retry could not be scheduled", "error", rerr)
	}
	r.record(ctx, log, r.status.Fail(ctx, t.ID, err))
	log.Error(ctx, "task failed", "error", err)
	return err
}

// run calls h under the task timeout and turns a panic into an error.
func (r *Runner) run(ctx context.Context, h Handler, t Task, log logging.Logger) (res any, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	progress := func(current, total int) {
		r.record(ctx, log, r.status.Progress(ctx, t.ID, current, total))
	}
	return h(ctx, t, progress)
}

func (r *Runner) record(ctx context.Context, log logging.Logger, err error) {
	if err != nil {
		log.Warn(ctx, "task status write failed", "error", err)
	}
}
