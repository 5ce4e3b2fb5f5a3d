package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrSimulatedFailure is returned by TaskProcessData when should_fail is set.
var ErrSimulatedFailure = errors.New("simulated failure")

// Register installs the built-in tasks on r.
func Register(r *Runner, mailer Mailer, step time.Duration) {
	r.Register(TaskSendEmail, SendEmail(mailer))
	r.Register(TaskProcessData, ProcessData)
	r.Register(TaskProgress, Progress(step))
}

func decode(t Task, v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return errors.Wrap(ErrPoison, "decode payload")
	}
	return nil
}

// SendEmail delivers EmailPayload through mailer.
func SendEmail(mailer Mailer) Handler {
	return func(ctx context.Context, t Task, _ ProgressFunc) (any, error) {
		var p EmailPayload
		if err := decode(t, &p); err != nil {
			return nil, err
		}
		if err := mailer.Send(ctx, Message{To: p.To, Subject: p.Subject, Body: p.Body}); err != nil {
			return nil, err
		}
		return map[string]any{"status": "sent", "email": p.To}, nil
	}
}

// ProcessData counts the items of an array or object payload.
func ProcessData(_ context.Context, t Task, _ ProgressFunc) (any, error) {
	var p ProcessPayload
	if err := decode(t, &p); err != nil {
		return nil, err
	}
	if p.ShouldFail {
		return nil, ErrSimulatedFailure
	}
	return map[string]any{"status": "processed", "items_count": countItems(p.Data)}, nil
}

func countItems(raw json.RawMessage) int {
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		return len(list)
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil {
		return len(obj)
	}
	return 0
}

// Progress sleeps through Steps steps of length step, reporting each one.
func Progress(step time.Duration) Handler {
	return func(ctx context.Context, t Task, progress ProgressFunc) (any, error) {
		var p ProgressPayload
		if err := decode(t, &p); err != nil {
			return nil, err
		}
		for i := 0; i < p.Steps; i++ {
			if !sleep(ctx, step) {
				return nil, ctx.Err()
			}
			progress(i+1, p.Steps)
		}
		return map[string]any{"status": "completed", "result": fmt.Sprintf("Task completed in %d steps", p.Steps)}, nil
	}
}
