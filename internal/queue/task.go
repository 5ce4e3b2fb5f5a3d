// Package queue runs background jobs over RabbitMQ. Publishers enqueue a
// Task envelope; the worker consumes it, runs the registered handler and
// records progress in Redis so clients can poll the outcome.
package queue

import (
	"encoding/json"
	"time"
)

// Built-in task names.
const (
	TaskSendEmail   = "email.send"
	TaskProcessData = "data.process"
	TaskProgress    = "demo.progress"
)

// Task is the message body exchanged over the broker.
type Task struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	MaxRetries int             `json:"max_retries"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// EmailPayload is the payload of TaskSendEmail.
type EmailPayload struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"max=10000"`
}

// ProcessPayload is the payload of TaskProcessData. Data may be any JSON
// value; arrays and objects are counted. ShouldFail makes the run fail so
// the retry path can be exercised.
type ProcessPayload struct {
	Data       json.RawMessage `json:"data"`
	ShouldFail bool            `json:"should_fail"`
}

// ProgressPayload is the payload of TaskProgress: Steps one-second steps.
type ProgressPayload struct {
	Steps int `json:"steps" validate:"min=1,max=600"`
}
