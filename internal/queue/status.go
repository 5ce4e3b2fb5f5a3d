package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// State follows the usual task lifecycle.
type State string

const (
	StatePending  State = "PENDING"
	StateStarted  State = "STARTED"
	StateProgress State = "PROGRESS"
	StateRetry    State = "RETRY"
	StateSuccess  State = "SUCCESS"
	StateFailure  State = "FAILURE"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrStatusUnavailable = errors.New("task status store unavailable")
)

// Status is the last known state of a task.
type Status struct {
	ID        string          `json:"task_id"`
	Name      string          `json:"name,omitempty"`
	State     State           `json:"state"`
	Attempt   int             `json:"attempt"`
	Current   int             `json:"current,omitempty"`
	Total     int             `json:"total,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StatusStore keeps one Redis hash per task (task:<id>) that expires ttl
// after its last update. A nil client turns writes into no-ops.
type StatusStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewStatusStore(rdb *redis.Client, ttl time.Duration) *StatusStore {
	return &StatusStore{rdb: rdb, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func statusKey(id string) string { return "task:" + id }

func (s *StatusStore) set(ctx context.Context, id string, state State, fields map[string]any) error {
	if s.rdb == nil {
		return nil
	}
	fields["state"] = string(state)
	fields["updated_at"] = s.now().Format(time.RFC3339Nano)
	key := statusKey(id)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *StatusStore) Pending(ctx context.Context, t Task) error {
	return s.set(ctx, t.ID, StatePending, map[string]any{"name": t.Name, "attempt": t.Attempt})
}

func (s *StatusStore) Started(ctx context.Context, t Task) error {
	return s.set(ctx, t.ID, StateStarted, map[string]any{"name": t.Name, "attempt": t.Attempt})
}

func (s *StatusStore) Progress(ctx context.Context, id string, current, total int) error {
	return s.set(ctx, id, StateProgress, map[string]any{"current": current, "total": total})
}

func (s *StatusStore) Retry(ctx context.Context, id string, attempt int, cause error) error {
	return s.set(ctx, id, StateRetry, map[string]any{"attempt": attempt, "error": cause.Error()})
}

func (s *StatusStore) Succeed(ctx context.Context, id string, result any) error {
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.set(ctx, id, StateSuccess, map[string]any{"result": string(b), "error": ""})
}

func (s *StatusStore) Fail(ctx context.Context, id string, cause error) error {
	return s.set(ctx, id, StateFailure, map[string]any{"error": cause.Error()})
}

// Get loads the status of id.
func (s *StatusStore) Get(ctx context.Context, id string) (*Status, error) {
	if s.rdb == nil {
		return nil, ErrStatusUnavailable
	}
	m, err := s.rdb.HGetAll(ctx, statusKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, ErrTaskNotFound
	}
	st := &Status{ID: id, Name: m["name"], State: State(m["state"]), Error: m["error"]}
	st.Attempt, _ = strconv.Atoi(m["attempt"])
	st.Current, _ = strconv.Atoi(m["current"])
	st.Total, _ = strconv.Atoi(m["total"])
	if r := m["result"]; r != "" {
		st.Result = json.RawMessage(r)
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, m["updated_at"])
	return st, nil
}
