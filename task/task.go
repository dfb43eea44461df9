package task

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Kind string

const KindVideoAnalysis Kind = "video_analysis"

// Params is the input needed to rerun a task. Credentials are kept redacted.
type Params map[string]string

type Task struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Params    Params    `json:"params"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	identity string
}

func (t *Task) clone() Task {
	c := *t
	c.Params = make(Params, len(t.Params))
	for k, v := range t.Params {
		c.Params[k] = v
	}
	return c
}

// RedactCredential keeps only a short prefix of a secret so task records can be
// listed and logged.
func RedactCredential(secret string) string {
	const keep = 10
	r := []rune(secret)
	if len(r) > keep {
		r = r[:keep]
	}
	return string(r) + "..."
}
