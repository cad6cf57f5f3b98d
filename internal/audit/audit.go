package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Action tags recorded on ActivityLogEntry.Action.
const (
	ActionRegister             = "REGISTER"
	ActionLogin                = "LOGIN"
	ActionPasswordResetRequest = "PASSWORD_RESET_REQUEST"
	ActionPasswordReset        = "PASSWORD_RESET"
	ActionPasswordChange       = "PASSWORD_CHANGE"
	ActionAccountDelete        = "ACCOUNT_DELETE"
	ActionRoleChange           = "ROLE_CHANGE"
)

// Entry is one append-only activity log record.
type Entry struct {
	ID             string            `json:"id"`
	UserID         string            `json:"userId"`
	UserName       string            `json:"userName"`
	UserEmail      string            `json:"userEmail"`
	Action         string            `json:"action"`
	Description    string            `json:"description"`
	IPAddress      string            `json:"ipAddress,omitempty"`
	UserAgent      string            `json:"userAgent,omitempty"`
	TargetUserID   string            `json:"targetUserId,omitempty"`
	TargetUserName string            `json:"targetUserName,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Sink receives activity log entries. Emit must not fail the caller; sinks
// report their own errors.
type Sink interface {
	Emit(ctx context.Context, entry Entry)
}

// NoOpSink drops entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Entry) {}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, entry Entry) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(append(data, '\n'))
}

// MultiSink fans an entry out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, entry Entry) {
	for _, s := range m {
		s.Emit(ctx, entry)
	}
}
