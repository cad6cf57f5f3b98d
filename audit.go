package authcore

import (
	"io"

	"github.com/MrEthical07/authcore/docstore"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/sirupsen/logrus"
)

// Activity log action tags.
const (
	ActionRegister             = internalaudit.ActionRegister
	ActionLogin                = internalaudit.ActionLogin
	ActionPasswordResetRequest = internalaudit.ActionPasswordResetRequest
	ActionPasswordReset        = internalaudit.ActionPasswordReset
	ActionPasswordChange       = internalaudit.ActionPasswordChange
	ActionAccountDelete        = internalaudit.ActionAccountDelete
	ActionRoleChange           = internalaudit.ActionRoleChange
)

// ActivityLogEntry is one append-only audit record.
type ActivityLogEntry = internalaudit.Entry

// AuditSink receives activity log entries. Emit must not fail the caller.
type AuditSink = internalaudit.Sink

// NoOpSink drops entries.
type NoOpSink = internalaudit.NoOpSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// DocumentSink appends entries to the activity_logs collection of a store.
type DocumentSink = internalaudit.DocumentSink

// MultiSink fans an entry out to every sink in order.
type MultiSink = internalaudit.MultiSink

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewDocumentSink returns a sink over store. A nil logger discards output.
func NewDocumentSink(store docstore.Store, logger logrus.FieldLogger) *DocumentSink {
	return internalaudit.NewDocumentSink(store, logger)
}
