package audit

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/MrEthical07/authcore/docstore"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Collection holds activity log documents.
const Collection = "activity_logs"

// DocumentSink appends entries to the activity_logs collection. Write failures
// are logged and otherwise ignored.
type DocumentSink struct {
	store  docstore.Store
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewDocumentSink returns a sink over store. A nil logger discards output.
func NewDocumentSink(store docstore.Store, logger logrus.FieldLogger) *DocumentSink {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &DocumentSink{store: store, logger: logger, now: time.Now}
}

// stamp fills CreatedAt and a time-ordered ULID when they are missing.
func stamp(entry Entry, now func() time.Time) (Entry, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now().UTC()
	}
	if entry.ID == "" {
		id, err := ulid.New(ulid.Timestamp(entry.CreatedAt), rand.Reader)
		if err != nil {
			return entry, err
		}
		entry.ID = id.String()
	}
	return entry, nil
}

func (s *DocumentSink) Emit(ctx context.Context, entry Entry) {
	entry, err := stamp(entry, s.now)
	if err != nil {
		s.logger.WithError(err).Warn("activity log: id generation failed")
		return
	}

	if err := s.store.InsertOne(ctx, Collection, toDocument(entry)); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":  entry.Action,
			"user_id": entry.UserID,
		}).Warn("activity log: append failed")
	}
}

// Query selects activity log entries. Zero fields do not filter.
type Query struct {
	UserID string
	Action string
	Limit  int
}

// Find returns matching entries newest first.
func (s *DocumentSink) Find(ctx context.Context, q Query) ([]Entry, error) {
	filter := docstore.Filter{}
	if q.UserID != "" {
		filter["userId"] = q.UserID
	}
	if q.Action != "" {
		filter["action"] = q.Action
	}

	docs, err := s.store.Find(ctx, Collection, filter, docstore.FindOptions{
		SortBy:     "createdAt",
		Descending: true,
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDocument(d))
	}
	return out, nil
}

func toDocument(e Entry) docstore.Document {
	doc := docstore.Document{
		docstore.IDField: e.ID,
		"userId":         e.UserID,
		"userName":       e.UserName,
		"userEmail":      e.UserEmail,
		"action":         e.Action,
		"description":    e.Description,
		"createdAt":      e.CreatedAt,
	}
	optional := map[string]string{
		"ipAddress":      e.IPAddress,
		"userAgent":      e.UserAgent,
		"targetUserId":   e.TargetUserID,
		"targetUserName": e.TargetUserName,
	}
	for k, v := range optional {
		if v != "" {
			doc[k] = v
		}
	}
	if len(e.Metadata) > 0 {
		meta := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			meta[k] = v
		}
		doc["metadata"] = meta
	}
	return doc
}

func fromDocument(d docstore.Document) Entry {
	e := Entry{
		ID:             d.ID(),
		UserID:         d.String("userId"),
		UserName:       d.String("userName"),
		UserEmail:      d.String("userEmail"),
		Action:         d.String("action"),
		Description:    d.String("description"),
		IPAddress:      d.String("ipAddress"),
		UserAgent:      d.String("userAgent"),
		TargetUserID:   d.String("targetUserId"),
		TargetUserName: d.String("targetUserName"),
	}
	e.CreatedAt, _ = d.Time("createdAt")
	if meta := d.Map("metadata"); len(meta) > 0 {
		e.Metadata = make(map[string]string, len(meta))
		for k, v := range meta {
			if s, ok := v.(string); ok {
				e.Metadata[k] = s
			}
		}
	}
	return e
}
