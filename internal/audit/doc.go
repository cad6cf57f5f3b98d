// Package audit records the append-only activity log.
//
// # Components
//
//   - [Entry]: one activity log record (actor, action tag, description, origin, target).
//   - [Sink]: entry consumer; [DocumentSink] persists to the activity_logs collection,
//     [JSONWriterSink] streams JSON lines, [MultiSink] fans out and [NoOpSink] discards.
//   - [Dispatcher]: buffered async relay that stamps entries at enqueue time, with
//     drop-if-full or block-if-full semantics.
//
// This package does not decide which entries to record; the flows do. Entries
// are never updated or deleted here.
package audit
