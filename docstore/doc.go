// Package docstore defines the document-store collaborator used by authcore and the
// filter semantics every backend must honour.
//
// Filters follow the familiar document-database shape: a plain value means equality,
// an [Op] applies $gt/$gte/$lt/$lte/$ne/$exists/$in. Updates set and unset top-level
// fields. [Match] and [Apply] implement those semantics for backends that evaluate
// filters in-process (memstore, redisstore); mongostore hands them to the server.
package docstore
